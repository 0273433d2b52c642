package model

import (
	"errors"
	"fmt"
)

// RetrievalError reports a failure to download a raw file. Transient errors
// (timeouts, 5xx) are retried by the fetcher; permanent ones (both URL
// indexes missing) are surfaced immediately.
type RetrievalError struct {
	URL        string
	StatusCode int
	Permanent  bool
	Err        error
}

func (e *RetrievalError) Error() string {
	kind := "transient"
	if e.Permanent {
		kind = "permanent"
	}
	if e.Err != nil {
		return fmt.Sprintf("retrieval failed (%s) for %s: %v", kind, e.URL, e.Err)
	}
	return fmt.Sprintf("retrieval failed (%s) for %s: status %d", kind, e.URL, e.StatusCode)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// IsPermanentRetrieval reports whether err is a RetrievalError that should
// not be retried.
func IsPermanentRetrieval(err error) bool {
	var re *RetrievalError
	return errors.As(err, &re) && re.Permanent
}

// FormatError reports raw data that does not match the expected schema.
// Line 0 means the whole batch failed (e.g. malformed fraction over threshold).
type FormatError struct {
	File   string
	Line   int
	Reason string
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("format error in %s line %d: %s", e.File, e.Line, e.Reason)
	}
	return fmt.Sprintf("format error in %s: %s", e.File, e.Reason)
}

// ConfigError reports an invalid job specification. Fatal, never retried.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
