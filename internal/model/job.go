package model

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for job date ranges.
const DateLayout = "2006-01-02"

// Aggregation defines how summaries are grouped and which statistics to compute.
type Aggregation struct {
	Period string   `json:"period"` // hour, day, month, season
	Stats  []string `json:"stats"`  // mean, min, max, count
}

// Export defines the output artifacts a job produces.
type Export struct {
	Format     string `json:"format"`     // csv or json
	File       string `json:"file"`       // file name inside the job output dir
	UploadFile bool   `json:"uploadFile"` // also write the tab-delimited upload file
}

// Workers defines worker counts per stage. Only the fetch stage fans out;
// parsing and summarizing operate on complete batches.
type Workers struct {
	Fetch int `json:"fetch"`
}

// ConcurrencyConfig defines concurrency and job timeout options.
type ConcurrencyConfig struct {
	Workers    Workers `json:"workers"`
	JobTimeout string  `json:"jobTimeout"` // e.g. "5m"
}

// LoadProfileJobSpec defines one fetch-and-summarize run over a date range.
type LoadProfileJobSpec struct {
	FromDate           string            `json:"fromDate"` // inclusive, YYYY-MM-DD
	ToDate             string            `json:"toDate"`   // inclusive
	LDCs               []string          `json:"ldcs,omitempty"`
	Aggregation        *Aggregation      `json:"aggregation,omitempty"`
	Export             *Export           `json:"export,omitempty"`
	MalformedThreshold float64           `json:"malformedThreshold,omitempty"` // fraction in (0,1], default 0.5
	AllowMissingDays   bool              `json:"allowMissingDays"`             // skip days the provider never published
	Concurrency        ConcurrencyConfig `json:"concurrency"`
}

// ValidPeriods are the grouping periods the summarizer supports.
var ValidPeriods = map[string]bool{"hour": true, "day": true, "month": true, "season": true}

// ValidStats are the named aggregation operations the summarizer supports.
var ValidStats = map[string]bool{"mean": true, "min": true, "max": true, "count": true}

// DefaultMalformedThreshold fails a batch when more than half its rows are bad.
const DefaultMalformedThreshold = 0.5

// Validate checks the job spec and returns a ConfigError on the first problem.
func (s *LoadProfileJobSpec) Validate() error {
	from, err := time.Parse(DateLayout, s.FromDate)
	if err != nil {
		return &ConfigError{Field: "fromDate", Reason: fmt.Sprintf("cannot parse %q, want YYYY-MM-DD", s.FromDate)}
	}
	to, err := time.Parse(DateLayout, s.ToDate)
	if err != nil {
		return &ConfigError{Field: "toDate", Reason: fmt.Sprintf("cannot parse %q, want YYYY-MM-DD", s.ToDate)}
	}
	if to.Before(from) {
		return &ConfigError{Field: "toDate", Reason: "range end precedes start"}
	}
	for _, ldc := range s.LDCs {
		if _, ok := LDCStates[ldc]; !ok {
			return &ConfigError{Field: "ldcs", Reason: fmt.Sprintf("unknown LDC code %q", ldc)}
		}
	}
	if s.Aggregation != nil {
		if s.Aggregation.Period != "" && !ValidPeriods[s.Aggregation.Period] {
			return &ConfigError{Field: "aggregation.period", Reason: fmt.Sprintf("unknown period %q", s.Aggregation.Period)}
		}
		for _, stat := range s.Aggregation.Stats {
			if !ValidStats[stat] {
				return &ConfigError{Field: "aggregation.stats", Reason: fmt.Sprintf("unknown stat %q", stat)}
			}
		}
	}
	if s.MalformedThreshold < 0 || s.MalformedThreshold > 1 {
		return &ConfigError{Field: "malformedThreshold", Reason: "must be within [0, 1]"}
	}
	if s.Export != nil && s.Export.Format != "" && s.Export.Format != "csv" && s.Export.Format != "json" {
		return &ConfigError{Field: "export.format", Reason: fmt.Sprintf("unknown format %q", s.Export.Format)}
	}
	return nil
}

// Range returns the parsed inclusive date bounds. Validate must pass first.
func (s *LoadProfileJobSpec) Range() (from, to time.Time) {
	from, _ = time.Parse(DateLayout, s.FromDate)
	to, _ = time.Parse(DateLayout, s.ToDate)
	return from, to
}

// EffectiveLDCs returns the job's LDC list, falling back to the defaults.
func (s *LoadProfileJobSpec) EffectiveLDCs() []string {
	if len(s.LDCs) > 0 {
		return s.LDCs
	}
	return DefaultLDCs
}

// Threshold returns the malformed-row threshold with the default applied.
func (s *LoadProfileJobSpec) Threshold() float64 {
	if s.MalformedThreshold == 0 {
		return DefaultMalformedThreshold
	}
	return s.MalformedThreshold
}
