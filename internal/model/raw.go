package model

import (
	"fmt"
	"time"
)

// RawFile is one unparsed archive file as retrieved from the provider:
// a single (LDC, day) combination. Created by the fetcher, consumed and
// discarded by the parser.
type RawFile struct {
	LDC         string    `json:"ldc"`
	Day         time.Time `json:"day"`
	URLIndex    int       `json:"url_index"` // 2 = corrected re-publication, 1 = original, 0 = cache hit
	SourceURL   string    `json:"source_url"`
	Body        []byte    `json:"-"`
	RetrievedAt time.Time `json:"retrieved_at"`
	FromCache   bool      `json:"from_cache"`
}

// ID identifies the file for warnings and error reports.
func (r *RawFile) ID() string {
	return fmt.Sprintf("%s_%s", r.LDC, r.Day.Format("20060102"))
}
