package model

// SummaryRow is one aggregated statistic for a (class, size band, period)
// group. Rows are immutable once computed and recomputed wholesale on re-run.
type SummaryRow struct {
	Class       CustomerClass `json:"class"`
	SizeBand    SizeBand      `json:"sizeBand"`
	Period      string        `json:"period"` // e.g. "2023-01-01", "2023-01", "winter"
	Stat        string        `json:"stat"`   // mean, min, max, count
	Value       float64       `json:"value"`
	SampleCount int           `json:"sampleCount"`
}

// RowWarning records a malformed row that was skipped during parsing.
type RowWarning struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// QualityFinding is one data-quality observation over the normalized samples:
// a coverage gap, a run of zero readings, or a load spike.
type QualityFinding struct {
	Class    CustomerClass `json:"class"`
	SizeBand SizeBand      `json:"sizeBand"`
	Date     string        `json:"date"`
	Kind     string        `json:"kind"` // gap, zero_run, spike
	Detail   string        `json:"detail"`
}

const (
	QualityGap     = "gap"
	QualityZeroRun = "zero_run"
	QualitySpike   = "spike"
)
