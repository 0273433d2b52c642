package parse

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"load-profile-pipeline/internal/model"
	"load-profile-pipeline/internal/observability"
)

// Archive file layout: a 4-line banner, then one row per (segment, day):
//
//	SEGMENT DATE H01 H02 ... H24
//
// whitespace-delimited, 26 columns. On the fall DST transition day the
// provider publishes 27 columns, the extra one being the second hour-2
// observation, which is folded into H02 when aggregation is enabled.
const (
	headerLines = 4
	normalCols  = 26
	dstCols     = 27

	// The segment field carries an 8-character utility prefix before the
	// segment code proper.
	segmentPrefixLen = 8

	rowDateLayout = "1/2/2006"
)

// Options controls parser policy for one batch.
type Options struct {
	// MalformedThreshold is the fraction of skipped rows above which the
	// whole batch fails instead of recovering row by row.
	MalformedThreshold float64
	// AggregateDSTHour folds the extra fall-DST hour-2 column into H02.
	// When false the extra observation is dropped.
	AggregateDSTHour bool
}

// DefaultOptions matches the job-spec defaults.
var DefaultOptions = Options{
	MalformedThreshold: model.DefaultMalformedThreshold,
	AggregateDSTHour:   true,
}

// Result carries the normalized samples of one batch together with the
// warning list for rows that were skipped.
type Result struct {
	Samples    []model.LoadSample
	Warnings   []model.RowWarning
	TotalRows  int
	ParsedRows int
	Skipped    int
}

// ParseFile normalizes one raw archive file into LoadSample rows. Malformed
// rows are skipped and collected as warnings; the batch fails wholesale with
// a FormatError when no data rows exist or the malformed fraction exceeds
// the configured threshold. ParsedRows + Skipped always equals TotalRows.
func ParseFile(raw *model.RawFile, codes CodeTable, opts Options) (*Result, error) {
	if opts.MalformedThreshold <= 0 {
		opts.MalformedThreshold = model.DefaultMalformedThreshold
	}

	lines := strings.Split(strings.ReplaceAll(string(raw.Body), "\r", ""), "\n")

	res := &Result{}
	var prevDay time.Time

	for i, line := range lines {
		if i < headerLines || len(strings.TrimSpace(line)) <= 1 {
			continue
		}
		res.TotalRows++
		lineNo := i + 1

		samples, err := parseRow(raw, line, codes, opts, prevDay)
		if err != nil {
			res.Skipped++
			res.Warnings = append(res.Warnings, model.RowWarning{
				File:   raw.ID(),
				Line:   lineNo,
				Reason: err.Error(),
			})
			continue
		}

		res.ParsedRows++
		prevDay = samples[0].Timestamp
		res.Samples = append(res.Samples, samples...)
	}

	if res.TotalRows == 0 {
		return nil, &model.FormatError{File: raw.ID(), Reason: "no data rows in archive file"}
	}

	fraction := float64(res.Skipped) / float64(res.TotalRows)
	if fraction > opts.MalformedThreshold {
		return nil, &model.FormatError{
			File: raw.ID(),
			Reason: fmt.Sprintf("malformed row fraction %.2f exceeds threshold %.2f (%d of %d rows)",
				fraction, opts.MalformedThreshold, res.Skipped, res.TotalRows),
		}
	}

	observability.RowsParsedTotal.Add(float64(res.ParsedRows))
	observability.RowsSkippedTotal.Add(float64(res.Skipped))
	return res, nil
}

// parseRow converts one archive row into its 24 hourly samples.
func parseRow(raw *model.RawFile, line string, codes CodeTable, opts Options, prevDay time.Time) ([]model.LoadSample, error) {
	fields := strings.Fields(line)
	if len(fields) != normalCols && len(fields) != dstCols {
		return nil, fmt.Errorf("expected %d or %d columns, got %d", normalCols, dstCols, len(fields))
	}
	dst := len(fields) == dstCols

	segment := strings.TrimSpace(fields[0])
	if len(segment) <= segmentPrefixLen {
		return nil, fmt.Errorf("segment field %q shorter than the %d character prefix", segment, segmentPrefixLen)
	}
	code := segment[segmentPrefixLen:]
	info, ok := codes[code]
	if !ok {
		return nil, fmt.Errorf("unknown segment code %q", code)
	}

	day, err := time.Parse(rowDateLayout, fields[1])
	if err != nil {
		return nil, fmt.Errorf("bad date %q: expected mm/dd/yyyy", fields[1])
	}
	if !prevDay.IsZero() && day.Before(prevDay) {
		return nil, fmt.Errorf("date %s regresses within file", day.Format("2006-01-02"))
	}

	values := make([]float64, 0, 25)
	for _, f := range fields[2:] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("bad load value %q", f)
		}
		if v < 0 {
			return nil, fmt.Errorf("negative load value %v", v)
		}
		values = append(values, v)
	}

	// Fall DST day: values[2] is the second hour-2 observation (H02X).
	if dst {
		if opts.AggregateDSTHour {
			values[1] += values[2]
		}
		values = append(values[:2], values[3:]...)
	}

	samples := make([]model.LoadSample, 0, 24)
	for h, v := range values {
		samples = append(samples, model.LoadSample{
			Timestamp: day.Add(time.Duration(h) * time.Hour),
			LDC:       raw.LDC,
			Segment:   code,
			Class:     info.Class,
			SizeBand:  info.SizeBand,
			KW:        v,
		})
	}
	return samples, nil
}
