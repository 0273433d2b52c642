package summarize

import (
	"fmt"
	"math"
	"sort"
	"time"

	"load-profile-pipeline/internal/model"
	"load-profile-pipeline/pkg/utils"
)

// DefaultStats are computed when a job names no aggregation operations.
var DefaultStats = []string{"mean", "min", "max", "count"}

type groupKey struct {
	Class    model.CustomerClass
	SizeBand model.SizeBand
	Period   string
}

type accumulator struct {
	Sum   float64
	Min   float64
	Max   float64
	Count int
}

func (a *accumulator) add(v float64) {
	if a.Count == 0 {
		a.Min, a.Max = v, v
	} else {
		a.Min = math.Min(a.Min, v)
		a.Max = math.Max(a.Max, v)
	}
	a.Sum += v
	a.Count++
}

// Summarize aggregates normalized samples into SummaryRow entries grouped by
// (class, size band, period). The result depends only on the input set, not
// its order: groups are accumulated with order-insensitive statistics and
// rows are emitted sorted by group key and stat name.
func Summarize(samples []model.LoadSample, agg *model.Aggregation) ([]model.SummaryRow, error) {
	period := "day"
	stats := DefaultStats
	if agg != nil {
		if agg.Period != "" {
			if !model.ValidPeriods[agg.Period] {
				return nil, &model.ConfigError{Field: "aggregation.period", Reason: fmt.Sprintf("unknown period %q", agg.Period)}
			}
			period = agg.Period
		}
		if len(agg.Stats) > 0 {
			for _, s := range agg.Stats {
				if !model.ValidStats[s] {
					return nil, &model.ConfigError{Field: "aggregation.stats", Reason: fmt.Sprintf("unknown stat %q", s)}
				}
			}
			stats = agg.Stats
		}
	}

	groups := make(map[groupKey]*accumulator)
	for _, s := range samples {
		key := groupKey{Class: s.Class, SizeBand: s.SizeBand, Period: PeriodLabel(s.Timestamp, period)}
		acc, ok := groups[key]
		if !ok {
			acc = &accumulator{}
			groups[key] = acc
		}
		acc.add(s.KW)
	}

	rows := make([]model.SummaryRow, 0, len(groups)*len(stats))
	for key, acc := range groups {
		for _, stat := range stats {
			var value float64
			switch stat {
			case "mean":
				value = acc.Sum / float64(acc.Count)
			case "min":
				value = acc.Min
			case "max":
				value = acc.Max
			case "count":
				value = float64(acc.Count)
			}
			rows = append(rows, model.SummaryRow{
				Class:       key.Class,
				SizeBand:    key.SizeBand,
				Period:      key.Period,
				Stat:        stat,
				Value:       value,
				SampleCount: acc.Count,
			})
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Class != rows[j].Class {
			return rows[i].Class < rows[j].Class
		}
		if rows[i].SizeBand != rows[j].SizeBand {
			return rows[i].SizeBand < rows[j].SizeBand
		}
		if rows[i].Period != rows[j].Period {
			return rows[i].Period < rows[j].Period
		}
		return rows[i].Stat < rows[j].Stat
	})
	return rows, nil
}

// PeriodLabel formats a sample timestamp as its grouping period label.
func PeriodLabel(t time.Time, period string) string {
	switch period {
	case "hour":
		return t.Format("2006-01-02T15")
	case "month":
		return t.Format("2006-01")
	case "season":
		return utils.Season(t.Month())
	default: // day
		return t.Format("2006-01-02")
	}
}
