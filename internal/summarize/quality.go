package summarize

import (
	"fmt"
	"sort"
	"time"

	"load-profile-pipeline/internal/model"
	"load-profile-pipeline/pkg/utils"
)

const (
	// spikeFactor flags hourly loads this many times above the group mean.
	spikeFactor = 5.0
	// zeroRunHours flags this many consecutive zero readings within a day.
	zeroRunHours = 6
)

type qualityKey struct {
	Class    model.CustomerClass
	SizeBand model.SizeBand
}

// AssessQuality scans normalized samples for coverage gaps, suspicious runs
// of zero readings, and load spikes. Findings are advisory: they never block
// summarization, they feed the data-quality review downstream.
func AssessQuality(samples []model.LoadSample) []model.QualityFinding {
	// Average duplicate (group, hour) observations across LDCs and segments.
	type hourAcc struct {
		sum float64
		n   int
	}
	byGroup := make(map[qualityKey]map[time.Time]*hourAcc)
	for _, s := range samples {
		key := qualityKey{Class: s.Class, SizeBand: s.SizeBand}
		hours, ok := byGroup[key]
		if !ok {
			hours = make(map[time.Time]*hourAcc)
			byGroup[key] = hours
		}
		acc, ok := hours[s.Timestamp]
		if !ok {
			acc = &hourAcc{}
			hours[s.Timestamp] = acc
		}
		acc.sum += s.KW
		acc.n++
	}

	var findings []model.QualityFinding
	for key, hours := range byGroup {
		var total float64
		var count int
		byDay := make(map[time.Time][]float64) // indexed by hour of day, -1 = missing
		for ts, acc := range hours {
			day := utils.Midnight(ts)
			vals, ok := byDay[day]
			if !ok {
				vals = make([]float64, 24)
				for i := range vals {
					vals[i] = -1
				}
				byDay[day] = vals
			}
			v := acc.sum / float64(acc.n)
			vals[ts.Hour()] = v
			total += v
			count++
		}
		mean := total / float64(count)

		for day, vals := range byDay {
			date := day.Format("2006-01-02")

			present := 0
			for _, v := range vals {
				if v >= 0 {
					present++
				}
			}
			if present < 24 {
				findings = append(findings, model.QualityFinding{
					Class: key.Class, SizeBand: key.SizeBand, Date: date,
					Kind:   model.QualityGap,
					Detail: fmt.Sprintf("only %d of 24 hours present", present),
				})
			}

			run, maxRun := 0, 0
			for _, v := range vals {
				if v == 0 {
					run++
					if run > maxRun {
						maxRun = run
					}
				} else {
					run = 0
				}
			}
			if maxRun >= zeroRunHours {
				findings = append(findings, model.QualityFinding{
					Class: key.Class, SizeBand: key.SizeBand, Date: date,
					Kind:   model.QualityZeroRun,
					Detail: fmt.Sprintf("%d consecutive zero readings", maxRun),
				})
			}

			if mean > 0 {
				peak := 0.0
				for _, v := range vals {
					if v > peak {
						peak = v
					}
				}
				if peak > spikeFactor*mean {
					findings = append(findings, model.QualityFinding{
						Class: key.Class, SizeBand: key.SizeBand, Date: date,
						Kind:   model.QualitySpike,
						Detail: fmt.Sprintf("peak load %.3f is %.1fx the group mean %.3f", peak, peak/mean, mean),
					})
				}
			}
		}
	}

	sort.Slice(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		if a.SizeBand != b.SizeBand {
			return a.SizeBand < b.SizeBand
		}
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return a.Kind < b.Kind
	})
	return findings
}
