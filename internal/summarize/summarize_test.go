package summarize

import (
	"math"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"load-profile-pipeline/internal/model"
)

func sample(ts string, class model.CustomerClass, size model.SizeBand, kw float64) model.LoadSample {
	t, err := time.Parse("2006-01-02T15", ts)
	if err != nil {
		panic(err)
	}
	return model.LoadSample{Timestamp: t, LDC: "CND", Class: class, SizeBand: size, KW: kw}
}

func TestSummarize_MeanByDay(t *testing.T) {
	samples := []model.LoadSample{
		sample("2023-01-01T00", model.ClassResidential, model.SizeSmall, 1.2),
		sample("2023-01-01T01", model.ClassResidential, model.SizeSmall, 1.4),
	}

	rows, err := Summarize(samples, &model.Aggregation{Period: "day", Stats: []string{"mean"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []model.SummaryRow{{
		Class:       model.ClassResidential,
		SizeBand:    model.SizeSmall,
		Period:      "2023-01-01",
		Stat:        "mean",
		Value:       1.3,
		SampleCount: 2,
	}}
	if len(rows) != 1 {
		t.Fatalf("rows: got %d want 1", len(rows))
	}
	if math.Abs(rows[0].Value-1.3) > 1e-9 {
		t.Fatalf("mean: got %v want 1.3", rows[0].Value)
	}
	rows[0].Value = 1.3 // compare the rest exactly
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows mismatch: got %+v want %+v", rows, want)
	}
}

func TestSummarize_OrderIndependent(t *testing.T) {
	var samples []model.LoadSample
	for h := 0; h < 48; h++ {
		ts := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(h) * time.Hour)
		class := model.ClassResidential
		if h%3 == 0 {
			class = model.ClassCommercial
		}
		samples = append(samples, model.LoadSample{
			Timestamp: ts, Class: class, SizeBand: model.SizeMedium, KW: float64(h) * 0.25,
		})
	}

	agg := &model.Aggregation{Period: "day", Stats: []string{"min", "max", "count"}}
	first, err := Summarize(samples, agg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 5; trial++ {
		shuffled := append([]model.LoadSample(nil), samples...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		got, err := Summarize(shuffled, agg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(got, first) {
			t.Fatalf("trial %d: shuffled input changed output", trial)
		}
	}
}

func TestSummarize_MinMaxCount(t *testing.T) {
	samples := []model.LoadSample{
		sample("2023-01-01T00", model.ClassIndustrial, model.SizeLarge, 3.5),
		sample("2023-01-01T01", model.ClassIndustrial, model.SizeLarge, 0.5),
		sample("2023-01-01T02", model.ClassIndustrial, model.SizeLarge, 2.0),
	}

	rows, err := Summarize(samples, &model.Aggregation{Period: "month", Stats: []string{"min", "max", "count"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows: got %d want 3", len(rows))
	}

	byStat := map[string]float64{}
	for _, r := range rows {
		if r.Period != "2023-01" {
			t.Fatalf("period: got %q want 2023-01", r.Period)
		}
		byStat[r.Stat] = r.Value
	}
	if byStat["min"] != 0.5 || byStat["max"] != 3.5 || byStat["count"] != 3 {
		t.Fatalf("stats mismatch: %v", byStat)
	}
}

func TestSummarize_GroupsAreSeparate(t *testing.T) {
	samples := []model.LoadSample{
		sample("2023-01-01T00", model.ClassResidential, model.SizeSmall, 1.0),
		sample("2023-01-01T00", model.ClassResidential, model.SizeLarge, 9.0),
	}

	rows, err := Summarize(samples, &model.Aggregation{Period: "day", Stats: []string{"mean"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows: got %d want 2", len(rows))
	}
	// Output is sorted by size band within class: large before small.
	if rows[0].SizeBand != model.SizeLarge || rows[0].Value != 9.0 {
		t.Fatalf("first row: %+v", rows[0])
	}
	if rows[1].SizeBand != model.SizeSmall || rows[1].Value != 1.0 {
		t.Fatalf("second row: %+v", rows[1])
	}
}

func TestSummarize_UnknownStat(t *testing.T) {
	_, err := Summarize(nil, &model.Aggregation{Stats: []string{"median"}})
	if err == nil {
		t.Fatal("expected error for unknown stat")
	}
	if _, ok := err.(*model.ConfigError); !ok {
		t.Fatalf("expected *model.ConfigError, got %T", err)
	}
}

func TestPeriodLabel(t *testing.T) {
	ts := time.Date(2023, 7, 15, 13, 0, 0, 0, time.UTC)
	cases := map[string]string{
		"hour":   "2023-07-15T13",
		"day":    "2023-07-15",
		"month":  "2023-07",
		"season": "summer",
	}
	for period, want := range cases {
		if got := PeriodLabel(ts, period); got != want {
			t.Fatalf("%s: got %q want %q", period, got, want)
		}
	}
}
