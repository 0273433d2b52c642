package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"load-profile-pipeline/internal/config"
	"load-profile-pipeline/internal/model"
	"load-profile-pipeline/internal/pipeline"
	"load-profile-pipeline/internal/store"
)

func main() {
	var (
		from         = flag.String("from", "", "start date (YYYY-MM-DD), required")
		to           = flag.String("to", "", "end date (YYYY-MM-DD), defaults to -from")
		ldcs         = flag.String("ldc", "", "comma separated LDC codes (default CND,CNM)")
		group        = flag.String("group", "day", "summary period: hour, day, month or season")
		stats        = flag.String("stats", "mean,min,max,count", "comma separated stats")
		format       = flag.String("format", "csv", "summary format: csv or json")
		upload       = flag.Bool("upload", false, "also write the tab-delimited upload file")
		allowMissing = flag.Bool("allow-missing", false, "tolerate days the provider never published")
		workers      = flag.Int("workers", 0, "fetch workers, defaults to LP_FETCH_WORKERS")
	)
	flag.Parse()

	if *from == "" {
		fmt.Fprintln(os.Stderr, "missing required -from date")
		flag.Usage()
		os.Exit(2)
	}
	if *to == "" {
		*to = *from
	}

	cfg := config.Load()
	if *workers == 0 {
		*workers = cfg.FetchWorkers
	}

	if err := store.InitDB(cfg.DBPath); err != nil {
		panic(err)
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	job := model.LoadProfileJobSpec{
		FromDate: *from,
		ToDate:   *to,
		LDCs:     splitList(*ldcs),
		Aggregation: &model.Aggregation{
			Period: *group,
			Stats:  splitList(*stats),
		},
		Export: &model.Export{
			Format:     *format,
			UploadFile: *upload,
		},
		AllowMissingDays: *allowMissing,
		Concurrency: model.ConcurrencyConfig{
			Workers: model.Workers{Fetch: *workers},
		},
	}
	if err := job.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	jobID := uuid.New().String()
	if err := store.SaveJob(jobID, job); err != nil {
		fmt.Fprintf(os.Stderr, "failed to save job: %v\n", err)
		os.Exit(1)
	}

	if err := p.Run(context.Background(), jobID, job); err != nil {
		fmt.Fprintf(os.Stderr, "job failed: %v\n", err)
		os.Exit(1)
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
