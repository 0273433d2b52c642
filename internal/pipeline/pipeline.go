package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"load-profile-pipeline/internal/config"
	"load-profile-pipeline/internal/fetch"
	"load-profile-pipeline/internal/model"
	"load-profile-pipeline/internal/parse"
	"load-profile-pipeline/internal/store"
	"load-profile-pipeline/internal/summarize"
	"load-profile-pipeline/pkg/utils"
)

// Pipeline wires the fetch, parse, summarize and export stages and runs
// them for submitted jobs. Data flows strictly forward; each stage owns the
// artifacts it produces.
type Pipeline struct {
	Fetcher *fetch.Fetcher
	Codes   parse.CodeTable
	Outputs *utils.OutputManager
}

// New builds a Pipeline from process configuration.
func New(cfg *config.Config) (*Pipeline, error) {
	cache, err := fetch.NewCache(cfg.CacheDir)
	if err != nil {
		return nil, err
	}
	codes, err := parse.LoadCodeTable(cfg.CodesPath)
	if err != nil {
		return nil, &model.ConfigError{Field: "codesPath", Reason: err.Error()}
	}
	return &Pipeline{
		Fetcher: fetch.New(cfg.BaseURL, cache),
		Codes:   codes,
		Outputs: utils.NewOutputManager(cfg.OutputDir),
	}, nil
}

// ------------------- Pipeline Runner -------------------

// Run executes one job: fetch every (LDC, day) file in the range, normalize
// them, summarize, and export. The summarizer stage is all-or-nothing: a
// failed file fails the whole window instead of producing partial summaries,
// unless the job explicitly allows days the provider never published.
func (p *Pipeline) Run(ctx context.Context, jobID string, job model.LoadProfileJobSpec) (err error) {
	start := time.Now()
	fmt.Printf("🚀 Starting load profile job: %s\n", jobID)

	store.UpdateJobStatus(jobID, "running")
	defer func() {
		if err != nil {
			store.UpdateJobStatus(jobID, "failed")
			store.SaveJobError(jobID, err)
		}
	}()

	if err = job.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, utils.ParseDuration(job.Concurrency.JobTimeout))
	defer cancel()

	from, to := job.Range()
	ldcs := job.EffectiveLDCs()

	// --- FETCH STAGE ---
	store.UpdateJobStatus(jobID, "fetching")
	fmt.Printf("📥 Fetching %s..%s for %v\n", job.FromDate, job.ToDate, ldcs)

	files, failures := p.Fetcher.FetchRange(ctx, from, to, ldcs, job.Concurrency.Workers.Fetch)
	if len(failures) > 0 {
		if hard := hardFailures(failures, job.AllowMissingDays); len(hard) > 0 {
			return fmt.Errorf("fetch failed for %d file(s): %s", len(hard), joinFailures(hard))
		}
		for _, f := range failures {
			fmt.Printf("⚠️ Fetch: no data published for %s %s\n", f.LDC, f.Day.Format("2006-01-02"))
			store.SaveJobError(jobID, fmt.Errorf("missing day tolerated: %s", f))
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("no data retrieved for %s..%s", job.FromDate, job.ToDate)
	}

	// --- PARSE STAGE ---
	store.UpdateJobStatus(jobID, "parsing")
	opts := parse.Options{
		MalformedThreshold: job.Threshold(),
		AggregateDSTHour:   true,
	}

	var samples []model.LoadSample
	var warnings []model.RowWarning
	totalRows, skippedRows := 0, 0
	for _, file := range files {
		res, perr := parse.ParseFile(file, p.Codes, opts)
		if perr != nil {
			err = perr
			return err
		}
		samples = append(samples, res.Samples...)
		warnings = append(warnings, res.Warnings...)
		totalRows += res.TotalRows
		skippedRows += res.Skipped
	}
	fmt.Printf("🔍 Parse Summary: %d rows in, %d normalized, %d skipped\n", totalRows, totalRows-skippedRows, skippedRows)
	if len(warnings) > 0 {
		if serr := store.SaveParseWarnings(jobID, warnings); serr != nil {
			fmt.Printf("⚠️ Failed to save parse warnings: %v\n", serr)
		}
	}

	// --- SUMMARIZE STAGE ---
	store.UpdateJobStatus(jobID, "summarizing")
	summaries, err := summarize.Summarize(samples, job.Aggregation)
	if err != nil {
		return err
	}
	findings := summarize.AssessQuality(samples)
	fmt.Printf("📊 Summarize Summary: %d summary rows, %d quality findings\n", len(summaries), len(findings))

	if err = store.SaveSummaryRows(jobID, summaries); err != nil {
		return fmt.Errorf("failed to save summaries: %w", err)
	}
	if len(findings) > 0 {
		if serr := store.SaveQualityFindings(jobID, findings); serr != nil {
			fmt.Printf("⚠️ Failed to save quality findings: %v\n", serr)
		}
	}

	// --- EXPORT STAGE ---
	store.UpdateJobStatus(jobID, "exporting")
	paths, err := p.Export(jobID, job, summaries, samples)
	if err != nil {
		return err
	}
	for _, path := range paths {
		fmt.Printf("💾 Export: wrote %s\n", path)
	}

	store.UpdateJobStatus(jobID, "completed")
	fmt.Printf("🏁 Job %s completed in %v\n", jobID, time.Since(start))
	return nil
}

// hardFailures filters out tolerated missing-day failures.
func hardFailures(failures []fetch.Failure, allowMissing bool) []fetch.Failure {
	if !allowMissing {
		return failures
	}
	var hard []fetch.Failure
	for _, f := range failures {
		if !model.IsPermanentRetrieval(f.Err) {
			hard = append(hard, f)
		}
	}
	return hard
}

func joinFailures(failures []fetch.Failure) string {
	parts := make([]string, len(failures))
	for i, f := range failures {
		parts[i] = f.String()
	}
	return strings.Join(parts, "; ")
}
