package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"

	"load-profile-pipeline/internal/model"
	"load-profile-pipeline/internal/pipeline"
	"load-profile-pipeline/internal/store"
)

// Scheduler refreshes the previous day's load profiles on a daily timer.
// Missing days are tolerated: the provider publishes with a lag, and the
// next run picks them up from the archive.
type Scheduler struct {
	Pipeline *pipeline.Pipeline
	At       string // daily run time, "HH:MM" in UTC

	scheduler *gocron.Scheduler
}

func New(p *pipeline.Pipeline, at string) *Scheduler {
	return &Scheduler{Pipeline: p, At: at}
}

// Start registers the daily refresh and runs it asynchronously.
func (s *Scheduler) Start() error {
	s.scheduler = gocron.NewScheduler(time.UTC)

	_, err := s.scheduler.Every(1).Day().At(s.At).Do(s.runDaily)
	if err != nil {
		return fmt.Errorf("failed to schedule daily refresh: %w", err)
	}

	fmt.Printf("⏰ Daily refresh scheduled at %s UTC\n", s.At)
	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) runDaily() {
	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format(model.DateLayout)
	job := model.LoadProfileJobSpec{
		FromDate:         yesterday,
		ToDate:           yesterday,
		AllowMissingDays: true,
	}

	jobID := uuid.New().String()
	if err := store.SaveJob(jobID, job); err != nil {
		fmt.Printf("❌ Scheduled refresh: failed to save job: %v\n", err)
		return
	}

	fmt.Printf("⏰ Scheduled refresh: job %s for %s\n", jobID, yesterday)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := s.Pipeline.Run(ctx, jobID, job); err != nil {
		fmt.Printf("❌ Scheduled refresh failed: %v\n", err)
	}
}

// Stop halts the timer. A refresh in flight finishes on its own.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
