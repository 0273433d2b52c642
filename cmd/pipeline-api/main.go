package main

import (
	"fmt"
	"net/http"

	"load-profile-pipeline/internal/api"
	"load-profile-pipeline/internal/config"
	"load-profile-pipeline/internal/observability"
	"load-profile-pipeline/internal/pipeline"
	"load-profile-pipeline/internal/schedule"
	"load-profile-pipeline/internal/store"
)

func main() {
	cfg := config.Load()

	// Init DB
	if err := store.InitDB(cfg.DBPath); err != nil {
		panic(err)
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		panic(err)
	}

	// Prometheus endpoint
	observability.Start(cfg.MetricsPort)

	// Optional daily refresh of yesterday's profiles
	if cfg.ScheduleSpec != "" {
		s := schedule.New(p, cfg.ScheduleSpec)
		if err := s.Start(); err != nil {
			panic(err)
		}
	}

	r := api.NewRouter(p)
	fmt.Printf("🚀 Load profile API listening on %s\n", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, r); err != nil {
		panic(err)
	}
}
