package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the process-level settings shared by the CLI, the API server
// and the scheduler. Job-level options live in model.LoadProfileJobSpec.
type Config struct {
	BaseURL      string
	CacheDir     string
	DBPath       string
	CodesPath    string
	OutputDir    string
	ListenAddr   string
	MetricsPort  string
	FetchWorkers int
	ScheduleSpec string // daily fetch time, HH:MM; empty disables the scheduler
}

// DefaultBaseURL is the provider's public archive root.
const DefaultBaseURL = "http://www2.conectiv.com/cpd/tps/archives"

func Load() *Config {
	// Pick up .env from the repo root or the current directory.
	_ = godotenv.Load("../../.env")
	_ = godotenv.Load()
	return &Config{
		BaseURL:      getEnv("LP_BASE_URL", DefaultBaseURL),
		CacheDir:     getEnv("LP_CACHE_DIR", "cache"),
		DBPath:       getEnv("LP_DB_PATH", "loadprofiles.db"),
		CodesPath:    getEnv("LP_CODES_PATH", "lp_code_mapping.csv"),
		OutputDir:    getEnv("LP_OUTPUT_DIR", "exports"),
		ListenAddr:   getEnv("LP_LISTEN_ADDR", ":8080"),
		MetricsPort:  getEnv("METRICS_PORT", "9090"),
		FetchWorkers: getEnvInt("LP_FETCH_WORKERS", 4),
		ScheduleSpec: getEnv("LP_SCHEDULE", ""),
	}
}

func getEnv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getEnvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}
