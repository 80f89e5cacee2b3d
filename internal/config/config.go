package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"tracto-cpk/internal/aggregate"
	"tracto-cpk/internal/calculator"
	"tracto-cpk/internal/filter"
)

type Config struct {
	Port         string
	AppEnv       string
	LogFile      string
	DatasetPath  string
	DatasetSheet string
	MaxRows      int
	TopN         int
	CostPolicy   calculator.CostPolicy
	OutputDir    string
	UploadDir    string
}

// Load reads a .env file when present, then environment variables with defaults.
func Load() (*Config, error) {
	// .env is optional; real environment variables always win
	_ = godotenv.Load()

	maxRows, err := getInt("MAX_ROWS", filter.DefaultMaxRows)
	if err != nil {
		return nil, err
	}
	topN, err := getInt("TOP_N", aggregate.DefaultTopN)
	if err != nil {
		return nil, err
	}
	if topN < 1 {
		return nil, fmt.Errorf("TOP_N must be at least 1, got %d", topN)
	}
	policy, err := calculator.ParseCostPolicy(os.Getenv("COST_POLICY"))
	if err != nil {
		return nil, fmt.Errorf("COST_POLICY: %w", err)
	}

	return &Config{
		Port:         getEnv("PORT", "9595"),
		AppEnv:       getEnv("APP_ENV", "production"),
		LogFile:      os.Getenv("LOG_FILE"),
		DatasetPath:  getEnv("DATASET_PATH", "Base_final.xlsx"),
		DatasetSheet: os.Getenv("DATASET_SHEET"),
		MaxRows:      maxRows,
		TopN:         topN,
		CostPolicy:   policy,
		OutputDir:    getEnv("OUTPUT_DIR", "output"),
		UploadDir:    getEnv("UPLOAD_DIR", "uploads"),
	}, nil
}

// getEnv reads an environment variable or returns the provided default
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}
