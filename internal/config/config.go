// Package config loads runtime configuration from the environment, with
// an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs to start.
type Config struct {
	Port     string
	LogLevel string

	GeminiAPIKey  string
	GeminiBaseURL string
	GeminiModel   string

	MaxUploadSizeBytes int64
	ExtractCallTimeout time.Duration
	MaskExtraTerms     []string

	FXBaseURL string
	JobTTL    time.Duration
}

// Load reads configuration from the environment. A missing .env file is
// not an error; explicit environment variables always win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		FXBaseURL:     getEnv("FX_BASE_URL", "https://api.frankfurter.app"),
	}

	var err error
	if cfg.MaxUploadSizeBytes, err = getEnvInt64("MAX_UPLOAD_SIZE_BYTES", 15<<20); err != nil {
		return nil, err
	}
	if cfg.ExtractCallTimeout, err = getEnvDuration("EXTRACT_CALL_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.JobTTL, err = getEnvDuration("JOB_TTL", 30*time.Minute); err != nil {
		return nil, err
	}

	if terms := os.Getenv("MASK_EXTRA_TERMS"); terms != "" {
		for _, t := range strings.Split(terms, ",") {
			if t = strings.TrimSpace(t); t != "" {
				cfg.MaskExtraTerms = append(cfg.MaskExtraTerms, t)
			}
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
