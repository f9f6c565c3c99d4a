package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultServerURL is the inference backend used until a session picks its own.
const DefaultServerURL = "https://dominant-usually-oyster.ngrok-free.app"

// Config holds process-level settings. The inference endpoint here is only the
// starting value; each browser session edits its own copy.
type Config struct {
	ListenAddr       string
	DefaultServerURL string
	PredictTimeout   time.Duration
	SessionSecret    string
	SessionTTL       time.Duration
	RedisAddr        string
	ShutdownTimeout  time.Duration
	LogLevel         string
}

// Load reads configuration from the environment, after loading a .env file
// from the working directory when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ListenAddr:       getEnv("LISTEN_ADDR", ":8080"),
		DefaultServerURL: strings.TrimSpace(getEnv("DEFAULT_SERVER_URL", DefaultServerURL)),
		SessionSecret:    getEnv("SESSION_SECRET", "dev-secret"),
		RedisAddr:        strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.PredictTimeout, err = getDuration("PREDICT_TIMEOUT", 120*time.Second); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 12*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("parse %s: duration must be positive, got %s", key, raw)
	}
	return d, nil
}
