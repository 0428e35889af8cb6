// Package config loads gateway settings from the environment. A .env
// file in the working directory is folded in when present, so local
// development needs no exported variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting for the gateway process.
type Config struct {
	// Port the HTTP server listens on.
	Port string

	// SnapshotImage is the sandbox image every run is provisioned from.
	SnapshotImage string

	// AnthropicAPIKey is forwarded into each sandbox for the agent loop.
	AnthropicAPIKey string

	// DBPath is the sqlite database holding deployed agent definitions.
	DBPath string

	// AgentsFile optionally overrides or extends the built-in agents.
	AgentsFile string

	// AllowedOrigins is the CORS allowlist. Entries starting with "*."
	// match any subdomain suffix.
	AllowedOrigins []string

	// SandboxLease bounds how long any one run may hold a sandbox.
	SandboxLease time.Duration

	// ReapSpec is the cron schedule for sweeping leaked sandboxes.
	ReapSpec string

	// HistoryBudget caps conversation history characters stuffed into
	// the prompt.
	HistoryBudget int

	// RateLimit and RateBurst configure the per-client message limiter.
	RateLimit float64
	RateBurst int

	// BackupDir enables periodic database snapshots when set.
	BackupDir       string
	BackupInterval  time.Duration
	BackupRetention int

	// LogDir duplicates logs to dated files when set; LogJSON selects
	// JSON log framing.
	LogDir  string
	LogJSON bool
}

// Load reads configuration from the environment, after folding in .env
// if one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		SnapshotImage:   getEnv("FEATHER_SNAPSHOT_IMAGE", "feather-agent:latest"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		DBPath:          getEnv("DB_PATH", "feather.db"),
		AgentsFile:      os.Getenv("FEATHER_AGENTS_FILE"),
		AllowedOrigins:  splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		SandboxLease:    getEnvDuration("FEATHER_SANDBOX_LEASE", 10*time.Minute),
		ReapSpec:        getEnv("FEATHER_REAP_SPEC", "@every 5m"),
		HistoryBudget:   getEnvInt("FEATHER_HISTORY_BUDGET", 200_000),
		RateLimit:       getEnvFloat("FEATHER_RATE_LIMIT", 1),
		RateBurst:       getEnvInt("FEATHER_RATE_BURST", 5),
		BackupDir:       os.Getenv("FEATHER_BACKUP_DIR"),
		BackupInterval:  getEnvDuration("FEATHER_BACKUP_INTERVAL", 6*time.Hour),
		BackupRetention: getEnvInt("FEATHER_BACKUP_RETENTION", 7),
		LogDir:          os.Getenv("FEATHER_LOG_DIR"),
		LogJSON:         getEnvBool("FEATHER_LOG_JSON", false),
	}

	// ANTHROPIC_API_KEY is deliberately not validated here: its absence
	// surfaces when the first run starts, not at boot.
	if cfg.SandboxLease <= 0 {
		return nil, fmt.Errorf("FEATHER_SANDBOX_LEASE must be positive")
	}
	if cfg.HistoryBudget <= 0 {
		return nil, fmt.Errorf("FEATHER_HISTORY_BUDGET must be positive")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
