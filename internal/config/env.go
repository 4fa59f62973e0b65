package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL        string
	JWTSecret          string
	OrchestratorURL    string
	OrchestratorAPIKey string
	AIAPIKey           string
	GenModel           string
	UpgradeWorkers     int
	UpgradeQueueSize   int
	Port               string
}

// LoadConfig loads the environment variables and returns the config.
// ORCHESTRATOR_URL/ORCHESTRATOR_API_KEY and GEMINI_API_KEY are optional:
// leaving them unset routes coaching-message generation to the next path down
// (local Gemini, then the template fallback).
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		OrchestratorURL:    getEnv("ORCHESTRATOR_URL", ""),
		OrchestratorAPIKey: getEnv("ORCHESTRATOR_API_KEY", ""),
		AIAPIKey:           getEnv("GEMINI_API_KEY", ""),
		GenModel:           getEnv("GEN_MODEL", "gemini-1.5-flash"),
		UpgradeWorkers:     getEnvInt("UPGRADE_WORKERS", 2),
		UpgradeQueueSize:   getEnvInt("UPGRADE_QUEUE_SIZE", 64),
		Port:               getEnv("PORT", "8080"),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET not set")
	}

	return cfg
}

// RemoteCoachConfigured reports whether both the orchestrator endpoint and its
// credential are present. Absence is not an error, it just skips the remote path.
func (c *Config) RemoteCoachConfigured() bool {
	return c.OrchestratorURL != "" && c.OrchestratorAPIKey != ""
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}
