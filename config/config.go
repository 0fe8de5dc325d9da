// Package config provides configuration for the API server.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the API server configuration.
type Config struct {
	// Server settings
	Host     string
	HTTPPort int

	// Trajectory event log. The default is an in-memory database; run
	// history does not survive a restart.
	DatabaseURL string

	// Executor settings. An empty ExecutorCmd selects the built-in stub.
	ExecutorCmd     string
	ExecutorTimeout time.Duration

	// Workspaces
	WorkspaceDir string

	// Optional path to a rego policy file overriding the built-in one.
	PolicyFile string

	// Logging
	LogLevel string
}

// Load loads configuration from the environment. A .env file in the working
// directory is read first and never overrides variables already set in the
// shell.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Host:            getEnv("HOST", "0.0.0.0"),
		HTTPPort:        getEnvInt("HTTP_PORT", 8000),
		DatabaseURL:     getEnv("DATABASE_URL", "file:trajectories?mode=memory&cache=shared"),
		ExecutorCmd:     getEnv("EXECUTOR_CMD", ""),
		ExecutorTimeout: time.Duration(getEnvInt("EXECUTOR_TIMEOUT_MS", 300000)) * time.Millisecond,
		WorkspaceDir:    getEnv("WORKSPACE_DIR", ""),
		PolicyFile:      getEnv("POLICY_FILE", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
