package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	DefaultOutputDir = "data/raw"
	DefaultSeed      = 42
)

type Config struct {
	OutputDir   string
	Seed        int64
	LogLevel    string
	LogFormat   string
	RunsDBPath  string
	RunsDBKind  string
	BindAddr    string
	ProfilesDir string
}

// Load reads the environment, after merging a .env file from the working
// directory if there is one. Variables already set win over .env.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		OutputDir:   getEnv("MLPRACTICE_OUTPUT_DIR", DefaultOutputDir),
		Seed:        getEnvInt64("MLPRACTICE_SEED", DefaultSeed),
		LogLevel:    getEnv("MLPRACTICE_LOG_LEVEL", "info"),
		LogFormat:   getEnv("MLPRACTICE_LOG_FORMAT", "json"),
		RunsDBPath:  getEnv("MLPRACTICE_RUNS_DB", "./mlpractice-runs.sqlite"),
		RunsDBKind:  getEnv("MLPRACTICE_RUNS_DB_KIND", "sqlite"),
		BindAddr:    getEnv("MLPRACTICE_BIND_ADDR", ":8080"),
		ProfilesDir: getEnv("MLPRACTICE_PROFILES_DIR", "profiles"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return n
}
