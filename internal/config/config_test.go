package config

import (
	"os"
	"path/filepath"
	"testing"
)

var configKeys = []string{
	"MLPRACTICE_OUTPUT_DIR", "MLPRACTICE_SEED", "MLPRACTICE_LOG_LEVEL", "MLPRACTICE_LOG_FORMAT",
	"MLPRACTICE_RUNS_DB", "MLPRACTICE_RUNS_DB_KIND", "MLPRACTICE_BIND_ADDR", "MLPRACTICE_PROFILES_DIR",
}

// isolateEnv moves into an empty directory and clears every config variable
// for the duration of the test.
func isolateEnv(t *testing.T) string {
	t.Helper()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	d := t.TempDir()
	if err := os.Chdir(d); err != nil {
		t.Fatal(err)
	}
	for _, k := range configKeys {
		old, had := os.LookupEnv(k)
		_ = os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				_ = os.Setenv(k, old)
			} else {
				_ = os.Unsetenv(k)
			}
		})
	}
	t.Cleanup(func() { _ = os.Chdir(cwd) })
	return d
}

func TestLoad_Defaults(t *testing.T) {
	isolateEnv(t)

	cfg := Load()
	if cfg.OutputDir != "data/raw" {
		t.Fatalf("unexpected output dir %q", cfg.OutputDir)
	}
	if cfg.Seed != 42 {
		t.Fatalf("unexpected seed %d", cfg.Seed)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "json" {
		t.Fatalf("unexpected log settings %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.RunsDBKind != "sqlite" {
		t.Fatalf("unexpected runs db kind %q", cfg.RunsDBKind)
	}
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	d := isolateEnv(t)
	if err := os.WriteFile(filepath.Join(d, ".env"), []byte("MLPRACTICE_OUTPUT_DIR=tmp/out\nMLPRACTICE_SEED=7\nMLPRACTICE_LOG_LEVEL=debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Keep the test from leaking .env values into later tests.
	t.Cleanup(func() {
		for _, k := range configKeys {
			_ = os.Unsetenv(k)
		}
	})

	cfg := Load()
	if cfg.OutputDir != "tmp/out" {
		t.Fatalf("expected MLPRACTICE_OUTPUT_DIR from .env, got %q", cfg.OutputDir)
	}
	if cfg.Seed != 7 {
		t.Fatalf("expected MLPRACTICE_SEED from .env, got %d", cfg.Seed)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected MLPRACTICE_LOG_LEVEL from .env, got %q", cfg.LogLevel)
	}
}

func TestLoad_EnvironmentWinsOverDotEnv(t *testing.T) {
	d := isolateEnv(t)
	if err := os.WriteFile(filepath.Join(d, ".env"), []byte("MLPRACTICE_SEED=7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MLPRACTICE_SEED", "99")

	if cfg := Load(); cfg.Seed != 99 {
		t.Fatalf("expected environment seed 99, got %d", cfg.Seed)
	}
}

func TestLoad_InvalidSeedFallsBack(t *testing.T) {
	isolateEnv(t)
	t.Setenv("MLPRACTICE_SEED", "not-a-number")

	if cfg := Load(); cfg.Seed != DefaultSeed {
		t.Fatalf("expected default seed, got %d", cfg.Seed)
	}
}
