package main

import (
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/mmrzaf/mlpractice/internal/api"
	"github.com/mmrzaf/mlpractice/internal/app"
	"github.com/mmrzaf/mlpractice/internal/config"
	"github.com/mmrzaf/mlpractice/internal/infra/repos/runs"
	"github.com/mmrzaf/mlpractice/internal/logging"
	"github.com/mmrzaf/mlpractice/internal/profile"
	"github.com/mmrzaf/mlpractice/internal/registry"
)

func main() {
	cfg := config.Load()

	profilesDir := flag.String("profiles-dir", cfg.ProfilesDir, "Profiles directory")
	runsDB := flag.String("db", cfg.RunsDBPath, "Runs database path or DSN")
	runsDBKind := flag.String("db-kind", cfg.RunsDBKind, "Runs database kind (sqlite|postgres)")
	outputDir := flag.String("output-dir", cfg.OutputDir, "Default output directory")
	seed := flag.Int64("seed", cfg.Seed, "Default seed")
	bindAddr := flag.String("bind", cfg.BindAddr, "Bind address")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level")
	logFormat := flag.String("log-format", cfg.LogFormat, "Log format (json|console)")
	flag.Parse()

	base := logging.New(*logLevel, *logFormat, os.Stdout)
	logger := base.WithComponent("api_main")

	runRepo, err := runs.Open(*runsDBKind, *runsDB)
	if err != nil {
		logger.Errorw("startup.failed", map[string]any{"error": err.Error(), "stage": "open_run_repo"})
		os.Exit(1)
	}
	if err := runRepo.Init(); err != nil {
		logger.Errorw("startup.failed", map[string]any{
			"error": err.Error(),
			"stage": "init_run_repo",
			"db":    runs.RedactDSN(*runsDB),
		})
		os.Exit(1)
	}
	defer runRepo.Close()

	genRegistry := registry.DefaultGeneratorRegistry()
	runService := app.NewRunService(runRepo, genRegistry, base, app.Defaults{Seed: *seed, OutputDir: *outputDir})

	handler := api.NewHandler(profile.NewFileRepository(*profilesDir), runService)

	mux := http.NewServeMux()
	handler.Register(mux)

	logger.Infow("startup.listening", map[string]any{"bind": *bindAddr})
	if err := http.ListenAndServe(*bindAddr, loggingMiddleware(base.WithComponent("http"), mux)); err != nil {
		logger.Errorw("startup.failed", map[string]any{"error": err.Error(), "stage": "listen"})
		os.Exit(1)
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		fields := map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      sw.status,
			"duration_ms": time.Since(started).Milliseconds(),
			"remote":      r.RemoteAddr,
		}
		if sw.status >= 500 {
			logger.Errorw("request.completed", fields)
			return
		}
		if sw.status >= 400 {
			logger.Warnw("request.completed", fields)
			return
		}
		logger.Infow("request.completed", fields)
	})
}
