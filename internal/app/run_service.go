// Package app wires validation, generation, export and the run ledger into
// the operations exposed by the CLI and the HTTP API.
package app

import (
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mmrzaf/mlpractice/internal/catalog"
	"github.com/mmrzaf/mlpractice/internal/domain"
	"github.com/mmrzaf/mlpractice/internal/hashing"
	"github.com/mmrzaf/mlpractice/internal/infra/repos/runs"
	"github.com/mmrzaf/mlpractice/internal/logging"
	"github.com/mmrzaf/mlpractice/internal/registry"
	"github.com/mmrzaf/mlpractice/internal/validation"
	"github.com/mmrzaf/mlpractice/internal/writer"
)

var ErrLedgerDisabled = errors.New("run ledger is not configured")

// Defaults apply when a request leaves the seed or output directory unset.
type Defaults struct {
	Seed      int64
	OutputDir string
}

type RunService struct {
	runRepo     runs.Repository
	genRegistry *registry.GeneratorRegistry
	validator   *validation.Validator
	catalog     *catalog.Catalog
	defaults    Defaults
	baseLogger  *logging.Logger
	logger      *logging.Logger
}

// NewRunService builds the service. runRepo may be nil, in which case runs
// execute normally but nothing is recorded.
func NewRunService(
	runRepo runs.Repository,
	genRegistry *registry.GeneratorRegistry,
	logger *logging.Logger,
	defaults Defaults,
) *RunService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &RunService{
		runRepo:     runRepo,
		genRegistry: genRegistry,
		validator:   validation.NewValidator(genRegistry),
		catalog:     catalog.New(genRegistry, logger),
		defaults:    defaults,
		baseLogger:  logger,
		logger:      logger.WithComponent("app"),
	}
}

func (s *RunService) Validator() *validation.Validator { return s.validator }

func (s *RunService) Registry() *registry.GeneratorRegistry { return s.genRegistry }

// ConfineOutputDir rewrites a request's output_dir to a path under the
// configured output directory. Callers that do not own the filesystem (the
// HTTP API) go through this before Plan or Run.
func (s *RunService) ConfineOutputDir(req *domain.RunRequest) error {
	if req == nil {
		return nil
	}
	dir, err := validation.ResolveWithin(s.defaults.OutputDir, req.OutputDir)
	if err != nil {
		return errors.Wrap(err, "invalid run request")
	}
	req.OutputDir = dir
	return nil
}

// Plan resolves what a request would produce without generating or writing
// anything.
func (s *RunService) Plan(req *domain.RunRequest) (*domain.RunPlan, error) {
	if err := s.validator.ValidateRunRequest(req); err != nil {
		return nil, errors.Wrap(err, "invalid run request")
	}

	counts, err := s.validator.ResolveCounts(req.Counts)
	if err != nil {
		return nil, errors.Wrap(err, "invalid run request")
	}

	seed := s.defaults.Seed
	if req.Seed != nil {
		seed = *req.Seed
	}
	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = s.defaults.OutputDir
	}
	if err := validation.ValidateOutputDir(outputDir); err != nil {
		return nil, errors.Wrap(err, "invalid run request")
	}

	configHash, err := hashing.HashRunConfig(seed, counts, outputDir)
	if err != nil {
		return nil, errors.Wrap(err, "hash run config")
	}

	order := s.genRegistry.List()
	w := writer.NewCSVWriter(outputDir, nil)
	files := make(map[string]string, len(order))
	for _, name := range order {
		files[name] = w.PathFor(name)
	}

	return &domain.RunPlan{
		Seed:           seed,
		OutputDir:      outputDir,
		ExecutionOrder: order,
		ResolvedCounts: counts,
		ConfigHash:     configHash,
		Files:          files,
	}, nil
}

// Execute generates every dataset for plan and writes the files. Nothing is
// written unless generation of all datasets succeeds.
func (s *RunService) Execute(plan *domain.RunPlan) (*domain.RunStats, error) {
	started := time.Now()

	res, err := s.catalog.Generate(plan.Seed, plan.ResolvedCounts)
	if err != nil {
		return nil, err
	}

	w := writer.NewCSVWriter(plan.OutputDir, s.baseLogger)
	_, datasets, err := w.WriteAll(res.Order, res.Datasets)
	if err != nil {
		return nil, err
	}

	stats := &domain.RunStats{
		DatasetsGenerated: len(datasets),
		Datasets:          datasets,
	}
	for _, d := range datasets {
		stats.TotalRows += int64(d.Rows)
	}
	stats.DurationSeconds = time.Since(started).Seconds()
	return stats, nil
}

// Run plans, executes and records a run. Invalid requests are rejected before
// anything is recorded. The returned run is also returned on execution
// failure so callers can report its id.
func (s *RunService) Run(req *domain.RunRequest) (*domain.Run, error) {
	plan, err := s.Plan(req)
	if err != nil {
		return nil, err
	}

	run := &domain.Run{
		Seed:       plan.Seed,
		OutputDir:  plan.OutputDir,
		Counts:     plan.ResolvedCounts,
		ConfigHash: plan.ConfigHash,
		Status:     domain.RunStatusRunning,
		StartedAt:  time.Now().UTC(),
	}
	if s.runRepo != nil {
		if err := s.runRepo.Create(run); err != nil {
			return nil, errors.Wrap(err, "failed to create run")
		}
	}

	s.logger.Infow("run.started", map[string]any{
		"run_id":      run.ID,
		"seed":        plan.Seed,
		"output_dir":  plan.OutputDir,
		"config_hash": plan.ConfigHash,
	})

	stats, err := s.Execute(plan)
	if err != nil {
		s.logger.Errorw("run.failed", map[string]any{"run_id": run.ID, "error": err.Error()})
		s.updateRunFailed(run, err.Error())
		return run, err
	}

	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return run, errors.Wrap(err, "encode run stats")
	}
	now := time.Now().UTC()
	run.Stats = statsJSON
	run.Status = domain.RunStatusSuccess
	run.CompletedAt = &now

	if s.runRepo != nil {
		if err := s.runRepo.Update(run); err != nil {
			s.logger.Error("Failed to update run %s: %v", run.ID, err)
		}
	}

	s.logger.Infow("run.completed", map[string]any{
		"run_id":           run.ID,
		"datasets":         stats.DatasetsGenerated,
		"total_rows":       stats.TotalRows,
		"duration_seconds": stats.DurationSeconds,
	})
	return run, nil
}

func (s *RunService) updateRunFailed(run *domain.Run, errorMsg string) {
	now := time.Now().UTC()
	run.Status = domain.RunStatusFailed
	run.Error = errorMsg
	run.CompletedAt = &now
	if s.runRepo == nil {
		return
	}
	if err := s.runRepo.Update(run); err != nil {
		s.logger.Error("Failed to update run %s: %v", run.ID, err)
	}
}

func (s *RunService) GetRun(id string) (*domain.Run, error) {
	if s.runRepo == nil {
		return nil, ErrLedgerDisabled
	}
	return s.runRepo.Get(id)
}

func (s *RunService) ListRuns(limit int, status string) ([]*domain.Run, error) {
	if s.runRepo == nil {
		return nil, ErrLedgerDisabled
	}
	if status != "" {
		switch domain.RunStatus(status) {
		case domain.RunStatusRunning, domain.RunStatusSuccess, domain.RunStatusFailed:
		default:
			return nil, domain.InvalidArgumentf("unknown run status %q", status)
		}
	}
	return s.runRepo.List(limit, status)
}

// FileCheck compares a file on disk with the digest recorded for it.
type FileCheck struct {
	Dataset  string `json:"dataset"`
	Path     string `json:"path"`
	Expected string `json:"expected"`
	Actual   string `json:"actual,omitempty"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}

// VerifyRun re-hashes the files of a successful run.
func (s *RunService) VerifyRun(id string) ([]FileCheck, error) {
	run, err := s.GetRun(id)
	if err != nil {
		return nil, err
	}
	if run.Status != domain.RunStatusSuccess || len(run.Stats) == 0 {
		return nil, domain.InvalidArgumentf("run %s has no recorded files (status %s)", id, run.Status)
	}

	var stats domain.RunStats
	if err := json.Unmarshal(run.Stats, &stats); err != nil {
		return nil, errors.Wrapf(err, "decode stats of run %s", id)
	}

	checks := make([]FileCheck, 0, len(stats.Datasets))
	for _, d := range stats.Datasets {
		c := FileCheck{Dataset: d.Name, Path: filepath.Clean(d.Path), Expected: d.SHA256}
		sum, err := hashing.HashFile(c.Path)
		if err != nil {
			c.Error = err.Error()
		} else {
			c.Actual = sum
			c.OK = sum == d.SHA256
		}
		checks = append(checks, c)
	}
	return checks, nil
}
