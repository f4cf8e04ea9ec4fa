package app

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/mmrzaf/mlpractice/internal/domain"
	"github.com/mmrzaf/mlpractice/internal/infra/repos/runs"
	"github.com/mmrzaf/mlpractice/internal/logging"
	"github.com/mmrzaf/mlpractice/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*RunService, string) {
	t.Helper()
	dir := t.TempDir()
	repo := runs.NewSQLiteRepository(filepath.Join(dir, "runs.db"))
	require.NoError(t, repo.Init())
	t.Cleanup(func() { _ = repo.Close() })

	out := filepath.Join(dir, "data", "raw")
	svc := NewRunService(repo, registry.DefaultGeneratorRegistry(), logging.NewLogger("error"), Defaults{Seed: 42, OutputDir: out})
	return svc, out
}

func smallCounts() map[string]any {
	return map[string]any{
		domain.StudentPerformance: 20,
		domain.EmailSpam:          30,
		domain.SalesForecast:      12,
	}
}

func TestPlan_NoSideEffects(t *testing.T) {
	svc, out := newTestService(t)

	plan, err := svc.Plan(&domain.RunRequest{Counts: map[string]any{domain.EmailSpam: 5}})
	require.NoError(t, err)
	assert.Equal(t, int64(42), plan.Seed)
	assert.Equal(t, out, plan.OutputDir)
	assert.Equal(t, []string{domain.StudentPerformance, domain.EmailSpam, domain.SalesForecast}, plan.ExecutionOrder)
	assert.Equal(t, int64(5), plan.ResolvedCounts[domain.EmailSpam])
	assert.Equal(t, int64(1000), plan.ResolvedCounts[domain.StudentPerformance])
	assert.Equal(t, filepath.Join(out, "email_spam.csv"), plan.Files[domain.EmailSpam])
	assert.Len(t, plan.ConfigHash, 64)

	_, err = os.Stat(out)
	assert.True(t, os.IsNotExist(err))

	list, err := svc.ListRuns(0, "")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRun_RecordsSuccessAndVerifies(t *testing.T) {
	svc, out := newTestService(t)

	seed := int64(9)
	run, err := svc.Run(&domain.RunRequest{Seed: &seed, Counts: smallCounts()})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusSuccess, run.Status)
	require.NotNil(t, run.CompletedAt)

	var stats domain.RunStats
	require.NoError(t, json.Unmarshal(run.Stats, &stats))
	assert.Equal(t, 3, stats.DatasetsGenerated)
	assert.Equal(t, int64(62), stats.TotalRows)

	for _, name := range []string{"student_performance.csv", "email_spam.csv", "sales_forecast.csv"} {
		_, err := os.Stat(filepath.Join(out, name))
		require.NoError(t, err)
	}

	stored, err := svc.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusSuccess, stored.Status)
	assert.Equal(t, seed, stored.Seed)
	assert.Equal(t, int64(30), stored.Counts[domain.EmailSpam])

	checks, err := svc.VerifyRun(run.ID)
	require.NoError(t, err)
	require.Len(t, checks, 3)
	for _, c := range checks {
		assert.True(t, c.OK, c.Dataset)
	}

	require.NoError(t, os.WriteFile(filepath.Join(out, "email_spam.csv"), []byte("tampered\n"), 0o644))
	checks, err = svc.VerifyRun(run.ID)
	require.NoError(t, err)
	assert.False(t, checks[1].OK)
}

func TestRun_SameSeedSameBytes(t *testing.T) {
	svc, out := newTestService(t)

	_, err := svc.Run(&domain.RunRequest{Counts: smallCounts()})
	require.NoError(t, err)
	first, err := os.ReadFile(filepath.Join(out, "student_performance.csv"))
	require.NoError(t, err)

	_, err = svc.Run(&domain.RunRequest{Counts: smallCounts()})
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(out, "student_performance.csv"))
	require.NoError(t, err)

	assert.True(t, bytes.Equal(first, second))
}

func TestRun_InvalidRequestRecordsNothing(t *testing.T) {
	svc, out := newTestService(t)

	for _, counts := range []map[string]any{
		{domain.EmailSpam: -1},
		{domain.EmailSpam: 2.5},
		{"weather": 10},
		{domain.StudentPerformance: int64(1) << 60},
		{domain.SalesForecast: domain.MaxCount + 1},
	} {
		_, err := svc.Run(&domain.RunRequest{Counts: counts})
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrInvalidArgument), "%v", counts)
	}

	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err))

	list, err := svc.ListRuns(0, "")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRun_WriteFailureRecordsFailedRun(t *testing.T) {
	svc, _ := newTestService(t)

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	run, err := svc.Run(&domain.RunRequest{OutputDir: filepath.Join(blocker, "out"), Counts: smallCounts()})
	require.Error(t, err)
	require.NotNil(t, run)

	stored, err := svc.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusFailed, stored.Status)
	assert.Contains(t, stored.Error, "create output directory")

	failed, err := svc.ListRuns(10, string(domain.RunStatusFailed))
	require.NoError(t, err)
	assert.Len(t, failed, 1)
}

func TestListRuns_RejectsUnknownStatus(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.ListRuns(0, "paused")
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
}

func TestWithoutLedger(t *testing.T) {
	out := filepath.Join(t.TempDir(), "raw")
	svc := NewRunService(nil, registry.DefaultGeneratorRegistry(), nil, Defaults{Seed: 1, OutputDir: out})

	run, err := svc.Run(&domain.RunRequest{Counts: smallCounts()})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusSuccess, run.Status)

	_, err = svc.GetRun("x")
	assert.True(t, errors.Is(err, ErrLedgerDisabled))
}

func TestConfineOutputDir(t *testing.T) {
	svc, out := newTestService(t)

	req := &domain.RunRequest{OutputDir: "nightly"}
	require.NoError(t, svc.ConfineOutputDir(req))
	assert.Equal(t, filepath.Join(out, "nightly"), req.OutputDir)

	req = &domain.RunRequest{}
	require.NoError(t, svc.ConfineOutputDir(req))
	assert.Equal(t, out, req.OutputDir)

	for _, dir := range []string{"../elsewhere", filepath.Join(t.TempDir(), "abs")} {
		req = &domain.RunRequest{OutputDir: dir}
		err := svc.ConfineOutputDir(req)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrInvalidArgument), dir)
		assert.Equal(t, dir, req.OutputDir)
	}
}
