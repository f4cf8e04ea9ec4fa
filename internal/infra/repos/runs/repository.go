package runs

import (
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/mmrzaf/mlpractice/internal/domain"
)

var ErrRunNotFound = errors.New("run not found")

// Repository stores run metadata. Generated rows never go through it.
type Repository interface {
	Init() error
	Create(run *domain.Run) error
	Update(run *domain.Run) error
	Get(id string) (*domain.Run, error)
	List(limit int, status string) ([]*domain.Run, error)
	Close() error
}

const (
	KindSQLite   = "sqlite"
	KindPostgres = "postgres"
)

// Open builds the repository for kind without connecting; call Init next.
func Open(kind, dsn string) (Repository, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindSQLite, "sqlite3":
		return NewSQLiteRepository(dsn), nil
	case KindPostgres, "postgresql", "pg":
		return NewPostgresRepository(dsn), nil
	default:
		return nil, domain.InvalidArgumentf("unsupported runs db kind %q", kind)
	}
}

const runColumns = `id, seed, output_dir, counts, config_hash, status, started_at, completed_at, stats, error`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanRun reads one row selected with runColumns. Timestamps come back as
// text on SQLite and as time.Time on Postgres, so the caller supplies the
// decoding for them.
func scanRun(sc rowScanner, started, completed any, finish func(run *domain.Run) error) (*domain.Run, error) {
	var run domain.Run
	var countsStr sql.NullString
	var statsStr sql.NullString
	var errStr sql.NullString

	if err := sc.Scan(
		&run.ID, &run.Seed, &run.OutputDir, &countsStr, &run.ConfigHash, &run.Status,
		started, completed, &statsStr, &errStr,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, errors.Wrap(err, "scan run")
	}
	if countsStr.Valid && countsStr.String != "" {
		if err := json.Unmarshal([]byte(countsStr.String), &run.Counts); err != nil {
			return nil, errors.Wrapf(err, "decode counts of run %s", run.ID)
		}
	}
	if statsStr.Valid && statsStr.String != "" && statsStr.String != "null" {
		run.Stats = json.RawMessage(statsStr.String)
	}
	if errStr.Valid {
		run.Error = errStr.String
	}
	if err := finish(&run); err != nil {
		return nil, err
	}
	return &run, nil
}

func encodeRun(run *domain.Run) (counts string, stats sql.NullString, err error) {
	b, err := json.Marshal(run.Counts)
	if err != nil {
		return "", sql.NullString{}, errors.Wrap(err, "encode counts")
	}
	if len(run.Stats) > 0 {
		stats = sql.NullString{String: string(run.Stats), Valid: true}
	}
	return string(b), stats, nil
}
