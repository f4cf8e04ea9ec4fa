package runs

import (
	"database/sql"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/mmrzaf/mlpractice/internal/domain"
)

type PostgresRepository struct {
	dsn string
	db  *sql.DB
}

func NewPostgresRepository(dsn string) *PostgresRepository {
	return &PostgresRepository{dsn: strings.TrimSpace(dsn)}
}

func (r *PostgresRepository) Init() error {
	if r.dsn == "" {
		return domain.InvalidArgumentf("runs db dsn is required")
	}
	db, err := sql.Open("postgres", r.dsn)
	if err != nil {
		return errors.Wrapf(err, "open runs db %s", RedactDSN(r.dsn))
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return errors.Wrapf(err, "ping runs db %s", RedactDSN(r.dsn))
	}
	r.db = db
	return r.applyMigrations()
}

func (r *PostgresRepository) DB() *sql.DB { return r.db }

func (r *PostgresRepository) applyMigrations() error {
	if _, err := r.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`); err != nil {
		return errors.Wrap(err, "create schema_migrations")
	}
	var cur int
	if err := r.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&cur); err != nil {
		return errors.Wrap(err, "read schema version")
	}

	type mig struct {
		v  int
		up func(*sql.DB) error
	}
	migs := []mig{
		{1, migrateV1RunsPG},
		{2, migrateV2RunsStatusIndexPG},
	}

	for _, m := range migs {
		if cur >= m.v {
			continue
		}
		if err := m.up(r.db); err != nil {
			return errors.Wrapf(err, "migration %d failed", m.v)
		}
		if _, err := r.db.Exec(`INSERT INTO schema_migrations(version) VALUES ($1)`, m.v); err != nil {
			return errors.Wrapf(err, "record migration %d", m.v)
		}
		cur = m.v
	}
	return nil
}

func migrateV1RunsPG(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed BIGINT NOT NULL,
		output_dir TEXT NOT NULL,
		counts TEXT NOT NULL,
		config_hash TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ,
		stats TEXT,
		error TEXT
	)`)
	return err
}

func migrateV2RunsStatusIndexPG(db *sql.DB) error {
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_runs_status_started ON runs(status, started_at DESC)`)
	return err
}

func (r *PostgresRepository) Create(run *domain.Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	counts, stats, err := encodeRun(run)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`
	INSERT INTO runs (`+runColumns+`)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		run.ID, run.Seed, run.OutputDir, counts, run.ConfigHash, run.Status,
		run.StartedAt.UTC(), run.CompletedAt, stats, run.Error,
	)
	return errors.Wrapf(err, "insert run %s", run.ID)
}

func (r *PostgresRepository) Update(run *domain.Run) error {
	_, stats, err := encodeRun(run)
	if err != nil {
		return err
	}

	res, err := r.db.Exec(`
	UPDATE runs SET
		status = $1, completed_at = $2, stats = $3, error = $4
	WHERE id = $5`,
		run.Status, run.CompletedAt, stats, run.Error, run.ID,
	)
	if err != nil {
		return errors.Wrapf(err, "update run %s", run.ID)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Wrapf(ErrRunNotFound, "%s", run.ID)
	}
	return nil
}

func (r *PostgresRepository) Get(id string) (*domain.Run, error) {
	run, err := r.scan(r.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = $1`, id))
	if errors.Is(err, ErrRunNotFound) {
		return nil, errors.Wrapf(ErrRunNotFound, "%s", id)
	}
	return run, err
}

func (r *PostgresRepository) List(limit int, status string) ([]*domain.Run, error) {
	if limit <= 0 {
		limit = 50
	}

	var (
		rows *sql.Rows
		err  error
	)
	if status != "" {
		rows, err = r.db.Query(`
		SELECT `+runColumns+`
		FROM runs
		WHERE status = $1
		ORDER BY started_at DESC
		LIMIT $2`, status, limit)
	} else {
		rows, err = r.db.Query(`
		SELECT `+runColumns+`
		FROM runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	}
	if err != nil {
		return nil, errors.Wrap(err, "list runs")
	}
	defer rows.Close()

	var out []*domain.Run
	for rows.Next() {
		run, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *PostgresRepository) scan(sc rowScanner) (*domain.Run, error) {
	var startedAt time.Time
	var completedAt sql.NullTime
	return scanRun(sc, &startedAt, &completedAt, func(run *domain.Run) error {
		run.StartedAt = startedAt
		if completedAt.Valid {
			t := completedAt.Time
			run.CompletedAt = &t
		}
		return nil
	})
}
