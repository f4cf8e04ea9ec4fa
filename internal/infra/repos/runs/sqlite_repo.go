package runs

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mmrzaf/mlpractice/internal/domain"
)

type SQLiteRepository struct {
	dbPath string
	db     *sql.DB
}

func NewSQLiteRepository(dbPath string) *SQLiteRepository {
	return &SQLiteRepository{dbPath: dbPath}
}

func (r *SQLiteRepository) Init() error {
	if strings.TrimSpace(r.dbPath) == "" {
		return domain.InvalidArgumentf("runs db path is required")
	}
	if r.dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(r.dbPath), 0o755); err != nil {
			return errors.Wrapf(err, "create runs db directory for %s", r.dbPath)
		}
	}

	db, err := sql.Open("sqlite3", r.dbPath)
	if err != nil {
		return errors.Wrapf(err, "open runs db %s", r.dbPath)
	}
	r.db = db

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		output_dir TEXT NOT NULL,
		counts TEXT NOT NULL,
		config_hash TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		completed_at TIMESTAMP,
		stats TEXT,
		error TEXT
	)`

	if _, err := r.db.Exec(createTableSQL); err != nil {
		return errors.Wrap(err, "create runs table")
	}
	return nil
}

func (r *SQLiteRepository) DB() *sql.DB { return r.db }

func (r *SQLiteRepository) Create(run *domain.Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	counts, stats, err := encodeRun(run)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO runs (` + runColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		run.ID, run.Seed, run.OutputDir, counts, run.ConfigHash, run.Status,
		formatTime(run.StartedAt), formatTimePtr(run.CompletedAt),
		stats, run.Error,
	)
	return errors.Wrapf(err, "insert run %s", run.ID)
}

func (r *SQLiteRepository) Update(run *domain.Run) error {
	_, stats, err := encodeRun(run)
	if err != nil {
		return err
	}

	query := `
		UPDATE runs SET
			status = ?, completed_at = ?, stats = ?, error = ?
		WHERE id = ?
	`

	res, err := r.db.Exec(query, run.Status, formatTimePtr(run.CompletedAt), stats, run.Error, run.ID)
	if err != nil {
		return errors.Wrapf(err, "update run %s", run.ID)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Wrapf(ErrRunNotFound, "%s", run.ID)
	}
	return nil
}

func (r *SQLiteRepository) Get(id string) (*domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ?`

	run, err := r.scan(r.db.QueryRow(query, id))
	if errors.Is(err, ErrRunNotFound) {
		return nil, errors.Wrapf(ErrRunNotFound, "%s", id)
	}
	return run, err
}

func (r *SQLiteRepository) List(limit int, status string) ([]*domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`

	args := make([]any, 0)
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}

	query += " ORDER BY started_at DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list runs")
	}
	defer rows.Close()

	out := make([]*domain.Run, 0)
	for rows.Next() {
		run, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}

	return out, rows.Err()
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) scan(sc rowScanner) (*domain.Run, error) {
	var startedAtStr string
	var completedAtStr sql.NullString
	return scanRun(sc, &startedAtStr, &completedAtStr, func(run *domain.Run) error {
		t, err := time.Parse(time.RFC3339Nano, startedAtStr)
		if err != nil {
			return errors.Wrapf(err, "parse started_at of run %s", run.ID)
		}
		run.StartedAt = t
		if completedAtStr.Valid {
			t, err := time.Parse(time.RFC3339Nano, completedAtStr.String)
			if err != nil {
				return errors.Wrapf(err, "parse completed_at of run %s", run.ID)
			}
			run.CompletedAt = &t
		}
		return nil
	})
}

// Fixed-width so that ORDER BY started_at sorts chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
