// Package writer exports generated datasets as delimited text files, one file
// per dataset, named <dataset>.csv.
package writer

import (
	"bufio"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/mmrzaf/mlpractice/internal/domain"
	"github.com/mmrzaf/mlpractice/internal/logging"
)

const Extension = ".csv"

type CSVWriter struct {
	dir       string
	delimiter rune
	logger    *logging.Logger
}

type Option func(*CSVWriter)

// WithDelimiter replaces the default comma.
func WithDelimiter(r rune) Option {
	return func(w *CSVWriter) { w.delimiter = r }
}

func NewCSVWriter(dir string, logger *logging.Logger, opts ...Option) *CSVWriter {
	if logger == nil {
		logger = logging.Nop()
	}
	w := &CSVWriter{dir: dir, delimiter: ',', logger: logger.WithComponent("writer")}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// PathFor is where the named dataset is written.
func (w *CSVWriter) PathFor(name string) string {
	return filepath.Join(w.dir, name+Extension)
}

// EnsureDir creates the output directory and its parents if needed.
func (w *CSVWriter) EnsureDir() error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return errors.Wrapf(err, "create output directory %s", w.dir)
	}
	return nil
}

// WriteAll writes datasets in the given order and returns the path of each
// by dataset name. It stops at the first failure; files already written
// stay in place.
func (w *CSVWriter) WriteAll(order []string, datasets map[string]*domain.Dataset) (map[string]string, []domain.DatasetStats, error) {
	if err := w.EnsureDir(); err != nil {
		return nil, nil, err
	}
	paths := make(map[string]string, len(order))
	stats := make([]domain.DatasetStats, 0, len(order))
	for _, name := range order {
		ds, ok := datasets[name]
		if !ok {
			return nil, nil, errors.Newf("dataset %s missing from result", name)
		}
		st, err := w.Write(ds)
		if err != nil {
			return nil, nil, err
		}
		paths[name] = st.Path
		stats = append(stats, st)
	}
	return paths, stats, nil
}

// Write serialises one dataset, overwriting any existing file.
func (w *CSVWriter) Write(ds *domain.Dataset) (domain.DatasetStats, error) {
	path := w.PathFor(ds.Name())
	f, err := os.Create(path)
	if err != nil {
		return domain.DatasetStats{}, errors.Wrapf(err, "create %s", path)
	}

	h := sha256.New()
	if err := w.encode(io.MultiWriter(f, h), ds); err != nil {
		_ = f.Close()
		return domain.DatasetStats{}, errors.Wrapf(err, "write %s", path)
	}
	if err := f.Close(); err != nil {
		return domain.DatasetStats{}, errors.Wrapf(err, "close %s", path)
	}

	rows, cols := ds.Shape()
	st := domain.DatasetStats{
		Name:    ds.Name(),
		Rows:    rows,
		Columns: cols,
		Path:    path,
		SHA256:  hex.EncodeToString(h.Sum(nil)),
	}
	w.logger.Infow("dataset.written", map[string]any{
		"dataset": st.Name,
		"rows":    st.Rows,
		"columns": st.Columns,
		"path":    st.Path,
	})
	return st, nil
}

// Encode writes ds as delimited text to out.
func (w *CSVWriter) Encode(out io.Writer, ds *domain.Dataset) error {
	return w.encode(out, ds)
}

func (w *CSVWriter) encode(out io.Writer, ds *domain.Dataset) error {
	bw := bufio.NewWriter(out)
	cw := csv.NewWriter(bw)
	cw.Comma = w.delimiter

	if err := cw.Write(ds.Schema.ColumnNames()); err != nil {
		return err
	}
	fields := make([]string, len(ds.Schema.Columns))
	for _, rec := range ds.Records {
		for i, col := range ds.Schema.Columns {
			fields[i] = FormatValue(col, rec[i])
		}
		if err := cw.Write(fields); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return bw.Flush()
}

// FormatValue renders a cell. Floats use the column's fixed precision, nulls
// are empty fields.
func FormatValue(col domain.Column, v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		if x == 0 {
			x = 0 // drop the sign of -0
		}
		prec := col.Precision
		if prec <= 0 {
			prec = -1
		}
		return strconv.FormatFloat(x, 'f', prec, 64)
	default:
		return ""
	}
}
