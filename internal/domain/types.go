package domain

import (
	"encoding/json"
	"math"
	"time"
)

type ColumnType string

const (
	ColumnTypeInt   ColumnType = "int"
	ColumnTypeFloat ColumnType = "float"
)

// Bounds are inclusive clip bounds. An open side is ±Inf.
type Bounds struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

func Unbounded() Bounds {
	return Bounds{Min: math.Inf(-1), Max: math.Inf(1)}
}

func Between(min, max float64) Bounds {
	return Bounds{Min: min, Max: max}
}

func AtLeast(min float64) Bounds {
	return Bounds{Min: min, Max: math.Inf(1)}
}

func (b Bounds) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// MarshalJSON writes open sides as null; encoding/json rejects ±Inf.
func (b Bounds) MarshalJSON() ([]byte, error) {
	out := struct {
		Min *float64 `json:"min"`
		Max *float64 `json:"max"`
	}{}
	if !math.IsInf(b.Min, 0) {
		out.Min = &b.Min
	}
	if !math.IsInf(b.Max, 0) {
		out.Max = &b.Max
	}
	return json.Marshal(out)
}

type Column struct {
	Name      string     `json:"name" yaml:"name"`
	Type      ColumnType `json:"type" yaml:"type"`
	Nullable  bool       `json:"nullable,omitempty" yaml:"nullable,omitempty"`
	Bounds    Bounds     `json:"bounds" yaml:"bounds"`
	Precision int        `json:"precision,omitempty" yaml:"precision,omitempty"`
}

type Schema struct {
	Name    string   `json:"name" yaml:"name"`
	Ordered bool     `json:"ordered,omitempty" yaml:"ordered,omitempty"`
	Columns []Column `json:"columns" yaml:"columns"`
}

func (s Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Index returns the position of the named column, or -1.
func (s Schema) Index(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Record is one row aligned with its schema's column order. Int columns hold
// int64, float columns hold float64, a null is nil.
type Record []any

// MaxCount is the largest row count accepted for any one dataset.
const MaxCount = 10_000_000

// maxCapacityHint bounds the up-front allocation of NewDataset; larger
// datasets grow by append.
const maxCapacityHint = 1 << 16

type Dataset struct {
	Schema  Schema
	Records []Record
}

// NewDataset returns an empty dataset. capacity is only a hint and is
// clamped to [0, 65536].
func NewDataset(schema Schema, capacity int) *Dataset {
	capacity = max(0, min(capacity, maxCapacityHint))
	return &Dataset{Schema: schema, Records: make([]Record, 0, capacity)}
}

func (d *Dataset) Name() string { return d.Schema.Name }

func (d *Dataset) Len() int { return len(d.Records) }

// Shape returns (rows, columns).
func (d *Dataset) Shape() (int, int) {
	return len(d.Records), len(d.Schema.Columns)
}

func (d *Dataset) Append(r Record) {
	d.Records = append(d.Records, r)
}

// Value looks up a cell by column name. ok is false for an unknown column or
// an out-of-range row.
func (d *Dataset) Value(row int, column string) (v any, ok bool) {
	idx := d.Schema.Index(column)
	if idx < 0 || row < 0 || row >= len(d.Records) {
		return nil, false
	}
	return d.Records[row][idx], true
}

// Column returns every value of the named column in row order.
func (d *Dataset) Column(name string) []any {
	idx := d.Schema.Index(name)
	if idx < 0 {
		return nil
	}
	out := make([]any, len(d.Records))
	for i, r := range d.Records {
		out[i] = r[idx]
	}
	return out
}

type Run struct {
	ID          string           `json:"id" yaml:"id"`
	Seed        int64            `json:"seed" yaml:"seed"`
	OutputDir   string           `json:"output_dir" yaml:"output_dir"`
	Counts      map[string]int64 `json:"counts" yaml:"counts"`
	ConfigHash  string           `json:"config_hash" yaml:"config_hash"`
	Status      RunStatus        `json:"status" yaml:"status"`
	StartedAt   time.Time        `json:"started_at" yaml:"started_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Stats       json.RawMessage  `json:"stats,omitempty" yaml:"-"`
	Error       string           `json:"error,omitempty" yaml:"error,omitempty"`
}

type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

type RunStats struct {
	DatasetsGenerated int            `json:"datasets_generated"`
	TotalRows         int64          `json:"total_rows"`
	DurationSeconds   float64        `json:"duration_seconds"`
	Datasets          []DatasetStats `json:"datasets"`
}

type DatasetStats struct {
	Name    string `json:"name" yaml:"name"`
	Rows    int    `json:"rows" yaml:"rows"`
	Columns int    `json:"columns" yaml:"columns"`
	Path    string `json:"path" yaml:"path"`
	SHA256  string `json:"sha256,omitempty" yaml:"sha256,omitempty"`
}

// RunRequest is the input of a generation run. Counts holds raw values as
// decoded from JSON/YAML so fractional input can be rejected; nil entries
// fall back to the dataset defaults.
type RunRequest struct {
	Seed      *int64         `json:"seed,omitempty" yaml:"seed,omitempty"`
	OutputDir string         `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`
	Counts    map[string]any `json:"counts,omitempty" yaml:"counts,omitempty"`
}

type RunPlan struct {
	Seed           int64             `json:"seed" yaml:"seed"`
	OutputDir      string            `json:"output_dir" yaml:"output_dir"`
	ExecutionOrder []string          `json:"execution_order" yaml:"execution_order"`
	ResolvedCounts map[string]int64  `json:"resolved_counts" yaml:"resolved_counts"`
	ConfigHash     string            `json:"config_hash" yaml:"config_hash"`
	Files          map[string]string `json:"files" yaml:"files"`
}

const (
	StudentPerformance = "student_performance"
	EmailSpam          = "email_spam"
	SalesForecast      = "sales_forecast"
)
