package validation

import (
	"encoding/json"
	"math"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/mmrzaf/mlpractice/internal/domain"
	"github.com/mmrzaf/mlpractice/internal/registry"
)

type Validator struct {
	genRegistry *registry.GeneratorRegistry
}

func NewValidator(genRegistry *registry.GeneratorRegistry) *Validator {
	return &Validator{genRegistry: genRegistry}
}

// identifier validation: dataset names become file names, so only plain
// snake_case identifiers are accepted.
var (
	identRe       = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	reservedWords = map[string]struct{}{
		"all": {}, "and": {}, "as": {}, "by": {}, "create": {}, "delete": {},
		"drop": {}, "from": {}, "group": {}, "insert": {}, "into": {}, "null": {},
		"or": {}, "order": {}, "select": {}, "table": {}, "update": {},
		"user": {}, "where": {},
	}
)

func IsValidIdentifier(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if !identRe.MatchString(s) {
		return false
	}
	if _, ok := reservedWords[strings.ToLower(s)]; ok {
		return false
	}
	return true
}

// ParseCount turns a decoded JSON/YAML value into a sample count. Negative,
// fractional, non-finite, non-numeric and values above domain.MaxCount are
// invalid arguments.
func ParseCount(dataset string, raw any) (int64, error) {
	var n int64
	switch v := raw.(type) {
	case int:
		n = int64(v)
	case int32:
		n = int64(v)
	case int64:
		n = v
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, domain.NewCountError(dataset, raw, "too large")
		}
		n = int64(v)
	case uint64:
		if v > math.MaxInt64 {
			return 0, domain.NewCountError(dataset, raw, "too large")
		}
		n = int64(v)
	case float32:
		return ParseCount(dataset, float64(v))
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, domain.NewCountError(dataset, raw, "must be finite")
		}
		if v != math.Trunc(v) {
			return 0, domain.NewCountError(dataset, raw, "must be an integer")
		}
		if v > math.MaxInt64 || v < math.MinInt64 {
			return 0, domain.NewCountError(dataset, raw, "too large")
		}
		n = int64(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			n = i
			break
		}
		f, err := v.Float64()
		if err != nil {
			return 0, domain.NewCountError(dataset, raw, "not a number")
		}
		return ParseCount(dataset, f)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, domain.NewCountError(dataset, raw, "must be an integer")
		}
		n = i
	default:
		return 0, domain.NewCountError(dataset, raw, "not a number")
	}
	if err := domain.CheckCountRange(dataset, n); err != nil {
		return 0, err
	}
	return n, nil
}

func (v *Validator) ValidateRunRequest(req *domain.RunRequest) error {
	if req == nil {
		return domain.InvalidArgumentf("run request is required")
	}
	if req.OutputDir != "" {
		if err := ValidateOutputDir(req.OutputDir); err != nil {
			return err
		}
	}
	_, err := v.ResolveCounts(req.Counts)
	return err
}

// ResolveCounts merges overrides onto the registry defaults. Unknown dataset
// names and invalid counts are rejected.
func (v *Validator) ResolveCounts(overrides map[string]any) (map[string]int64, error) {
	counts := v.genRegistry.DefaultCounts()

	names := make([]string, 0, len(overrides))
	for k := range overrides {
		names = append(names, k)
	}
	sort.Strings(names)

	for _, name := range names {
		if !IsValidIdentifier(name) {
			return nil, domain.InvalidArgumentf("invalid dataset name in counts: %q", name)
		}
		if _, err := v.genRegistry.Get(name); err != nil {
			return nil, domain.InvalidArgumentf("unknown dataset in counts: %s", name)
		}
		raw := overrides[name]
		if raw == nil {
			continue
		}
		n, err := ParseCount(name, raw)
		if err != nil {
			return nil, err
		}
		counts[name] = n
	}
	return counts, nil
}

func ValidateOutputDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return domain.InvalidArgumentf("output directory is required")
	}
	if strings.ContainsRune(dir, 0) {
		return domain.InvalidArgumentf("output directory contains a NUL byte")
	}
	return nil
}

// ResolveWithin joins a caller supplied relative directory onto base. An
// empty dir means base itself. Absolute paths and paths that climb out of
// base are invalid arguments.
func ResolveWithin(base, dir string) (string, error) {
	if dir == "" {
		return base, nil
	}
	if err := ValidateOutputDir(dir); err != nil {
		return "", err
	}
	if filepath.IsAbs(dir) || filepath.VolumeName(dir) != "" || strings.HasPrefix(dir, "/") || strings.HasPrefix(dir, `\`) {
		return "", domain.InvalidArgumentf("output directory %q must be relative", dir)
	}
	joined := filepath.Join(base, dir)
	rel, err := filepath.Rel(base, joined)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", domain.InvalidArgumentf("output directory %q escapes %q", dir, base)
	}
	return joined, nil
}

// ValidateDataset checks the schema invariants of generated records: width,
// value types, clip bounds, and that only nullable columns hold nulls.
func ValidateDataset(ds *domain.Dataset) error {
	if ds == nil {
		return errors.New("dataset is nil")
	}
	cols := ds.Schema.Columns
	for r, rec := range ds.Records {
		if len(rec) != len(cols) {
			return errors.Newf("%s row %d: expected %d values, got %d", ds.Name(), r, len(cols), len(rec))
		}
		for c, col := range cols {
			val := rec[c]
			if val == nil {
				if !col.Nullable {
					return errors.Newf("%s row %d: null in non-nullable column %s", ds.Name(), r, col.Name)
				}
				continue
			}
			var f float64
			switch col.Type {
			case domain.ColumnTypeInt:
				i, ok := val.(int64)
				if !ok {
					return errors.Newf("%s row %d column %s: expected int64, got %T", ds.Name(), r, col.Name, val)
				}
				f = float64(i)
			case domain.ColumnTypeFloat:
				x, ok := val.(float64)
				if !ok {
					return errors.Newf("%s row %d column %s: expected float64, got %T", ds.Name(), r, col.Name, val)
				}
				if math.IsNaN(x) {
					return errors.Newf("%s row %d column %s: NaN", ds.Name(), r, col.Name)
				}
				f = x
			default:
				return errors.Newf("%s column %s: unsupported type %s", ds.Name(), col.Name, col.Type)
			}
			if !col.Bounds.Contains(f) {
				return errors.Newf("%s row %d column %s: %v outside [%v, %v]", ds.Name(), r, col.Name, f, col.Bounds.Min, col.Bounds.Max)
			}
		}
	}
	return nil
}
