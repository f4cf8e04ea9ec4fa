package generators

import (
	"math"
	"slices"

	"github.com/mmrzaf/mlpractice/internal/domain"
	"github.com/mmrzaf/mlpractice/internal/stream"
	"gonum.org/v1/gonum/floats/scalar"
)

// Generator synthesises one fixed-schema dataset from a shared stream.
type Generator interface {
	Schema() domain.Schema
	DefaultCount() int
	Generate(n int, s *stream.Stream) (*domain.Dataset, error)
}

// CheckCount rejects counts outside [0, domain.MaxCount]. It never touches
// the stream.
func CheckCount(dataset string, n int) error {
	return domain.CheckCountRange(dataset, int64(n))
}

func clip(v float64, b domain.Bounds) float64 {
	return math.Max(b.Min, math.Min(b.Max, v))
}

func clipInt(v int64, b domain.Bounds) int64 {
	return int64(clip(float64(v), b))
}

// round uses half-to-even so exported values match the usual dataframe
// rounding.
func round(v float64, places int) float64 {
	return scalar.RoundEven(v, places)
}

func bounds(schema domain.Schema, column string) domain.Bounds {
	return schema.Columns[schema.Index(column)].Bounds
}

func cloneSchema(s domain.Schema) domain.Schema {
	s.Columns = slices.Clone(s.Columns)
	return s
}
