package generators

import (
	"math"

	"github.com/mmrzaf/mlpractice/internal/domain"
	"github.com/mmrzaf/mlpractice/internal/stream"
)

const (
	studentMissingRate = 0.05
	studentNoiseStd    = 5.0
)

var studentSchema = domain.Schema{
	Name: domain.StudentPerformance,
	Columns: []domain.Column{
		{Name: "student_id", Type: domain.ColumnTypeInt, Bounds: domain.AtLeast(1)},
		{Name: "study_hours", Type: domain.ColumnTypeFloat, Bounds: domain.Between(0, 40), Precision: 1},
		{Name: "attendance", Type: domain.ColumnTypeFloat, Bounds: domain.Between(0, 100), Precision: 1},
		{Name: "previous_grade", Type: domain.ColumnTypeFloat, Bounds: domain.Between(0, 100), Precision: 1},
		{Name: "sleep_hours", Type: domain.ColumnTypeFloat, Nullable: true, Bounds: domain.Between(4, 12), Precision: 1},
		{Name: "extra_activities", Type: domain.ColumnTypeInt, Bounds: domain.Between(0, 10)},
		{Name: "family_support", Type: domain.ColumnTypeInt, Bounds: domain.Between(1, 5)},
		{Name: "exam_score", Type: domain.ColumnTypeFloat, Bounds: domain.Between(0, 100), Precision: 1},
	},
}

// StudentPerformanceGenerator produces exam scores from per-student habits.
// Exactly 5% of sleep_hours cells are left empty.
type StudentPerformanceGenerator struct{}

func (g *StudentPerformanceGenerator) Schema() domain.Schema { return cloneSchema(studentSchema) }

func (g *StudentPerformanceGenerator) DefaultCount() int { return 1000 }

// MissingCount is the number of rows whose sleep_hours is nulled.
func MissingCount(n int) int {
	return int(math.Round(studentMissingRate * float64(n)))
}

func (g *StudentPerformanceGenerator) Generate(n int, s *stream.Stream) (*domain.Dataset, error) {
	if err := CheckCount(domain.StudentPerformance, n); err != nil {
		return nil, err
	}

	sc := studentSchema
	ds := domain.NewDataset(cloneSchema(sc), n)
	sleepIdx := sc.Index("sleep_hours")

	for i := 0; i < n; i++ {
		study := clip(s.Gamma(2, 2), bounds(sc, "study_hours"))
		attendance := clip(s.Beta(8, 2)*100, bounds(sc, "attendance"))
		previous := clip(s.Normal(65, 15), bounds(sc, "previous_grade"))
		sleep := clip(s.Normal(7, 1.5), bounds(sc, "sleep_hours"))
		activities := clipInt(s.Poisson(2), bounds(sc, "extra_activities"))
		support := s.IntRange(1, 5)

		score := 0.3*study +
			0.2*attendance +
			0.4*previous +
			0.5*sleep +
			0.2*float64(support) -
			0.15*float64(activities) +
			s.Normal(0, studentNoiseStd)
		score = clip(score, bounds(sc, "exam_score"))

		ds.Append(domain.Record{
			int64(i + 1),
			round(study, 1),
			round(attendance, 1),
			round(previous, 1),
			round(sleep, 1),
			activities,
			support,
			round(score, 1),
		})
	}

	for _, row := range s.SampleIndices(n, MissingCount(n)) {
		ds.Records[row][sleepIdx] = nil
	}

	return ds, nil
}
