package generators

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/mmrzaf/mlpractice/internal/domain"
	"github.com/mmrzaf/mlpractice/internal/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func assertWithinBounds(t *testing.T, ds *domain.Dataset) {
	t.Helper()
	for r, rec := range ds.Records {
		require.Len(t, rec, len(ds.Schema.Columns))
		for c, col := range ds.Schema.Columns {
			v := rec[c]
			if v == nil {
				require.Truef(t, col.Nullable, "row %d: null in non-nullable column %s", r, col.Name)
				continue
			}
			var f float64
			switch col.Type {
			case domain.ColumnTypeInt:
				iv, ok := v.(int64)
				require.Truef(t, ok, "row %d column %s: want int64, got %T", r, col.Name, v)
				f = float64(iv)
			case domain.ColumnTypeFloat:
				fv, ok := v.(float64)
				require.Truef(t, ok, "row %d column %s: want float64, got %T", r, col.Name, v)
				f = fv
			}
			require.Truef(t, col.Bounds.Contains(f), "row %d column %s: %v outside [%v, %v]", r, col.Name, f, col.Bounds.Min, col.Bounds.Max)
		}
	}
}

func floats(t *testing.T, ds *domain.Dataset, column string) []float64 {
	t.Helper()
	var out []float64
	for _, v := range ds.Column(column) {
		switch x := v.(type) {
		case float64:
			out = append(out, x)
		case int64:
			out = append(out, float64(x))
		}
	}
	return out
}

func hasPrecision(v float64, places int) bool {
	scaled := v * math.Pow10(places)
	return math.Abs(scaled-math.Round(scaled)) < 1e-6
}

func TestStudentPerformance_SchemaAndBounds(t *testing.T) {
	g := &StudentPerformanceGenerator{}
	ds, err := g.Generate(1000, stream.New(42))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"student_id", "study_hours", "attendance", "previous_grade",
		"sleep_hours", "extra_activities", "family_support", "exam_score",
	}, ds.Schema.ColumnNames())
	assert.Equal(t, 1000, ds.Len())
	assertWithinBounds(t, ds)

	for i, rec := range ds.Records {
		assert.Equal(t, int64(i+1), rec[0])
	}
	for _, col := range []string{"study_hours", "attendance", "previous_grade", "sleep_hours", "exam_score"} {
		for _, v := range floats(t, ds, col) {
			require.Truef(t, hasPrecision(v, 1), "%s=%v has more than one decimal", col, v)
		}
	}
}

func TestStudentPerformance_ExactMissingCount(t *testing.T) {
	for _, n := range []int{1, 10, 20, 999, 1000} {
		ds, err := (&StudentPerformanceGenerator{}).Generate(n, stream.New(int64(n)))
		require.NoError(t, err)

		nulls := 0
		for _, v := range ds.Column("sleep_hours") {
			if v == nil {
				nulls++
			}
		}
		assert.Equalf(t, MissingCount(n), nulls, "n=%d", n)
	}
	assert.Equal(t, 50, MissingCount(1000))
	assert.Equal(t, 0, MissingCount(0))
}

func TestStudentPerformance_ScoreTracksPreviousGrade(t *testing.T) {
	ds, err := (&StudentPerformanceGenerator{}).Generate(2000, stream.New(9))
	require.NoError(t, err)
	corr := stat.Correlation(floats(t, ds, "previous_grade"), floats(t, ds, "exam_score"), nil)
	assert.Greater(t, corr, 0.5)
}

func TestEmailSpam_LabelsAndClassMeans(t *testing.T) {
	ds, err := (&EmailSpamGenerator{}).Generate(2000, stream.New(42))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"email_id", "email_length", "num_links", "num_images",
		"caps_ratio", "exclamation_marks", "spam_words", "is_spam",
	}, ds.Schema.ColumnNames())
	assertWithinBounds(t, ds)

	labelIdx := ds.Schema.Index("is_spam")
	var spamLinks, hamLinks, spamWords, hamWords []float64
	for _, rec := range ds.Records {
		label := rec[labelIdx].(int64)
		require.Contains(t, []int64{0, 1}, label)
		links := float64(rec[ds.Schema.Index("num_links")].(int64))
		words := float64(rec[ds.Schema.Index("spam_words")].(int64))
		if label == 1 {
			spamLinks = append(spamLinks, links)
			spamWords = append(spamWords, words)
		} else {
			hamLinks = append(hamLinks, links)
			hamWords = append(hamWords, words)
		}
	}

	require.NotEmpty(t, spamLinks)
	require.NotEmpty(t, hamLinks)
	assert.InDelta(t, 0.3, float64(len(spamLinks))/2000, 0.05)
	assert.Greater(t, stat.Mean(spamLinks, nil), stat.Mean(hamLinks, nil)+1)
	assert.Greater(t, stat.Mean(spamWords, nil), stat.Mean(hamWords, nil)+1)

	for _, v := range floats(t, ds, "caps_ratio") {
		require.True(t, hasPrecision(v, 3))
	}
}

func TestSalesForecast_FloorAndSeasonality(t *testing.T) {
	a, err := (&SalesForecastGenerator{}).Generate(60, stream.New(1))
	require.NoError(t, err)
	b, err := (&SalesForecastGenerator{}).Generate(60, stream.New(2))
	require.NoError(t, err)

	assertWithinBounds(t, a)
	assert.Equal(t, []string{
		"month", "seasonal_factor", "marketing_spend", "competitor_price", "economic_index", "sales",
	}, a.Schema.ColumnNames())

	for _, v := range floats(t, a, "sales") {
		assert.GreaterOrEqual(t, v, 1000.0)
	}
	assert.Equal(t, a.Column("seasonal_factor"), b.Column("seasonal_factor"))
	assert.Equal(t, a.Column("month"), b.Column("month"))
	assert.NotEqual(t, a.Column("sales"), b.Column("sales"))

	for i, rec := range a.Records {
		assert.Equal(t, int64(i+1), rec[0])
	}
	assert.InDelta(t, 1.3, SeasonalFactor(3), 1e-12)
	assert.InDelta(t, 0.7, SeasonalFactor(9), 1e-12)
	assert.InDelta(t, SeasonalFactor(1), SeasonalFactor(13), 1e-12)
}

func TestSalesForecast_EconomicIndexIsOrderDependent(t *testing.T) {
	full, err := (&SalesForecastGenerator{}).Generate(24, stream.New(5))
	require.NoError(t, err)
	head, err := (&SalesForecastGenerator{}).Generate(12, stream.New(5))
	require.NoError(t, err)

	// A shorter run with the same seed is a prefix of the longer one.
	assert.Equal(t, full.Records[:12], head.Records)
}

func TestGenerators_ZeroRows(t *testing.T) {
	for _, g := range []Generator{&StudentPerformanceGenerator{}, &EmailSpamGenerator{}, &SalesForecastGenerator{}} {
		ds, err := g.Generate(0, stream.New(1))
		require.NoError(t, err)
		assert.Equal(t, 0, ds.Len())
		assert.Equal(t, g.Schema(), ds.Schema)
	}
}

func TestGenerators_OutOfRangeCountConsumesNothing(t *testing.T) {
	for _, n := range []int{-1, domain.MaxCount + 1, 1 << 60} {
		for _, g := range []Generator{&StudentPerformanceGenerator{}, &EmailSpamGenerator{}, &SalesForecastGenerator{}} {
			s := stream.New(1)
			ds, err := g.Generate(n, s)
			require.Errorf(t, err, "n=%d", n)
			assert.Nil(t, ds)
			assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
			assert.Zero(t, s.Draws())

			var ce *domain.CountError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, g.Schema().Name, ce.Dataset)
			assert.Equal(t, int64(n), ce.Value)
		}
	}
}

func TestCheckCount_AcceptsMaxCount(t *testing.T) {
	require.NoError(t, CheckCount(domain.EmailSpam, domain.MaxCount))
	require.NoError(t, CheckCount(domain.EmailSpam, 0))
}

func TestGenerators_Reproducible(t *testing.T) {
	run := func() []*domain.Dataset {
		s := stream.New(42)
		var out []*domain.Dataset
		for _, g := range []Generator{&StudentPerformanceGenerator{}, &EmailSpamGenerator{}, &SalesForecastGenerator{}} {
			ds, err := g.Generate(g.DefaultCount(), s)
			require.NoError(t, err)
			out = append(out, ds)
		}
		return out
	}
	assert.Equal(t, run(), run())
}

func TestSchemaIsACopy(t *testing.T) {
	g := &StudentPerformanceGenerator{}
	sc := g.Schema()
	sc.Columns[0].Name = "mutated"
	assert.Equal(t, "student_id", g.Schema().Columns[0].Name)
}
