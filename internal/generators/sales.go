package generators

import (
	"math"

	"github.com/mmrzaf/mlpractice/internal/domain"
	"github.com/mmrzaf/mlpractice/internal/stream"
)

const (
	baseSales         = 10000.0
	salesTrend        = 50.0
	economicStart     = 100.0
	salesNoiseStd     = 1000.0
	seasonalAmplitude = 0.3
)

var salesSchema = domain.Schema{
	Name:    domain.SalesForecast,
	Ordered: true,
	Columns: []domain.Column{
		{Name: "month", Type: domain.ColumnTypeInt, Bounds: domain.AtLeast(1)},
		{Name: "seasonal_factor", Type: domain.ColumnTypeFloat, Bounds: domain.Between(0.7, 1.3), Precision: 2},
		{Name: "marketing_spend", Type: domain.ColumnTypeFloat, Bounds: domain.AtLeast(0), Precision: 2},
		{Name: "competitor_price", Type: domain.ColumnTypeFloat, Bounds: domain.Unbounded(), Precision: 2},
		{Name: "economic_index", Type: domain.ColumnTypeFloat, Bounds: domain.Unbounded(), Precision: 2},
		{Name: "sales", Type: domain.ColumnTypeFloat, Bounds: domain.AtLeast(1000), Precision: 2},
	},
}

// SalesForecastGenerator yields one row per month. Rows depend on the
// previous month's economic index, so row order is part of the output.
type SalesForecastGenerator struct{}

func (g *SalesForecastGenerator) Schema() domain.Schema { return cloneSchema(salesSchema) }

func (g *SalesForecastGenerator) DefaultCount() int { return 60 }

// SeasonalFactor is the fixed annual cycle for a 1-based month index.
func SeasonalFactor(month int) float64 {
	return 1 + seasonalAmplitude*math.Sin(2*math.Pi*float64(month)/12)
}

// Generate emits one row per month in order. economic_index is a random walk,
// so month m depends on every step drawn before it.
func (g *SalesForecastGenerator) Generate(months int, s *stream.Stream) (*domain.Dataset, error) {
	if err := CheckCount(domain.SalesForecast, months); err != nil {
		return nil, err
	}

	sc := salesSchema
	ds := domain.NewDataset(cloneSchema(sc), months)
	economic := economicStart

	for m := 1; m <= months; m++ {
		seasonal := SeasonalFactor(m)
		marketing := s.Gamma(2, 1000)
		competitor := s.Normal(50, 10)
		economic += s.Normal(0, 2)

		sales := baseSales +
			salesTrend*float64(m) +
			baseSales*(seasonal-1) +
			0.5*marketing -
			100*(competitor-50) +
			50*(economic-economicStart) +
			s.Normal(0, salesNoiseStd)
		sales = clip(sales, bounds(sc, "sales"))

		ds.Append(domain.Record{
			int64(m),
			round(seasonal, 2),
			round(marketing, 2),
			round(competitor, 2),
			round(economic, 2),
			round(sales, 2),
		})
	}

	return ds, nil
}
