package generators

import (
	"math"

	"github.com/mmrzaf/mlpractice/internal/domain"
	"github.com/mmrzaf/mlpractice/internal/stream"
)

const spamRate = 0.3

var spamSchema = domain.Schema{
	Name: domain.EmailSpam,
	Columns: []domain.Column{
		{Name: "email_id", Type: domain.ColumnTypeInt, Bounds: domain.AtLeast(1)},
		{Name: "email_length", Type: domain.ColumnTypeInt, Bounds: domain.Between(10, 2000)},
		{Name: "num_links", Type: domain.ColumnTypeInt, Bounds: domain.Between(0, 20)},
		{Name: "num_images", Type: domain.ColumnTypeInt, Bounds: domain.Between(0, 10)},
		{Name: "caps_ratio", Type: domain.ColumnTypeFloat, Bounds: domain.Between(0, 1), Precision: 3},
		{Name: "exclamation_marks", Type: domain.ColumnTypeInt, Bounds: domain.Between(0, 15)},
		{Name: "spam_words", Type: domain.ColumnTypeInt, Bounds: domain.Between(0, 20)},
		{Name: "is_spam", Type: domain.ColumnTypeInt, Bounds: domain.Between(0, 1)},
	},
}

// emailProfile holds the per-class generation parameters.
type emailProfile struct {
	meanLength   float64
	links        float64
	images       float64
	capsAlpha    float64
	capsBeta     float64
	exclamations float64
	spamWords    float64
}

var (
	spamProfile = emailProfile{meanLength: 200, links: 5, images: 3, capsAlpha: 2, capsBeta: 3, exclamations: 3, spamWords: 8}
	hamProfile  = emailProfile{meanLength: 500, links: 1, images: 0.5, capsAlpha: 1, capsBeta: 9, exclamations: 0.3, spamWords: 1}
)

// EmailSpamGenerator draws a 30/70 spam/ham label per row and then the
// features from that class's profile.
type EmailSpamGenerator struct{}

func (g *EmailSpamGenerator) Schema() domain.Schema { return cloneSchema(spamSchema) }

func (g *EmailSpamGenerator) DefaultCount() int { return 2000 }

// Generate draws the label of each row first and then every feature from the
// distribution that label selects. Features never influence the label.
func (g *EmailSpamGenerator) Generate(n int, s *stream.Stream) (*domain.Dataset, error) {
	if err := CheckCount(domain.EmailSpam, n); err != nil {
		return nil, err
	}

	sc := spamSchema
	ds := domain.NewDataset(cloneSchema(sc), n)

	for i := 0; i < n; i++ {
		label := s.Bernoulli(spamRate)
		p := hamProfile
		if label == 1 {
			p = spamProfile
		}

		length := clip(s.Exponential(p.meanLength), bounds(sc, "email_length"))
		links := clipInt(s.Poisson(p.links), bounds(sc, "num_links"))
		images := clipInt(s.Poisson(p.images), bounds(sc, "num_images"))
		caps := clip(s.Beta(p.capsAlpha, p.capsBeta), bounds(sc, "caps_ratio"))
		exclamations := clipInt(s.Poisson(p.exclamations), bounds(sc, "exclamation_marks"))
		words := clipInt(s.Poisson(p.spamWords), bounds(sc, "spam_words"))

		ds.Append(domain.Record{
			int64(i + 1),
			int64(math.Trunc(length)),
			links,
			images,
			round(caps, 3),
			exclamations,
			words,
			label,
		})
	}

	return ds, nil
}
