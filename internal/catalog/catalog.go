// Package catalog runs every registered dataset generator against a single
// random stream, in registration order.
package catalog

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mmrzaf/mlpractice/internal/domain"
	"github.com/mmrzaf/mlpractice/internal/logging"
	"github.com/mmrzaf/mlpractice/internal/registry"
	"github.com/mmrzaf/mlpractice/internal/stream"
	"github.com/mmrzaf/mlpractice/internal/validation"
)

// Catalog runs every registered generator in a fixed order on one stream.
type Catalog struct {
	genRegistry *registry.GeneratorRegistry
	logger      *logging.Logger
}

func New(genRegistry *registry.GeneratorRegistry, logger *logging.Logger) *Catalog {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Catalog{genRegistry: genRegistry, logger: logger.WithComponent("catalog")}
}

// Result holds every dataset of a run, all generated before anything is
// written.
type Result struct {
	Seed     int64
	Order    []string
	Datasets map[string]*domain.Dataset
	// Draws is how many words the run consumed from its stream.
	Draws uint64
}

// Resolve fills in defaults for datasets missing from counts and rejects
// out-of-range counts or names that are not registered.
func (c *Catalog) Resolve(counts map[string]int64) (map[string]int64, error) {
	resolved := c.genRegistry.DefaultCounts()
	for name, n := range counts {
		if _, ok := resolved[name]; !ok {
			return nil, domain.InvalidArgumentf("unknown dataset: %s", name)
		}
		if err := domain.CheckCountRange(name, n); err != nil {
			return nil, err
		}
		resolved[name] = n
	}
	return resolved, nil
}

// Generate builds all datasets from one stream seeded with seed. Counts are
// validated before the stream exists, so a rejected call draws nothing.
func (c *Catalog) Generate(seed int64, counts map[string]int64) (*Result, error) {
	resolved, err := c.Resolve(counts)
	if err != nil {
		return nil, err
	}

	order := c.genRegistry.List()
	s := stream.New(seed)
	res := &Result{
		Seed:     seed,
		Order:    order,
		Datasets: make(map[string]*domain.Dataset, len(order)),
	}

	for _, name := range order {
		gen, err := c.genRegistry.Get(name)
		if err != nil {
			return nil, err
		}
		started := time.Now()
		ds, err := gen.Generate(int(resolved[name]), s)
		if err != nil {
			return nil, errors.Wrapf(err, "generate %s", name)
		}
		if err := validation.ValidateDataset(ds); err != nil {
			return nil, errors.Wrapf(err, "generate %s", name)
		}
		res.Datasets[name] = ds

		rows, cols := ds.Shape()
		c.logger.Debugw("dataset.generated", map[string]any{
			"dataset":     name,
			"rows":        rows,
			"columns":     cols,
			"duration_ms": time.Since(started).Milliseconds(),
		})
	}

	res.Draws = s.Draws()
	return res, nil
}
