// Package mlpractice generates three reproducible synthetic datasets for
// machine-learning practice (student exam scores, spam detection and monthly
// sales) and writes them as CSV files.
//
//	paths, err := mlpractice.GenerateDatasets("data/raw")
//
// A fixed seed and fixed counts always produce byte-identical files.
package mlpractice

import (
	"io"

	"github.com/mmrzaf/mlpractice/internal/app"
	"github.com/mmrzaf/mlpractice/internal/config"
	"github.com/mmrzaf/mlpractice/internal/domain"
	"github.com/mmrzaf/mlpractice/internal/logging"
	"github.com/mmrzaf/mlpractice/internal/registry"
)

// Dataset names, also the base names of the written files.
const (
	StudentPerformance = domain.StudentPerformance
	EmailSpam          = domain.EmailSpam
	SalesForecast      = domain.SalesForecast
)

// DefaultSeed seeds the random stream unless WithSeed says otherwise.
const DefaultSeed int64 = config.DefaultSeed

// DefaultOutputDir is used when GenerateDatasets gets an empty directory.
const DefaultOutputDir = config.DefaultOutputDir

// MaxCount is the largest row count accepted for one dataset.
const MaxCount = domain.MaxCount

// ErrInvalidArgument matches, via errors.Is, every rejection of a count or
// output directory.
var ErrInvalidArgument = domain.ErrInvalidArgument

type options struct {
	seed   int64
	counts map[string]any
	logger *logging.Logger
}

type Option func(*options)

func WithSeed(seed int64) Option {
	return func(o *options) { o.seed = seed }
}

// WithCounts overrides the row count of the named datasets. Values may be
// any integer type, or a float or json.Number holding an integer, as they
// come out of a decoded config file. Missing datasets keep their defaults.
func WithCounts(counts map[string]any) Option {
	return func(o *options) {
		if o.counts == nil {
			o.counts = make(map[string]any, len(counts))
		}
		for k, v := range counts {
			o.counts[k] = v
		}
	}
}

// WithLogOutput enables JSON logging to w at the given level.
func WithLogOutput(w io.Writer, level string) Option {
	return func(o *options) { o.logger = logging.NewLoggerWithWriter(level, w) }
}

// GenerateDatasets writes all three datasets with default counts and the
// default seed and returns the file path of each dataset by name.
func GenerateDatasets(outputDir string) (map[string]string, error) {
	return GenerateDatasetsWithOptions(outputDir)
}

// GenerateDatasetsWithOptions is GenerateDatasets with a custom seed, counts
// or logging. Invalid options are reported before any file is written.
func GenerateDatasetsWithOptions(outputDir string, opts ...Option) (map[string]string, error) {
	o := &options{seed: DefaultSeed}
	for _, opt := range opts {
		opt(o)
	}
	if outputDir == "" {
		outputDir = DefaultOutputDir
	}

	svc := app.NewRunService(nil, registry.DefaultGeneratorRegistry(), o.logger, app.Defaults{
		Seed:      o.seed,
		OutputDir: outputDir,
	})

	plan, err := svc.Plan(&domain.RunRequest{Counts: o.counts})
	if err != nil {
		return nil, err
	}
	if _, err := svc.Execute(plan); err != nil {
		return nil, err
	}
	return plan.Files, nil
}
