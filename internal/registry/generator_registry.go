package registry

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/mmrzaf/mlpractice/internal/generators"
)

var ErrGeneratorNotFound = errors.New("generator not found")

// GeneratorRegistry keeps dataset generators in registration order, which is
// also the order a catalog run consumes the random stream in.
type GeneratorRegistry struct {
	mu         sync.RWMutex
	generators map[string]generators.Generator
	order      []string
}

func NewGeneratorRegistry() *GeneratorRegistry {
	return &GeneratorRegistry{
		generators: make(map[string]generators.Generator),
	}
}

// Register adds gen under its schema name. Re-registering a name replaces the
// generator but keeps its original position.
func (r *GeneratorRegistry) Register(gen generators.Generator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := gen.Schema().Name
	if _, ok := r.generators[name]; !ok {
		r.order = append(r.order, name)
	}
	r.generators[name] = gen
}

func (r *GeneratorRegistry) Get(name string) (generators.Generator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	gen, ok := r.generators[name]
	if !ok {
		return nil, errors.Wrapf(ErrGeneratorNotFound, "%s", name)
	}
	return gen, nil
}

func (r *GeneratorRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// DefaultCounts returns each registered generator's default sample count.
func (r *GeneratorRegistry) DefaultCounts() map[string]int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int64, len(r.generators))
	for name, gen := range r.generators {
		out[name] = int64(gen.DefaultCount())
	}
	return out
}

func DefaultGeneratorRegistry() *GeneratorRegistry {
	r := NewGeneratorRegistry()
	r.Register(&generators.StudentPerformanceGenerator{})
	r.Register(&generators.EmailSpamGenerator{})
	r.Register(&generators.SalesForecastGenerator{})
	return r
}
