// Package stream provides the seeded random source shared by the dataset
// generators of one catalog run.
//
// A Stream is not safe for concurrent use. Reproducibility depends on the
// exact order and number of draws, so a stream must be consumed by one
// generator at a time.
package stream

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// Stream is one seeded PCG source shared by every generator in a run. It
// counts the words it hands out. Not safe for concurrent use.
type Stream struct {
	seed  int64
	src   *rand.PCG
	rng   *rand.Rand
	draws uint64
}

// New seeds both PCG state words with seed.
func New(seed int64) *Stream {
	s := &Stream{
		seed: seed,
		src:  rand.NewPCG(uint64(seed), uint64(seed)),
	}
	s.rng = rand.New(s)
	return s
}

func (s *Stream) Seed() int64 { return s.seed }

// Draws is the number of 64-bit words consumed so far.
func (s *Stream) Draws() uint64 { return s.draws }

// Uint64 makes Stream a rand.Source, so every gonum distribution sampled
// through it advances the same sequence.
func (s *Stream) Uint64() uint64 {
	s.draws++
	return s.src.Uint64()
}

// Gamma draws from a gamma distribution with the given shape and scale.
func (s *Stream) Gamma(shape, scale float64) float64 {
	return distuv.Gamma{Alpha: shape, Beta: 1 / scale, Src: s}.Rand()
}

func (s *Stream) Beta(alpha, beta float64) float64 {
	return distuv.Beta{Alpha: alpha, Beta: beta, Src: s}.Rand()
}

func (s *Stream) Normal(mean, stddev float64) float64 {
	return distuv.Normal{Mu: mean, Sigma: stddev, Src: s}.Rand()
}

func (s *Stream) Poisson(lambda float64) int64 {
	return int64(distuv.Poisson{Lambda: lambda, Src: s}.Rand())
}

// Exponential draws from an exponential distribution with the given mean.
func (s *Stream) Exponential(mean float64) float64 {
	return distuv.Exponential{Rate: 1 / mean, Src: s}.Rand()
}

// Bernoulli returns 1 with probability p, otherwise 0.
func (s *Stream) Bernoulli(p float64) int64 {
	return int64(distuv.Bernoulli{P: p, Src: s}.Rand())
}

// IntRange draws a uniform integer in [lo, hi].
func (s *Stream) IntRange(lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	return lo + s.rng.Int64N(hi-lo+1)
}

// SampleIndices returns k distinct indices drawn uniformly from [0, n).
// k is clamped to n.
func (s *Stream) SampleIndices(n, k int) []int {
	if k > n {
		k = n
	}
	if k <= 0 {
		return []int{}
	}
	idx := make([]int, k)
	sampleuv.WithoutReplacement(idx, n, s)
	return idx
}
