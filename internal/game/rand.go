package game

import "math/rand/v2"

// Rand is the source of randomness for drift, spawn speeds and coincident
// collisions. *rand.Rand satisfies it; tests pass a scripted source.
type Rand interface {
	Float64() float64
}

// defaultRand uses the auto-seeded global generator
type defaultRand struct{}

func (defaultRand) Float64() float64 {
	return rand.Float64()
}

// NewSeededRand returns a reproducible source
func NewSeededRand(seed uint64) Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// uniform maps a sample from r onto [lo, hi)
func uniform(r Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}
