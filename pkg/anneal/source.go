package anneal

import "math/rand/v2"

// Source supplies the random draws consumed by the search. *rand.Rand
// satisfies it.
type Source interface {
	// IntN returns a uniform integer in [0, n). It panics if n <= 0.
	IntN(n int) int
	// Float64 returns a uniform float in [0, 1).
	Float64() float64
}

// NewSource returns a PCG generator seeded from seed. Equal seeds yield equal
// draw sequences on every platform.
func NewSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
}
