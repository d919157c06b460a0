package stats

import "math/rand/v2"

// NewRand returns a PCG generator seeded from seed. Every randomized
// component takes its generator from here so runs are reproducible.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

// DeriveSeeds draws n child seeds from seed before any parallel work starts,
// so worker i always sees the same stream regardless of scheduling.
func DeriveSeeds(seed int64, n int) []int64 {
	rng := NewRand(seed)
	out := make([]int64, n)
	for i := range out {
		out[i] = rng.Int64()
	}
	return out
}
