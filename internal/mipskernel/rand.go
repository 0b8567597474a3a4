package mipskernel

import (
	"math/rand"
	"time"
)

// Rand is the single seedable random source an index draws from for
// projection vectors, permutations, and k-means initialization. Wrapping
// math/rand.Rand (rather than the package-level funcs, which the teacher's
// C++ original mixed with raw rand()) keeps every draw reproducible under a
// fixed seed and safe to hold per-index.
type Rand struct {
	r *rand.Rand
}

// NewRand builds a seeded source. A seed of 0 is treated as "use entropy"
// so callers that zero-value a config still get usable randomness.
func NewRand(seed int64) *Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Rand{r: rand.New(rand.NewSource(seed))}
}

func (r *Rand) Intn(n int) int       { return r.r.Intn(n) }
func (r *Rand) Float32() float32     { return r.r.Float32() }
func (r *Rand) NormFloat64() float64 { return r.r.NormFloat64() }

// StdNormal draws a sample from N(0,1), used for ALSH projection vectors.
func (r *Rand) StdNormal() float32 { return float32(r.r.NormFloat64()) }

// Uniform draws a sample from U(low, high), used for ALSH offsets.
func (r *Rand) Uniform(low, high float32) float32 {
	return low + r.r.Float32()*(high-low)
}

// Perm returns a uniformly random permutation of [0,n), used by the
// subspace-quantization index to shuffle coordinate axes before tiling.
func (r *Rand) Perm(n int) []int { return r.r.Perm(n) }
