package mipskernel

import (
	"math"

	"github.com/devraj-iyer/mipsindex/pkg/mipserr"
)

// AugmentationKind selects one of the four MIPS-to-NN reductions. This is a
// tagged variant rather than a virtual-dispatch hierarchy: the teacher's
// C++ original used a base-class Augmentation with virtual extend/
// extend_queries, but four fixed variants need no open extension point.
type AugmentationKind int

const (
	// Shrivastava equalizes augmented-space norms so max inner product
	// becomes min Euclidean distance (Shrivastava & Li, L2-ALSH for MIPS).
	Shrivastava AugmentationKind = iota
	// Neyshabur appends a single "sqrt-complement" coordinate (Neyshabur &
	// Srebro, Simple-LSH for MIPS).
	Neyshabur
	// None rescales database rows by 1/max_norm with no added dimensions.
	None
	// Normalize is None without the pre-scan: the caller guarantees the
	// database is already normalized.
	Normalize
)

// Augmentation is a value object parameterized by the original dimension,
// expansion count m, and (Shrivastava-only) scaling coefficient U. Extend
// and ExtendQueries are pure functions of their input and the frozen max
// norm: the first Extend call scans and freezes max_norm; later Extend
// calls (from Add, after Build) reuse the frozen value so a growing
// database stays in one consistent augmented space.
type Augmentation struct {
	Kind AugmentationKind
	Dim  int
	M    int
	U    float32

	maxNorm    float32
	maxNormSet bool
}

// NewAugmentation validates parameters and returns an augmentation ready to
// Extend a database. Parameter-domain violations are rejected here, at
// construction, per the error-handling design.
func NewAugmentation(kind AugmentationKind, dim int, m int, u float32) (*Augmentation, error) {
	switch kind {
	case Shrivastava:
		if m < 1 {
			return nil, mipserr.ParameterDomain("shrivastava augmentation requires m >= 1, got %d", m)
		}
		if u <= 0 || u >= 1 {
			return nil, mipserr.ParameterDomain("shrivastava augmentation requires U in (0,1), got %v", u)
		}
	case Neyshabur:
		m = 1
	case None, Normalize:
		m = 0
	default:
		return nil, mipserr.ParameterDomain("unknown augmentation kind %d", int(kind))
	}
	if dim < 1 {
		return nil, mipserr.ParameterDomain("augmentation requires dim >= 1, got %d", dim)
	}
	return &Augmentation{Kind: kind, Dim: dim, M: m, U: u}, nil
}

// OutDim is the width of matrices produced by Extend/ExtendQueries.
func (a *Augmentation) OutDim() int { return a.Dim + a.M }

// Extend transforms a raw n×Dim database matrix into an n×(Dim+M) matrix.
// The first call scans for the max norm and freezes it; subsequent calls
// (e.g. from Add) reuse the frozen value so later-added rows land in the
// same augmented space as the ones seen at Build.
func (a *Augmentation) Extend(db *Matrix) *Matrix {
	maxNorm := a.frozenOrScannedMaxNorm(db)
	out := NewMatrix(db.Rows(), a.OutDim())

	for i := 0; i < db.Rows(); i++ {
		src := db.Row(i)
		dst := out.Row(i)

		switch a.Kind {
		case Shrivastava:
			scale := a.U / maxNorm
			var normSq float32
			for j, v := range src {
				scaled := v * scale
				dst[j] = scaled
				normSq += scaled * scaled
			}
			// jth extra coordinate: 0.5 - ||x'||^(2^(j+1)).
			pow := normSq
			for j := 0; j < a.M; j++ {
				dst[a.Dim+j] = 0.5 - pow
				pow *= pow
			}

		case Neyshabur:
			scale := float32(1) / maxNorm
			var normSq float32
			for j, v := range src {
				scaled := v * scale
				dst[j] = scaled
				normSq += scaled * scaled
			}
			rem := float32(1) - normSq
			if rem < 0 {
				rem = 0
			}
			dst[a.Dim] = float32(math.Sqrt(float64(rem)))

		case None, Normalize:
			scale := float32(1) / maxNorm
			for j, v := range src {
				dst[j] = v * scale
			}
		}
	}
	return out
}

// ExtendQueries transforms a raw query matrix into the same augmented
// width Extend produces, so that inner products between the two outputs
// are a monotone function of the original inner product.
func (a *Augmentation) ExtendQueries(queries *Matrix) *Matrix {
	out := NewMatrix(queries.Rows(), a.OutDim())

	for i := 0; i < queries.Rows(); i++ {
		src := queries.Row(i)
		dst := out.Row(i)

		var normSq float32
		for _, v := range src {
			normSq += v * v
		}
		norm := float32(math.Sqrt(float64(normSq)))
		if norm == 0 {
			norm = 1
		}

		switch a.Kind {
		case Shrivastava:
			for j, v := range src {
				dst[j] = v / norm
			}
			for j := 0; j < a.M; j++ {
				dst[a.Dim+j] = 0
			}

		case Neyshabur:
			for j, v := range src {
				dst[j] = v / norm
			}
			dst[a.Dim] = 0

		case None, Normalize:
			for j, v := range src {
				dst[j] = v / norm
			}
		}
	}
	return out
}

// frozenOrScannedMaxNorm returns the frozen max norm if one was already
// computed, otherwise scans db for it (substituting 1 when db is all-zero,
// per the degenerate-data policy) and freezes the result. Normalize never
// scans: its caller guarantees pre-normalized input, so max_norm is always 1.
func (a *Augmentation) frozenOrScannedMaxNorm(db *Matrix) float32 {
	if a.Kind == Normalize {
		return 1
	}
	if a.maxNormSet {
		return a.maxNorm
	}
	var maxNorm float32
	for i := 0; i < db.Rows(); i++ {
		var normSq float32
		for _, v := range db.Row(i) {
			normSq += v * v
		}
		norm := float32(math.Sqrt(float64(normSq)))
		if norm > maxNorm {
			maxNorm = norm
		}
	}
	if maxNorm == 0 {
		maxNorm = 1
	}
	a.maxNorm, a.maxNormSet = maxNorm, true
	return maxNorm
}
