// Package subpq implements the subspace (product) quantization MIPS index:
// a random coordinate permutation, contiguous subspace tiling, per-subspace
// k-means codebooks, and asymmetric distance computation (ADC) table
// lookup at query time. Grounded on the teacher's
// internal/quantization.ProductQuantizer for the codebook/ADC shape and on
// original_source/src/quantization.cpp for the permutation-then-tile build
// order, adapted from reconstruction-error PQ to inner-product ADC scoring.
package subpq

import (
	"math"
	"sort"
	"sync"

	"github.com/devraj-iyer/mipsindex/internal/mipskernel"
	"github.com/devraj-iyer/mipsindex/pkg/mipserr"
)

var negInf = float32(math.Inf(-1))

// Config holds the subspace quantization build parameters.
type Config struct {
	Subspaces int // S
	Centroids int // C, shared across every subspace

	Kernel mipskernel.NumericKernel
	Seed   int64
	KMeans mipskernel.KMeansConfig
}

// Index is a subspace-quantization MIPS index, scored by asymmetric
// distance computation rather than by reconstructing full vectors.
type Index struct {
	mu sync.RWMutex

	cfg    Config
	kernel mipskernel.NumericKernel
	rng    *mipskernel.Rand

	dim     int
	perm    []int // perm[j] = source coordinate feeding permuted slot j
	invPerm []int // invPerm[perm[j]] = j

	offsets     []int // length Subspaces+1, subspace s spans [offsets[s], offsets[s+1])
	codebooks   []*mipskernel.Matrix
	assignments [][]int // assignments[s][i] = centroid id of row i in subspace s

	original *mipskernel.Matrix
	built    bool
}

// New constructs an index from cfg.
func New(cfg Config) *Index {
	kernel := cfg.Kernel
	if kernel == nil {
		kernel = mipskernel.DefaultKernel{}
	}
	if cfg.KMeans.Iterations == 0 {
		cfg.KMeans = mipskernel.DefaultKMeansConfig()
	}
	return &Index{cfg: cfg, kernel: kernel, rng: mipskernel.NewRand(cfg.Seed)}
}

// subspaceOffsets tiles d coordinates into s contiguous subspaces with
// sizes differing by at most 1 and the last subspace the shortest.
func subspaceOffsets(d, s int) []int {
	base := d / s
	rem := d % s
	offsets := make([]int, s+1)
	pos := 0
	for i := 0; i < s; i++ {
		width := base
		if i < rem {
			width++
		}
		pos += width
		offsets[i+1] = pos
	}
	return offsets
}

func invertPermutation(perm []int) []int {
	inv := make([]int, len(perm))
	for i, p := range perm {
		inv[p] = i
	}
	return inv
}

// applyPermutation returns a new row with dst[j] = row[perm[j]].
func applyPermutation(perm []int, row []float32) []float32 {
	out := make([]float32, len(perm))
	for j, p := range perm {
		out[j] = row[p]
	}
	return out
}

func permuteMatrix(perm []int, m *mipskernel.Matrix) *mipskernel.Matrix {
	out := mipskernel.NewMatrix(m.Rows(), len(perm))
	for i := 0; i < m.Rows(); i++ {
		copy(out.Row(i), applyPermutation(perm, m.Row(i)))
	}
	return out
}

func extractColumns(m *mipskernel.Matrix, lo, hi int) *mipskernel.Matrix {
	out := mipskernel.NewMatrix(m.Rows(), hi-lo)
	for i := 0; i < m.Rows(); i++ {
		copy(out.Row(i), m.Row(i)[lo:hi])
	}
	return out
}

// Build draws a random permutation, tiles it into S subspaces, and clusters
// each subspace independently with C centroids.
func (idx *Index) Build(vectors *mipskernel.Matrix) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.cfg.Subspaces < 1 {
		return mipserr.ParameterDomain("subpq: Subspaces must be >= 1, got %d", idx.cfg.Subspaces)
	}
	if idx.cfg.Centroids < 1 {
		return mipserr.ParameterDomain("subpq: Centroids must be >= 1, got %d", idx.cfg.Centroids)
	}
	if vectors.Rows() == 0 {
		return mipserr.MalformedInput("subpq: Build requires at least one vector")
	}
	if idx.cfg.Subspaces > vectors.Dim {
		return mipserr.ParameterDomain("subpq: Subspaces (%d) cannot exceed dimension (%d)", idx.cfg.Subspaces, vectors.Dim)
	}

	perm := idx.rng.Perm(vectors.Dim)
	invPerm := invertPermutation(perm)
	offsets := subspaceOffsets(vectors.Dim, idx.cfg.Subspaces)
	permuted := permuteMatrix(perm, vectors)

	seeds := make([]int64, idx.cfg.Subspaces)
	for s := range seeds {
		seeds[s] = int64(idx.rng.Intn(1 << 62))
	}

	codebooks := make([]*mipskernel.Matrix, idx.cfg.Subspaces)
	assignments := make([][]int, idx.cfg.Subspaces)

	err := mipskernel.Parallelize(idx.cfg.Subspaces, func(s int) error {
		sub := extractColumns(permuted, offsets[s], offsets[s+1])
		subRng := mipskernel.NewRand(seeds[s])
		result := idx.kernel.KMeans(sub, idx.cfg.Centroids, idx.cfg.KMeans, subRng)
		codebooks[s] = result.Centroids
		assignments[s] = result.Assignments
		return nil
	})
	if err != nil {
		return err
	}

	idx.dim = vectors.Dim
	idx.perm = perm
	idx.invPerm = invPerm
	idx.offsets = offsets
	idx.codebooks = codebooks
	idx.assignments = assignments
	idx.original = mipskernel.NewMatrix(vectors.Rows(), vectors.Dim)
	copy(idx.original.Data, vectors.Data)
	idx.built = true
	return nil
}

// Add assigns each new row to its nearest existing centroid in every
// subspace, without retraining any codebook.
func (idx *Index) Add(vectors *mipskernel.Matrix) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if !idx.built {
		return mipserr.MalformedInput("subpq: Add called before Build")
	}
	if vectors.Dim != idx.dim {
		return mipserr.DimensionMismatch("subpq: Add dim %d, index dim %d", vectors.Dim, idx.dim)
	}

	permuted := permuteMatrix(idx.perm, vectors)
	for s := 0; s < idx.cfg.Subspaces; s++ {
		sub := extractColumns(permuted, idx.offsets[s], idx.offsets[s+1])
		for i := 0; i < sub.Rows(); i++ {
			c := mipskernel.NearestCentroid(sub.Row(i), idx.codebooks[s])
			idx.assignments[s] = append(idx.assignments[s], c)
		}
	}
	for i := 0; i < vectors.Rows(); i++ {
		idx.original.AppendRow(vectors.Row(i))
	}
	return nil
}

type scored struct {
	id    int
	score float32
}

// Search builds the S×C asymmetric distance table per query and estimates
// every database row's score as the sum of its per-subspace table entries.
func (idx *Index) Search(queries *mipskernel.Matrix, k int) ([][]float32, [][]int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.built {
		return nil, nil, mipserr.MalformedInput("subpq: Search called before Build")
	}
	if queries.Dim != idx.dim {
		return nil, nil, mipserr.DimensionMismatch("subpq: query dim %d, index dim %d", queries.Dim, idx.dim)
	}
	if k < 1 {
		return nil, nil, mipserr.ParameterDomain("subpq: k must be >= 1, got %d", k)
	}

	n := queries.Rows()
	distances := make([][]float32, n)
	labels := make([][]int, n)
	numPoints := idx.original.Rows()

	err := mipskernel.Parallelize(n, func(qi int) error {
		query := queries.Row(qi)
		subquery := applyPermutation(idx.perm, query)

		table := make([][]float32, idx.cfg.Subspaces)
		for s := 0; s < idx.cfg.Subspaces; s++ {
			sq := subquery[idx.offsets[s]:idx.offsets[s+1]]
			row := make([]float32, idx.cfg.Centroids)
			for c := 0; c < idx.codebooks[s].Rows(); c++ {
				row[c] = idx.kernel.InnerProduct(sq, idx.codebooks[s].Row(c))
			}
			table[s] = row
		}

		items := make([]scored, numPoints)
		for i := 0; i < numPoints; i++ {
			var total float32
			for s := 0; s < idx.cfg.Subspaces; s++ {
				total += table[s][idx.assignments[s][i]]
			}
			items[i] = scored{id: i, score: total}
		}
		sort.Slice(items, func(i, j int) bool {
			if items[i].score != items[j].score {
				return items[i].score > items[j].score
			}
			return items[i].id < items[j].id
		})

		dist := make([]float32, k)
		lab := make([]int, k)
		for i := 0; i < k; i++ {
			if i < len(items) {
				lab[i] = items[i].id
				dist[i] = idx.kernel.InnerProduct(query, idx.original.Row(items[i].id))
			} else {
				lab[i] = -1
				dist[i] = negInf
			}
		}
		distances[qi] = dist
		labels[qi] = lab
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return distances, labels, nil
}

// Permutation returns a copy of the coordinate permutation frozen at
// Build, satisfying dst[j] = src[Permutation()[j]].
func (idx *Index) Permutation() []int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return append([]int(nil), idx.perm...)
}

// InversePermutation returns a copy of the permutation's inverse, such
// that applying Permutation() then InversePermutation() is the identity.
func (idx *Index) InversePermutation() []int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return append([]int(nil), idx.invPerm...)
}

// Dim returns the configured vector dimension, valid after Build.
func (idx *Index) Dim() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dim
}

// Built reports whether Build has completed successfully.
func (idx *Index) Built() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.built
}

// Reset discards all trained state.
func (idx *Index) Reset() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.perm, idx.invPerm, idx.offsets = nil, nil, nil
	idx.codebooks, idx.assignments = nil, nil
	idx.original = nil
	idx.built = false
	idx.dim = 0
}
