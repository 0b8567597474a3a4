// Package ivf implements a flat inverted-file MIPS index: nlist centroids
// from the shared k-means wrapper, nprobe-controlled search fan-out, no
// augmentation since inner product is scored directly. It is not one of
// the three indexes the rest of this module centers on; it exists as a
// non-trivial baseline for the benchmark driver to compare against, the
// way original_source/src/bench.cpp compares an approximate method against
// a reference. Adapted from the teacher's IVFFlat, dropping its metadata
// filter support (this index has no persistence layer to filter against).
package ivf

import (
	"math"
	"sort"
	"sync"

	"github.com/devraj-iyer/mipsindex/internal/mipskernel"
	"github.com/devraj-iyer/mipsindex/pkg/mipserr"
)

var negInf = float32(math.Inf(-1))

// Config holds the IVF-flat build parameters.
type Config struct {
	NumCentroids int // nlist

	Kernel mipskernel.NumericKernel
	Seed   int64
	KMeans mipskernel.KMeansConfig
}

// IVFFlat is a flat inverted-file MIPS index, scored by inner product.
type IVFFlat struct {
	mu sync.RWMutex

	cfg    Config
	kernel mipskernel.NumericKernel
	rng    *mipskernel.Rand

	dim           int
	centroids     *mipskernel.Matrix
	invertedLists [][]int
	original      *mipskernel.Matrix
	built         bool
}

// New constructs an index from cfg.
func New(cfg Config) *IVFFlat {
	kernel := cfg.Kernel
	if kernel == nil {
		kernel = mipskernel.DefaultKernel{}
	}
	if cfg.KMeans.Iterations == 0 {
		cfg.KMeans = mipskernel.DefaultKMeansConfig()
	}
	return &IVFFlat{cfg: cfg, kernel: kernel, rng: mipskernel.NewRand(cfg.Seed)}
}

// Build clusters vectors into NumCentroids inverted-list regions.
func (ivf *IVFFlat) Build(vectors *mipskernel.Matrix) error {
	ivf.mu.Lock()
	defer ivf.mu.Unlock()

	if ivf.cfg.NumCentroids < 1 {
		return mipserr.ParameterDomain("ivf: NumCentroids must be >= 1, got %d", ivf.cfg.NumCentroids)
	}
	if vectors.Rows() == 0 {
		return mipserr.MalformedInput("ivf: Build requires at least one vector")
	}

	result := ivf.kernel.KMeans(vectors, ivf.cfg.NumCentroids, ivf.cfg.KMeans, ivf.rng)

	ivf.dim = vectors.Dim
	ivf.centroids = result.Centroids
	ivf.invertedLists = result.Children()
	ivf.original = mipskernel.NewMatrix(vectors.Rows(), vectors.Dim)
	copy(ivf.original.Data, vectors.Data)
	ivf.built = true
	return nil
}

// Add assigns each new vector to its nearest centroid's inverted list.
func (ivf *IVFFlat) Add(vectors *mipskernel.Matrix) error {
	ivf.mu.Lock()
	defer ivf.mu.Unlock()

	if !ivf.built {
		return mipserr.MalformedInput("ivf: Add called before Build")
	}
	if vectors.Dim != ivf.dim {
		return mipserr.DimensionMismatch("ivf: Add dim %d, index dim %d", vectors.Dim, ivf.dim)
	}

	for i := 0; i < vectors.Rows(); i++ {
		c := mipskernel.NearestCentroid(vectors.Row(i), ivf.centroids)
		pointID := ivf.original.Rows()
		ivf.original.AppendRow(vectors.Row(i))
		ivf.invertedLists[c] = append(ivf.invertedLists[c], pointID)
	}
	return nil
}

// Search finds the nprobe nearest centroids to each query and scans their
// inverted lists by inner product.
func (ivf *IVFFlat) Search(queries *mipskernel.Matrix, k int, nprobe int) ([][]float32, [][]int, error) {
	ivf.mu.RLock()
	defer ivf.mu.RUnlock()

	if !ivf.built {
		return nil, nil, mipserr.MalformedInput("ivf: Search called before Build")
	}
	if queries.Dim != ivf.dim {
		return nil, nil, mipserr.DimensionMismatch("ivf: query dim %d, index dim %d", queries.Dim, ivf.dim)
	}
	if k < 1 {
		return nil, nil, mipserr.ParameterDomain("ivf: k must be >= 1, got %d", k)
	}
	if nprobe < 1 {
		nprobe = 1
	}
	if nprobe > ivf.centroids.Rows() {
		nprobe = ivf.centroids.Rows()
	}

	n := queries.Rows()
	distances := make([][]float32, n)
	labels := make([][]int, n)

	err := mipskernel.Parallelize(n, func(qi int) error {
		query := queries.Row(qi)
		probed := ivf.nearestCentroids(query, nprobe)

		type scored struct {
			id    int
			score float32
		}
		var items []scored
		for _, c := range probed {
			for _, id := range ivf.invertedLists[c] {
				items = append(items, scored{id: id, score: ivf.kernel.InnerProduct(query, ivf.original.Row(id))})
			}
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
				dist[i] = items[i].score
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

// nearestCentroids returns the nprobe centroid ids with largest inner
// product against query.
func (ivf *IVFFlat) nearestCentroids(query []float32, nprobe int) []int {
	type scored struct {
		id    int
		score float32
	}
	items := make([]scored, ivf.centroids.Rows())
	for c := 0; c < ivf.centroids.Rows(); c++ {
		items[c] = scored{id: c, score: ivf.kernel.InnerProduct(query, ivf.centroids.Row(c))}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].score != items[j].score {
			return items[i].score > items[j].score
		}
		return items[i].id < items[j].id
	})
	ids := make([]int, nprobe)
	for i := 0; i < nprobe; i++ {
		ids[i] = items[i].id
	}
	return ids
}

// Dim returns the configured vector dimension, valid after Build.
func (ivf *IVFFlat) Dim() int {
	ivf.mu.RLock()
	defer ivf.mu.RUnlock()
	return ivf.dim
}

// Built reports whether Build has completed successfully.
func (ivf *IVFFlat) Built() bool {
	ivf.mu.RLock()
	defer ivf.mu.RUnlock()
	return ivf.built
}

// Reset discards all trained state.
func (ivf *IVFFlat) Reset() {
	ivf.mu.Lock()
	defer ivf.mu.Unlock()
	ivf.centroids = nil
	ivf.invertedLists = nil
	ivf.original = nil
	ivf.built = false
	ivf.dim = 0
}
