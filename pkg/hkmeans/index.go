// Package hkmeans implements the hierarchical k-means tree index: a
// multi-layer k-means build over a MIPS-augmented database, searched with a
// beam-style top-down descent. The build/add/search contract and the
// mutex-guarded index struct follow the teacher's pkg/ivf.IVFFlat; the tree
// and descent logic have no teacher analogue and are grounded directly on
// the layer/predict design in original_source/src/kmeans.cpp.
package hkmeans

import (
	"math"
	"sort"
	"sync"

	"github.com/devraj-iyer/mipsindex/internal/mipskernel"
	"github.com/devraj-iyer/mipsindex/pkg/mipserr"
)

// Config holds the hierarchical k-means build parameters.
type Config struct {
	Layers      int // L, number of clustering layers
	OpenedTrees int // beam width per layer during descent

	AugmentationKind mipskernel.AugmentationKind
	M                int
	U                float32

	Kernel mipskernel.NumericKernel // nil selects mipskernel.DefaultKernel{}
	Seed   int64
	KMeans mipskernel.KMeansConfig
}

// layer holds one level of the tree: the centroids clustered at this level,
// and for each centroid the ids of the entries assigned to it (lower-layer
// centroid ids for layer > 0, original point ids for layer 0).
type layer struct {
	centroids *mipskernel.Matrix
	children  [][]int
}

// Index is a hierarchical k-means MIPS index. Zero value is not usable;
// construct with New.
type Index struct {
	mu sync.RWMutex

	cfg    Config
	kernel mipskernel.NumericKernel
	rng    *mipskernel.Rand
	aug    *mipskernel.Augmentation

	dim       int
	original  *mipskernel.Matrix // raw vectors, row i = point id i
	augmented *mipskernel.Matrix
	layers    []layer
	built     bool
}

// New constructs an index from cfg. Parameters are validated on Build, not
// here, so a Config can be assembled incrementally.
func New(cfg Config) *Index {
	kernel := cfg.Kernel
	if kernel == nil {
		kernel = mipskernel.DefaultKernel{}
	}
	if cfg.KMeans.Iterations == 0 {
		cfg.KMeans = mipskernel.DefaultKMeansConfig()
	}
	return &Index{
		cfg:    cfg,
		kernel: kernel,
		rng:    mipskernel.NewRand(cfg.Seed),
	}
}

// clusterCount implements the one hard numeric fan-out rule:
// floor(n^((l+1)/(L+1))), clamped to at least 1.
func clusterCount(n, l, layers int) int {
	exp := float64(l+1) / float64(layers+1)
	k := int(math.Floor(math.Pow(float64(n), exp)))
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	return k
}

// Build trains the tree on vectors: augments the database, then clusters
// layer 0 from the augmented rows and each subsequent layer from the
// previous layer's centroids.
func (idx *Index) Build(vectors *mipskernel.Matrix) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.cfg.Layers < 1 {
		return mipserr.ParameterDomain("hkmeans: Layers must be >= 1, got %d", idx.cfg.Layers)
	}
	if idx.cfg.OpenedTrees < 1 {
		return mipserr.ParameterDomain("hkmeans: OpenedTrees must be >= 1, got %d", idx.cfg.OpenedTrees)
	}
	if vectors.Rows() == 0 {
		return mipserr.MalformedInput("hkmeans: Build requires at least one vector")
	}

	aug, err := mipskernel.NewAugmentation(idx.cfg.AugmentationKind, vectors.Dim, idx.cfg.M, idx.cfg.U)
	if err != nil {
		return err
	}

	n := vectors.Rows()
	augmented := aug.Extend(vectors)

	layers := make([]layer, idx.cfg.Layers)
	points := augmented
	for l := 0; l < idx.cfg.Layers; l++ {
		k := clusterCount(n, l, idx.cfg.Layers)
		result := idx.kernel.KMeans(points, k, idx.cfg.KMeans, idx.rng)
		layers[l] = layer{centroids: result.Centroids, children: result.Children()}
		points = result.Centroids
	}

	idx.dim = vectors.Dim
	idx.aug = aug
	idx.augmented = augmented
	idx.original = mipskernel.NewMatrix(vectors.Rows(), vectors.Dim)
	copy(idx.original.Data, vectors.Data)
	idx.layers = layers
	idx.built = true
	return nil
}

// Add assigns each new vector to its nearest leaf (layer-0 centroid) via
// top-down descent and appends it there. It does not retrain any centroid;
// per the non-incremental-update contract, tree shape is fixed at Build.
func (idx *Index) Add(vectors *mipskernel.Matrix) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if !idx.built {
		return mipserr.MalformedInput("hkmeans: Add called before Build")
	}
	if vectors.Dim != idx.dim {
		return mipserr.DimensionMismatch("hkmeans: Add dim %d, index dim %d", vectors.Dim, idx.dim)
	}

	ext := idx.aug.Extend(vectors)
	for i := 0; i < vectors.Rows(); i++ {
		leaf := idx.assignLeaf(ext.Row(i))
		pointID := idx.original.Rows()
		idx.original.AppendRow(vectors.Row(i))
		idx.augmented.AppendRow(ext.Row(i))
		idx.layers[0].children[leaf] = append(idx.layers[0].children[leaf], pointID)
	}
	return nil
}

// assignLeaf descends the tree keeping only the single best-scoring
// centroid at each layer, mirroring Search's descent with a beam width of 1.
func (idx *Index) assignLeaf(vec []float32) int {
	L := len(idx.layers)
	var candidates []int // nil means "all rows of the current layer's centroids"

	for l := L - 1; l >= 1; l-- {
		best := idx.bestScoring(vec, idx.layers[l].centroids, candidates)
		candidates = idx.layers[l].children[best]
	}
	return idx.bestScoring(vec, idx.layers[0].centroids, candidates)
}

// bestScoring returns the id (row index into centroids, or an entry of
// candidates) with the largest inner product against vec.
func (idx *Index) bestScoring(vec []float32, centroids *mipskernel.Matrix, candidates []int) int {
	if candidates == nil {
		best, bestScore := 0, float32(math.Inf(-1))
		for c := 0; c < centroids.Rows(); c++ {
			score := idx.kernel.InnerProduct(vec, centroids.Row(c))
			if score > bestScore {
				best, bestScore = c, score
			}
		}
		return best
	}
	best, bestScore := candidates[0], float32(math.Inf(-1))
	for _, c := range candidates {
		score := idx.kernel.InnerProduct(vec, centroids.Row(c))
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	return best
}

// scored pairs an id with a ranking score, used for the beam-descent
// partial sorts and the final top-k selection.
type scored struct {
	id    int
	score float32
}

// topByScore returns up to n ids from items, sorted by descending score,
// ties broken by ascending id.
func topByScore(items []scored, n int) []scored {
	sort.Slice(items, func(i, j int) bool {
		if items[i].score != items[j].score {
			return items[i].score > items[j].score
		}
		return items[i].id < items[j].id
	})
	if n < len(items) {
		items = items[:n]
	}
	return items
}

// Search answers top-k MIPS queries. queries holds raw (unaugmented) rows;
// distances are reported in the original inner-product space even though
// ranking internally uses the augmented space.
func (idx *Index) Search(queries *mipskernel.Matrix, k int) ([][]float32, [][]int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.built {
		return nil, nil, mipserr.MalformedInput("hkmeans: Search called before Build")
	}
	if queries.Dim != idx.dim {
		return nil, nil, mipserr.DimensionMismatch("hkmeans: query dim %d, index dim %d", queries.Dim, idx.dim)
	}
	if k < 1 {
		return nil, nil, mipserr.ParameterDomain("hkmeans: k must be >= 1, got %d", k)
	}

	extQ := idx.aug.ExtendQueries(queries)
	n := queries.Rows()
	distances := make([][]float32, n)
	labels := make([][]int, n)

	err := mipskernel.Parallelize(n, func(qi int) error {
		q := queries.Row(qi)
		extQuery := extQ.Row(qi)
		dist, lab := idx.searchOne(q, extQuery, k)
		distances[qi] = dist
		labels[qi] = lab
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return distances, labels, nil
}

func (idx *Index) searchOne(query, extQuery []float32, k int) ([]float32, []int) {
	L := len(idx.layers)

	topLayer := idx.layers[L-1].centroids
	candidates := make([]int, topLayer.Rows())
	for i := range candidates {
		candidates[i] = i
	}

	for l := L - 1; l >= 0; l-- {
		items := make([]scored, len(candidates))
		for i, c := range candidates {
			items[i] = scored{id: c, score: idx.kernel.InnerProduct(extQuery, idx.layers[l].centroids.Row(c))}
		}
		width := idx.cfg.OpenedTrees
		if width > len(items) {
			width = len(items)
		}
		top := topByScore(items, width)

		var next []int
		seen := make(map[int]bool)
		for _, t := range top {
			for _, child := range idx.layers[l].children[t.id] {
				if !seen[child] {
					seen[child] = true
					next = append(next, child)
				}
			}
		}
		candidates = next
		if len(candidates) == 0 {
			break
		}
	}

	items := make([]scored, len(candidates))
	for i, id := range candidates {
		items[i] = scored{id: id, score: idx.kernel.InnerProduct(extQuery, idx.augmented.Row(id))}
	}
	top := topByScore(items, k)

	distances := make([]float32, k)
	labels := make([]int, k)
	for i := 0; i < k; i++ {
		if i < len(top) {
			labels[i] = top[i].id
			distances[i] = idx.kernel.InnerProduct(query, idx.original.Row(top[i].id))
		} else {
			labels[i] = -1
			distances[i] = float32(math.Inf(-1))
		}
	}
	return distances, labels
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

// Reset discards all trained state, returning the index to its
// pre-Build condition.
func (idx *Index) Reset() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.aug = nil
	idx.augmented = nil
	idx.original = nil
	idx.layers = nil
	idx.built = false
	idx.dim = 0
}
