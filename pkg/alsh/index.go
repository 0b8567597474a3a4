// Package alsh implements the asymmetric LSH index: L independent
// metahash tables over a MIPS-augmented database, searched by collision
// counting. Grounded on original_source/src/alsh.tmp.cpp's IndexALSH for
// the hash/bucket shape, and on the teacher's pkg/ivf.IVFFlat for the
// mutex-guarded build/add/search contract.
package alsh

import (
	"math"
	"sort"
	"sync"

	"github.com/devraj-iyer/mipsindex/internal/mipskernel"
	"github.com/devraj-iyer/mipsindex/pkg/mipserr"
)

const goldenRatio64 = 0x9E3779B9

var negInf = float32(math.Inf(-1))

// Config holds the ALSH build parameters.
type Config struct {
	Tables        int     // L, number of independent metahash tables
	HashesPerTable int    // K, scalar hash functions combined into one metahash
	BucketWidth   float32 // r

	AugmentationKind mipskernel.AugmentationKind
	M                int
	U                float32

	Kernel mipskernel.NumericKernel
	Seed   int64
}

// table is one metahash table: K projection vectors + offsets, and a
// bucket map from combined metahash to the point ids that fell in it.
type table struct {
	projections *mipskernel.Matrix // K x D
	offsets     []float32          // K
	buckets     map[uint64][]int
}

// Index is an asymmetric LSH MIPS index.
type Index struct {
	mu sync.RWMutex

	cfg    Config
	kernel mipskernel.NumericKernel
	rng    *mipskernel.Rand
	aug    *mipskernel.Augmentation

	dim      int
	original *mipskernel.Matrix
	tables   []table
	built    bool
}

// New constructs an index from cfg.
func New(cfg Config) *Index {
	kernel := cfg.Kernel
	if kernel == nil {
		kernel = mipskernel.DefaultKernel{}
	}
	return &Index{
		cfg:    cfg,
		kernel: kernel,
		rng:    mipskernel.NewRand(cfg.Seed),
	}
}

// hashOne computes h(x) = floor((<a,x> + b) / r).
func hashOne(kernel mipskernel.NumericKernel, a []float32, b float32, r float32, x []float32) int64 {
	dot := kernel.InnerProduct(a, x)
	v := (dot + b) / r
	return int64(floorFloat32(v))
}

func floorFloat32(v float32) float32 {
	i := float32(int64(v))
	if v < 0 && i != v {
		i--
	}
	return i
}

// metahash combines K scalar hashes into one 64-bit value via the fold
// seed ^= h + 0x9E3779B9 + (seed<<6) + (seed>>2), applied left-to-right.
// This exact constant and fold shape is required for reproducible bucket
// layouts on a fixed seed.
func metahash(hs []int64) uint64 {
	var seed uint64
	for _, h := range hs {
		seed ^= uint64(h) + goldenRatio64 + (seed << 6) + (seed >> 2)
	}
	return seed
}

// Build samples L tables of K projection vectors/offsets and assigns every
// augmented database row to its metahash in every table.
func (idx *Index) Build(vectors *mipskernel.Matrix) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.cfg.Tables < 1 {
		return mipserr.ParameterDomain("alsh: Tables must be >= 1, got %d", idx.cfg.Tables)
	}
	if idx.cfg.HashesPerTable < 1 {
		return mipserr.ParameterDomain("alsh: HashesPerTable must be >= 1, got %d", idx.cfg.HashesPerTable)
	}
	if idx.cfg.BucketWidth <= 0 {
		return mipserr.ParameterDomain("alsh: BucketWidth must be > 0, got %v", idx.cfg.BucketWidth)
	}
	if vectors.Rows() == 0 {
		return mipserr.MalformedInput("alsh: Build requires at least one vector")
	}

	aug, err := mipskernel.NewAugmentation(idx.cfg.AugmentationKind, vectors.Dim, idx.cfg.M, idx.cfg.U)
	if err != nil {
		return err
	}
	augmented := aug.Extend(vectors)
	outDim := aug.OutDim()

	tables := make([]table, idx.cfg.Tables)
	for l := range tables {
		tables[l] = idx.sampleTable(outDim)
	}

	err = mipskernel.Parallelize(len(tables), func(l int) error {
		tbl := &tables[l]
		tbl.buckets = make(map[uint64][]int)
		for i := 0; i < augmented.Rows(); i++ {
			mh := idx.rowMetahash(tbl, augmented.Row(i))
			tbl.buckets[mh] = append(tbl.buckets[mh], i)
		}
		return nil
	})
	if err != nil {
		return err
	}

	idx.dim = vectors.Dim
	idx.aug = aug
	idx.original = mipskernel.NewMatrix(vectors.Rows(), vectors.Dim)
	copy(idx.original.Data, vectors.Data)
	idx.tables = tables
	idx.built = true
	return nil
}

// sampleTable draws K projection vectors ~ N(0,1)^outDim and K offsets
// ~ U(0,r).
func (idx *Index) sampleTable(outDim int) table {
	projections := mipskernel.NewMatrix(idx.cfg.HashesPerTable, outDim)
	for i := range projections.Data {
		projections.Data[i] = idx.rng.StdNormal()
	}
	offsets := make([]float32, idx.cfg.HashesPerTable)
	for i := range offsets {
		offsets[i] = idx.rng.Uniform(0, idx.cfg.BucketWidth)
	}
	return table{projections: projections, offsets: offsets}
}

// rowMetahash computes the combined K-hash metahash of row against tbl.
func (idx *Index) rowMetahash(tbl *table, row []float32) uint64 {
	hs := make([]int64, idx.cfg.HashesPerTable)
	for i := 0; i < idx.cfg.HashesPerTable; i++ {
		hs[i] = hashOne(idx.kernel, tbl.projections.Row(i), tbl.offsets[i], idx.cfg.BucketWidth, row)
	}
	return metahash(hs)
}

// Add augments new vectors with the frozen max norm from Build and assigns
// each to its metahash bucket in every table.
func (idx *Index) Add(vectors *mipskernel.Matrix) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if !idx.built {
		return mipserr.MalformedInput("alsh: Add called before Build")
	}
	if vectors.Dim != idx.dim {
		return mipserr.DimensionMismatch("alsh: Add dim %d, index dim %d", vectors.Dim, idx.dim)
	}

	ext := idx.aug.Extend(vectors)
	base := idx.original.Rows()

	err := mipskernel.Parallelize(len(idx.tables), func(l int) error {
		tbl := &idx.tables[l]
		for i := 0; i < ext.Rows(); i++ {
			mh := idx.rowMetahash(tbl, ext.Row(i))
			tbl.buckets[mh] = append(tbl.buckets[mh], base+i)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for i := 0; i < vectors.Rows(); i++ {
		idx.original.AppendRow(vectors.Row(i))
	}
	return nil
}

// Search scores every point by its number of table collisions with the
// query and returns the top-k by descending collision count, tie-broken
// by smaller id. Reported distances are original-space inner products.
func (idx *Index) Search(queries *mipskernel.Matrix, k int) ([][]float32, [][]int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.built {
		return nil, nil, mipserr.MalformedInput("alsh: Search called before Build")
	}
	if queries.Dim != idx.dim {
		return nil, nil, mipserr.DimensionMismatch("alsh: query dim %d, index dim %d", queries.Dim, idx.dim)
	}
	if k < 1 {
		return nil, nil, mipserr.ParameterDomain("alsh: k must be >= 1, got %d", k)
	}

	extQ := idx.aug.ExtendQueries(queries)
	n := queries.Rows()
	distances := make([][]float32, n)
	labels := make([][]int, n)

	err := mipskernel.Parallelize(n, func(qi int) error {
		q := queries.Row(qi)
		extQuery := extQ.Row(qi)

		counts := make(map[int]int)
		for l := range idx.tables {
			mh := idx.rowMetahash(&idx.tables[l], extQuery)
			for _, id := range idx.tables[l].buckets[mh] {
				counts[id]++
			}
		}

		type entry struct {
			id    int
			count int
		}
		entries := make([]entry, 0, len(counts))
		for id, c := range counts {
			entries = append(entries, entry{id: id, count: c})
		}
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].count != entries[j].count {
				return entries[i].count > entries[j].count
			}
			return entries[i].id < entries[j].id
		})

		dist := make([]float32, k)
		lab := make([]int, k)
		for i := 0; i < k; i++ {
			if i < len(entries) {
				lab[i] = entries[i].id
				dist[i] = idx.kernel.InnerProduct(q, idx.original.Row(entries[i].id))
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
	idx.aug = nil
	idx.original = nil
	idx.tables = nil
	idx.built = false
	idx.dim = 0
}
