package hkmeans

import (
	"math"
	"math/rand"
	"testing"

	"github.com/devraj-iyer/mipsindex/internal/mipskernel"
)

func unitCircleDatabase(n int) *mipskernel.Matrix {
	m := mipskernel.NewMatrix(n, 2)
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * float64(i) / float64(n)
		row := m.Row(i)
		row[0] = float32(math.Cos(theta))
		row[1] = float32(math.Sin(theta))
	}
	return m
}

// TestSearchFindsClosestOnCircle exercises spec.md section 8 scenario 2: 16
// unit vectors on a circle, query at angle 0, hierarchical-kmeans with
// L=2, opened_trees=2, k=3 should recover the three vectors closest in
// angle to the query (ids 0, 1, 15).
func TestSearchFindsClosestOnCircle(t *testing.T) {
	db := unitCircleDatabase(16)
	idx := New(Config{
		Layers:           2,
		OpenedTrees:      2,
		AugmentationKind: mipskernel.None,
		Seed:             11,
	})
	if err := idx.Build(db); err != nil {
		t.Fatalf("Build: %v", err)
	}

	query := mipskernel.NewMatrixFromRows([][]float32{{1, 0}})
	distances, labels, err := idx.Search(query, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	want := map[int]bool{0: true, 1: true, 15: true}
	got := map[int]bool{}
	for _, id := range labels[0] {
		got[id] = true
	}
	for id := range want {
		if !got[id] {
			t.Errorf("expected id %d among top-3 neighbors of angle 0, got labels %v distances %v", id, labels[0], distances[0])
		}
	}
}

// TestSearchMonotonicityAtFullBeamWidth exercises spec.md section 8's search
// monotonicity property: with opened_trees == cluster_count[L-1] (i.e. the
// beam never prunes the top layer), recall@k against exhaustive scan on the
// augmented space is 100%.
func TestSearchMonotonicityAtFullBeamWidth(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	n, dim := 80, 6
	db := mipskernel.NewMatrix(n, dim)
	for i := range db.Data {
		db.Data[i] = rng.Float32()*2 - 1
	}
	queries := mipskernel.NewMatrix(4, dim)
	for i := range queries.Data {
		queries.Data[i] = rng.Float32()*2 - 1
	}

	cfg := Config{
		Layers:           2,
		AugmentationKind: mipskernel.Shrivastava,
		M:                2,
		U:                0.75,
		Seed:             9,
	}
	// OpenedTrees = cluster_count[L-1] so the beam never prunes the top layer.
	cfg.OpenedTrees = clusterCount(n, cfg.Layers-1, cfg.Layers)

	idx := New(cfg)
	if err := idx.Build(db); err != nil {
		t.Fatalf("Build: %v", err)
	}

	k := 5
	_, labels, err := idx.Search(queries, k)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	aug, err := mipskernel.NewAugmentation(cfg.AugmentationKind, dim, cfg.M, cfg.U)
	if err != nil {
		t.Fatalf("NewAugmentation: %v", err)
	}
	extDB := aug.Extend(db)
	extQ := aug.ExtendQueries(queries)

	kernel := mipskernel.DefaultKernel{}
	for qi := 0; qi < queries.Rows(); qi++ {
		exhaustive := bruteForceTopK(kernel, extQ.Row(qi), extDB, k)
		want := map[int]bool{}
		for _, id := range exhaustive {
			want[id] = true
		}
		for _, id := range labels[qi] {
			if !want[id] {
				t.Fatalf("query %d: id %d returned by tree search is not in exhaustive top-%d %v", qi, id, k, exhaustive)
			}
		}
	}
}

func bruteForceTopK(kernel mipskernel.NumericKernel, query []float32, db *mipskernel.Matrix, k int) []int {
	type pair struct {
		id    int
		score float32
	}
	items := make([]pair, db.Rows())
	for i := 0; i < db.Rows(); i++ {
		items[i] = pair{id: i, score: kernel.InnerProduct(query, db.Row(i))}
	}
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			if items[j].score > items[i].score || (items[j].score == items[i].score && items[j].id < items[i].id) {
				items[i], items[j] = items[j], items[i]
			}
		}
	}
	if k > len(items) {
		k = len(items)
	}
	ids := make([]int, k)
	for i := 0; i < k; i++ {
		ids[i] = items[i].id
	}
	return ids
}

// TestSearchPadsSentinelWhenCandidatesExhausted exercises spec.md section 8's
// pad-sentinel property: requesting more neighbors than the database holds
// pads labels with -1 and distances with -Inf.
func TestSearchPadsSentinelWhenCandidatesExhausted(t *testing.T) {
	db := mipskernel.NewMatrixFromRows([][]float32{{1, 0}, {0, 1}, {1, 1}})
	idx := New(Config{
		Layers:           1,
		OpenedTrees:      1,
		AugmentationKind: mipskernel.None,
		Seed:             3,
	})
	if err := idx.Build(db); err != nil {
		t.Fatalf("Build: %v", err)
	}

	query := mipskernel.NewMatrixFromRows([][]float32{{1, 0}})
	distances, labels, err := idx.Search(query, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	foundSentinel := false
	for i, id := range labels[0] {
		if id == -1 {
			foundSentinel = true
			if !math.IsInf(float64(distances[0][i]), -1) {
				t.Fatalf("sentinel label at %d should carry -Inf distance, got %v", i, distances[0][i])
			}
		}
	}
	if !foundSentinel {
		t.Fatalf("expected at least one -1 sentinel label, got %v", labels[0])
	}
}

// TestBuildRejectsBadParameters checks parameter-domain validation.
func TestBuildRejectsBadParameters(t *testing.T) {
	db := mipskernel.NewMatrixFromRows([][]float32{{1, 0}, {0, 1}})

	if err := New(Config{Layers: 0, OpenedTrees: 1}).Build(db); err == nil {
		t.Fatal("expected error for Layers=0")
	}
	if err := New(Config{Layers: 1, OpenedTrees: 0}).Build(db); err == nil {
		t.Fatal("expected error for OpenedTrees=0")
	}
}

// TestAddAssignsToExistingLeaves verifies Add grows the index without
// retraining: added points are reachable by Search afterward.
func TestAddAssignsToExistingLeaves(t *testing.T) {
	db := unitCircleDatabase(16)
	idx := New(Config{
		Layers:           2,
		OpenedTrees:      4,
		AugmentationKind: mipskernel.Normalize,
		Seed:             2,
	})
	if err := idx.Build(db); err != nil {
		t.Fatalf("Build: %v", err)
	}

	extra := mipskernel.NewMatrixFromRows([][]float32{{1, 0}})
	if err := idx.Add(extra); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if idx.original.Rows() != 17 {
		t.Fatalf("expected 17 stored points after Add, got %d", idx.original.Rows())
	}

	query := mipskernel.NewMatrixFromRows([][]float32{{1, 0}})
	_, labels, err := idx.Search(query, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if labels[0][0] != 0 && labels[0][0] != 16 {
		t.Fatalf("expected id 0 or the newly added id 16 as the exact match, got %d", labels[0][0])
	}
}
