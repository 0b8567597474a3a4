package ivf

import (
	"math/rand"
	"testing"

	"github.com/devraj-iyer/mipsindex/internal/mipskernel"
)

// TestSearchAgreesWithExhaustiveAtFullProbe checks that probing every
// centroid (nprobe == NumCentroids) recovers the exact top-k by inner
// product, since no cell is excluded from the scan.
func TestSearchAgreesWithExhaustiveAtFullProbe(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	n, dim := 60, 5
	db := mipskernel.NewMatrix(n, dim)
	for i := range db.Data {
		db.Data[i] = rng.Float32()*2 - 1
	}
	queries := mipskernel.NewMatrix(3, dim)
	for i := range queries.Data {
		queries.Data[i] = rng.Float32()*2 - 1
	}

	idx := New(Config{NumCentroids: 6, Seed: 7})
	if err := idx.Build(db); err != nil {
		t.Fatalf("Build: %v", err)
	}

	k := 5
	_, labels, err := idx.Search(queries, k, 6)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	kernel := mipskernel.DefaultKernel{}
	for qi := 0; qi < queries.Rows(); qi++ {
		want := bruteForceTopK(kernel, queries.Row(qi), db, k)
		wantSet := map[int]bool{}
		for _, id := range want {
			wantSet[id] = true
		}
		for _, id := range labels[qi] {
			if !wantSet[id] {
				t.Fatalf("query %d: id %d not in exhaustive top-%d %v", qi, id, k, want)
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

// TestBuildRejectsBadParameters checks parameter-domain validation.
func TestBuildRejectsBadParameters(t *testing.T) {
	db := mipskernel.NewMatrixFromRows([][]float32{{1, 0}, {0, 1}})
	if err := New(Config{NumCentroids: 0}).Build(db); err == nil {
		t.Fatal("expected error for NumCentroids=0")
	}
}

// TestAddGrowsInvertedLists verifies Add assigns new points without
// retraining centroids.
func TestAddGrowsInvertedLists(t *testing.T) {
	db := mipskernel.NewMatrixFromRows([][]float32{
		{1, 0}, {0.9, 0.1}, {0, 1}, {0.1, 0.9},
	})
	idx := New(Config{NumCentroids: 2, Seed: 3})
	if err := idx.Build(db); err != nil {
		t.Fatalf("Build: %v", err)
	}

	extra := mipskernel.NewMatrixFromRows([][]float32{{1, 0.05}})
	if err := idx.Add(extra); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if idx.original.Rows() != 5 {
		t.Fatalf("expected 5 stored points after Add, got %d", idx.original.Rows())
	}

	total := 0
	for _, list := range idx.invertedLists {
		total += len(list)
	}
	if total != 5 {
		t.Fatalf("inverted lists should cover all 5 points, got %d", total)
	}
}

// TestSearchPadsSentinelWhenFewerThanKInProbedCells checks the -1/-Inf
// padding policy when probed cells hold fewer than k points.
func TestSearchPadsSentinelWhenFewerThanKInProbedCells(t *testing.T) {
	db := mipskernel.NewMatrixFromRows([][]float32{{1, 0}, {0, 1}, {1, 1}})
	idx := New(Config{NumCentroids: 3, Seed: 1})
	if err := idx.Build(db); err != nil {
		t.Fatalf("Build: %v", err)
	}

	query := mipskernel.NewMatrixFromRows([][]float32{{1, 0}})
	_, labels, err := idx.Search(query, 10, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	foundSentinel := false
	for _, id := range labels[0] {
		if id == -1 {
			foundSentinel = true
		}
	}
	if !foundSentinel {
		t.Fatalf("expected sentinel padding, got %v", labels[0])
	}
}
