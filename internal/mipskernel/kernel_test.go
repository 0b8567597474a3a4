package mipskernel

import (
	"math/rand"
	"testing"
)

// TestKMeansAssignmentsMatchIndependentPass verifies spec.md section 8's
// k-means stability property: assignments produced by KMeans agree with an
// independent argmin_c ||x-c||^2 pass over the returned centroids.
func TestKMeansAssignmentsMatchIndependentPass(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	vectors := NewMatrix(120, 6)
	for i := range vectors.Data {
		vectors.Data[i] = rng.Float32()*10 - 5
	}

	kernel := DefaultKernel{}
	result := kernel.KMeans(vectors, 5, DefaultKMeansConfig(), NewRand(42))

	for i := 0; i < vectors.Rows(); i++ {
		want := NearestCentroid(vectors.Row(i), result.Centroids)
		got := result.Assignments[i]
		if want != got {
			t.Fatalf("row %d: assignment %d disagrees with independent pass %d", i, got, want)
		}
	}
}

func TestKMeansChildrenInvertsAssignments(t *testing.T) {
	result := KMeansResult{
		Centroids:   NewMatrix(3, 2),
		Assignments: []int{0, 1, 0, 2, 1},
	}
	children := result.Children()
	if len(children) != 3 {
		t.Fatalf("Children() length = %d, want 3", len(children))
	}
	wantByCentroid := map[int][]int{0: {0, 2}, 1: {1, 4}, 2: {3}}
	for c, want := range wantByCentroid {
		got := children[c]
		if len(got) != len(want) {
			t.Fatalf("centroid %d: got %v, want %v", c, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("centroid %d: got %v, want %v", c, got, want)
			}
		}
	}
}

func TestKMeansClustersAtMostAvailableVectors(t *testing.T) {
	vectors := NewMatrix(3, 2)
	for i := range vectors.Data {
		vectors.Data[i] = float32(i)
	}
	kernel := DefaultKernel{}
	result := kernel.KMeans(vectors, 10, DefaultKMeansConfig(), NewRand(1))
	if result.Centroids.Rows() != 3 {
		t.Fatalf("expected clusters clamped to vector count, got %d", result.Centroids.Rows())
	}
}
