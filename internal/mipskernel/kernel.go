package mipskernel

import "math"

// NumericKernel is the external numeric collaborator the indexing core
// consumes: inner product, squared L2 norm, and k-means clustering. The
// spec treats this as an external collaborator whose behavior is not part
// of this package's contract — DefaultKernel is a reference implementation
// good enough to drive the indexes and their tests.
type NumericKernel interface {
	InnerProduct(a, b []float32) float32
	NormL2Sq(a []float32) float32
	KMeans(vectors *Matrix, k int, cfg KMeansConfig, rng *Rand) KMeansResult
}

// KMeansConfig controls the clustering primitive.
type KMeansConfig struct {
	Iterations int
}

// DefaultKMeansConfig mirrors the teacher's quantization.DefaultConfig
// iteration count.
func DefaultKMeansConfig() KMeansConfig {
	return KMeansConfig{Iterations: 25}
}

// DefaultKernel is a pure-Go numeric kernel grounded on
// internal/quantization/utils.go's DotProductFloat32, NormL2 and
// KMeansPlusPlus from the teacher repo.
type DefaultKernel struct{}

func (DefaultKernel) InnerProduct(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func (DefaultKernel) NormL2Sq(a []float32) float32 {
	var sum float32
	for _, x := range a {
		sum += x * x
	}
	return sum
}

// KMeans clusters vectors into k centroids using k-means++ initialization
// followed by Lloyd iterations, exactly as
// internal/quantization/utils.go:KMeansPlusPlus does in the teacher repo,
// but parameterized by the shared seedable Rand instead of math/rand
// directly. Seeding and assignment both use squared Euclidean distance
// (min is best), matching spec.md §4's k-means contract. Its callers are
// hkmeans (augmented rows), subpq (permuted, unaugmented subvectors) and
// ivf (raw rows); alsh does not cluster. The clustering kernel itself
// never uses InnerProduct.
func (k DefaultKernel) KMeans(vectors *Matrix, clusters int, cfg KMeansConfig, rng *Rand) KMeansResult {
	n := vectors.Rows()
	d := vectors.Dim
	if clusters < 1 {
		clusters = 1
	}
	if clusters > n {
		clusters = n
	}

	centroids := NewMatrix(clusters, d)

	// k-means++ initialization using squared Euclidean distance.
	first := rng.Intn(n)
	copy(centroids.Row(0), vectors.Row(first))

	sqDist := func(a, b []float32) float32 {
		var s float32
		for i := range a {
			diff := a[i] - b[i]
			s += diff * diff
		}
		return s
	}

	for c := 1; c < clusters; c++ {
		distances := make([]float32, n)
		var total float32
		for i := 0; i < n; i++ {
			best := float32(math.MaxFloat32)
			for j := 0; j < c; j++ {
				dist := sqDist(vectors.Row(i), centroids.Row(j))
				if dist < best {
					best = dist
				}
			}
			distances[i] = best
			total += best
		}

		if total > 0 {
			target := rng.Float32() * total
			var cumulative float32
			chosen := n - 1
			for i, dist := range distances {
				cumulative += dist
				if cumulative >= target {
					chosen = i
					break
				}
			}
			copy(centroids.Row(c), vectors.Row(chosen))
		} else {
			copy(centroids.Row(c), vectors.Row(rng.Intn(n)))
		}
	}

	assignments := make([]int, n)
	iterations := cfg.Iterations
	if iterations <= 0 {
		iterations = DefaultKMeansConfig().Iterations
	}

	for iter := 0; iter < iterations; iter++ {
		sums := NewMatrix(clusters, d)
		counts := make([]int, clusters)

		for i := 0; i < n; i++ {
			best := 0
			bestDist := float32(math.MaxFloat32)
			row := vectors.Row(i)
			for c := 0; c < clusters; c++ {
				dist := sqDist(row, centroids.Row(c))
				if dist < bestDist {
					bestDist = dist
					best = c
				}
			}
			assignments[i] = best
			counts[best]++
			sumRow := sums.Row(best)
			for j, v := range row {
				sumRow[j] += v
			}
		}

		converged := true
		for c := 0; c < clusters; c++ {
			if counts[c] == 0 {
				continue
			}
			newCentroid := sums.Row(c)
			for j := range newCentroid {
				newCentroid[j] /= float32(counts[c])
			}
			if sqDist(centroids.Row(c), newCentroid) > 1e-12 {
				converged = false
			}
			copy(centroids.Row(c), newCentroid)
		}
		if converged {
			break
		}
	}

	return KMeansResult{Centroids: centroids, Assignments: assignments}
}
