package mipskernel

// KMeansResult pairs cluster centroids with the hard assignment of each
// input row to a centroid index. Invariant: every assignment is < k, and
// centroids live in the same coordinate space as the clustered rows.
type KMeansResult struct {
	Centroids   *Matrix
	Assignments []int
}

// Children inverts Assignments into, for each centroid, the list of row
// ids assigned to it. Used to build the child index of a
// hierarchical-kmeans layer.
func (r KMeansResult) Children() [][]int {
	k := r.Centroids.Rows()
	children := make([][]int, k)
	for id, c := range r.Assignments {
		children[c] = append(children[c], id)
	}
	return children
}

// NearestCentroid recomputes the hard assignment of row by an independent
// argmin-squared-distance pass over centroids, used to verify k-means
// stability against the assignments a build produced.
func NearestCentroid(row []float32, centroids *Matrix) int {
	best := 0
	var bestDist float32
	for j, x := range row {
		diff := x - centroids.At(0, j)
		bestDist += diff * diff
	}
	for c := 1; c < centroids.Rows(); c++ {
		var dist float32
		crow := centroids.Row(c)
		for j, x := range row {
			diff := x - crow[j]
			dist += diff * diff
		}
		if dist < bestDist {
			bestDist = dist
			best = c
		}
	}
	return best
}
