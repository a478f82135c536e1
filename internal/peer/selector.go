package peer

import (
	"math"
	"slices"

	"floodsim/internal/dataType"

	"gonum.org/v1/gonum/stat"
)

const (
	DefaultMaxClusters = 3
	maxIterations      = 100
)

// SelectForwardSet partitions neighbors into at most maxClusters quality bands
// with one-dimensional k-means and returns the ports of the best band.
// A redundancy above zero caps the number of returned ports.
func SelectForwardSet(neighbors []dataType.NeighborEntry, maxClusters, redundancy int) []dataType.Port {
	switch len(neighbors) {
	case 0:
		return nil
	case 1:
		return []dataType.Port{neighbors[0].Port}
	}
	if maxClusters <= 0 {
		maxClusters = DefaultMaxClusters
	}

	values := whiten(neighbors)
	centroids := initialCentroids(values, maxClusters)
	labels := kmeans(values, centroids)

	best := 0
	for i, c := range centroids {
		if c > centroids[best] {
			best = i
		}
	}

	seen := make(map[dataType.Port]struct{}, len(neighbors))
	var out []dataType.Port
	for i, n := range neighbors {
		if labels[i] != best {
			continue
		}
		if _, dup := seen[n.Port]; dup {
			continue
		}
		seen[n.Port] = struct{}{}
		out = append(out, n.Port)
		if redundancy > 0 && len(out) >= redundancy {
			break
		}
	}
	return out
}

// whiten scales qualities to unit variance. Flat inputs are left as is.
func whiten(neighbors []dataType.NeighborEntry) []float64 {
	values := make([]float64, len(neighbors))
	for i, n := range neighbors {
		values[i] = float64(n.Quality)
	}
	sd := stat.StdDev(values, nil)
	if sd == 0 || math.IsNaN(sd) {
		return values
	}
	for i := range values {
		values[i] /= sd
	}
	return values
}

// initialCentroids picks k evenly spaced values from the sorted distinct
// inputs, where k is bounded by the number of distinct values.
func initialCentroids(values []float64, maxClusters int) []float64 {
	distinct := slices.Clone(values)
	slices.Sort(distinct)
	distinct = slices.Compact(distinct)

	k := min(len(distinct), maxClusters)
	centroids := make([]float64, k)
	if k == 1 {
		centroids[0] = distinct[0]
		return centroids
	}
	for i := range k {
		centroids[i] = distinct[i*(len(distinct)-1)/(k-1)]
	}
	return centroids
}

// kmeans runs Lloyd iterations in place on centroids and returns the final
// assignment of each value. Ties go to the lower centroid index.
func kmeans(values, centroids []float64) []int {
	labels := make([]int, len(values))
	for iter := 0; iter < maxIterations; iter++ {
		changed := iter == 0
		for i, v := range values {
			l := nearest(v, centroids)
			if l != labels[i] {
				labels[i] = l
				changed = true
			}
		}
		if !changed {
			break
		}

		sums := make([]float64, len(centroids))
		counts := make([]int, len(centroids))
		for i, v := range values {
			sums[labels[i]] += v
			counts[labels[i]]++
		}
		for c := range centroids {
			// An empty cluster keeps its previous centroid.
			if counts[c] > 0 {
				centroids[c] = sums[c] / float64(counts[c])
			}
		}
	}
	return labels
}

func nearest(v float64, centroids []float64) int {
	best := 0
	bestDist := math.Abs(v - centroids[0])
	for c := 1; c < len(centroids); c++ {
		if d := math.Abs(v - centroids[c]); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
