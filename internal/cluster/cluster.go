// Package cluster groups feature vectors. KMeans is seeded and deterministic
// for a given seed; DBSCAN labels outliers as Noise.
package cluster

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Noise is the DBSCAN label for points that belong to no cluster.
const Noise = -1

// ErrInvalidK is returned when k is outside [1, len(points)].
var ErrInvalidK = errors.New("invalid cluster count")

// Defaults used when a caller picks a method without tuning it.
const (
	DefaultK         = 3
	DefaultEps       = 0.5
	DefaultMinPoints = 5
)

// maxIterations bounds Lloyd's loop when assignments keep oscillating.
const maxIterations = 300

// Clusterer assigns one label per input row.
type Clusterer interface {
	Fit(points [][]float64) ([]int, error)
	Name() string
}

// KMeansClusterer adapts KMeans to Clusterer.
type KMeansClusterer struct {
	K    int
	Seed int64
}

func (c KMeansClusterer) Fit(points [][]float64) ([]int, error) {
	return KMeans(points, c.K, c.Seed)
}

func (c KMeansClusterer) Name() string { return fmt.Sprintf("kmeans(k=%d)", c.K) }

// DBSCANClusterer adapts DBSCAN to Clusterer.
type DBSCANClusterer struct {
	Eps       float64
	MinPoints int
}

func (c DBSCANClusterer) Fit(points [][]float64) ([]int, error) {
	if !(c.Eps > 0) || math.IsInf(c.Eps, 1) {
		return nil, fmt.Errorf("dbscan: eps must be positive and finite, got %v", c.Eps)
	}
	if c.MinPoints < 1 {
		return nil, fmt.Errorf("dbscan: min points must be at least 1, got %d", c.MinPoints)
	}
	return DBSCAN(points, c.Eps, c.MinPoints), nil
}

func (c DBSCANClusterer) Name() string {
	return fmt.Sprintf("dbscan(eps=%g,min=%d)", c.Eps, c.MinPoints)
}

// Standardize scales every column to zero mean and unit variance (population
// standard deviation). Zero-variance columns become all zeros. The input is
// not modified.
func Standardize(points [][]float64) [][]float64 {
	out := make([][]float64, len(points))
	if len(points) == 0 {
		return out
	}
	dims := len(points[0])
	for i := range out {
		out[i] = make([]float64, dims)
	}

	col := make([]float64, len(points))
	for j := 0; j < dims; j++ {
		for i, p := range points {
			col[i] = p[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		// Rounding leaves a tiny spread on constant columns.
		if std <= 1e-12*math.Max(1, math.Abs(mean)) {
			continue
		}
		for i, v := range col {
			out[i][j] = stat.StdScore(v, mean, std)
		}
	}
	return out
}

// KMeans partitions points into k clusters using Lloyd's algorithm with
// k-means++ seeding. Labels are in [0, k).
func KMeans(points [][]float64, k int, seed int64) ([]int, error) {
	if k < 1 || k > len(points) {
		return nil, fmt.Errorf("kmeans: k=%d for %d points: %w", k, len(points), ErrInvalidK)
	}
	rng := rand.New(rand.NewSource(seed))
	centroids := seedCentroids(points, k, rng)
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = -1
	}

	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, p := range points {
			best := nearest(p, centroids)
			if best != labels[i] {
				labels[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}
		recenter(points, labels, centroids)
	}
	return labels, nil
}

// seedCentroids picks the first centroid uniformly and each next one with
// probability proportional to its squared distance from the closest chosen.
func seedCentroids(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, slices.Clone(points[rng.Intn(len(points))]))

	dist := make([]float64, len(points))
	for len(centroids) < k {
		var total float64
		for i, p := range points {
			d := floats.Distance(p, centroids[nearest(p, centroids)], 2)
			dist[i] = d * d
			total += dist[i]
		}
		// All remaining points coincide with a centroid.
		if total == 0 {
			centroids = append(centroids, slices.Clone(points[rng.Intn(len(points))]))
			continue
		}
		target := rng.Float64() * total
		pick := len(points) - 1
		for i, d := range dist {
			target -= d
			if target <= 0 {
				pick = i
				break
			}
		}
		centroids = append(centroids, slices.Clone(points[pick]))
	}
	return centroids
}

// recenter moves each centroid to the mean of its members. Empty clusters
// keep their previous position.
func recenter(points [][]float64, labels []int, centroids [][]float64) {
	dims := len(centroids[0])
	sums := make([][]float64, len(centroids))
	counts := make([]int, len(centroids))
	for c := range sums {
		sums[c] = make([]float64, dims)
	}
	for i, p := range points {
		c := labels[i]
		counts[c]++
		floats.Add(sums[c], p)
	}
	for c := range centroids {
		if counts[c] == 0 {
			continue
		}
		floats.ScaleTo(centroids[c], 1/float64(counts[c]), sums[c])
	}
}

func nearest(p []float64, centroids [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := floats.Distance(p, centroid, 2); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// unvisited marks points DBSCAN has not labelled yet.
const unvisited = -2

// DBSCAN labels density-connected points with cluster ids starting at 0 in
// input order; points with fewer than minPoints neighbours within eps (the
// point itself included) that are not reachable from a core point get Noise.
// Every point enters the expansion queue at most once.
func DBSCAN(points [][]float64, eps float64, minPoints int) []int {
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = unvisited
	}

	var nbrs, queue []int
	next := 0
	for i := range points {
		if labels[i] != unvisited {
			continue
		}
		nbrs = neighbours(points, i, eps, nbrs)
		if len(nbrs) < minPoints {
			labels[i] = Noise
			continue
		}

		cluster := next
		next++
		labels[i] = cluster
		queue = claim(nbrs, labels, cluster, queue[:0])
		for q := 0; q < len(queue); q++ {
			nbrs = neighbours(points, queue[q], eps, nbrs)
			if len(nbrs) >= minPoints {
				queue = claim(nbrs, labels, cluster, queue)
			}
		}
	}
	return labels
}

// claim gives cluster to every unlabelled point of nbrs. Unvisited points are
// queued for expansion; Noise points become border points and are not.
func claim(nbrs, labels []int, cluster int, queue []int) []int {
	for _, j := range nbrs {
		switch labels[j] {
		case unvisited:
			labels[j] = cluster
			queue = append(queue, j)
		case Noise:
			labels[j] = cluster
		}
	}
	return queue
}

// neighbours writes the indexes of points within eps of points[i] into buf.
func neighbours(points [][]float64, i int, eps float64, buf []int) []int {
	buf = buf[:0]
	for j, p := range points {
		if floats.Distance(points[i], p, 2) <= eps {
			buf = append(buf, j)
		}
	}
	return buf
}

// Params selects and tunes a clustering method.
type Params struct {
	Method    string
	K         int
	Seed      int64
	Eps       float64
	MinPoints int
}

// New returns the Clusterer named by p.Method: "kmeans" or "dbscan". An empty
// method or "none" returns nil, meaning no clustering.
func New(p Params) (Clusterer, error) {
	switch p.Method {
	case "", "none":
		return nil, nil
	case "kmeans":
		if p.K < 1 {
			return nil, fmt.Errorf("kmeans: k=%d: %w", p.K, ErrInvalidK)
		}
		return KMeansClusterer{K: p.K, Seed: p.Seed}, nil
	case "dbscan":
		return DBSCANClusterer{Eps: p.Eps, MinPoints: p.MinPoints}, nil
	default:
		return nil, fmt.Errorf("unknown cluster method %q (want kmeans or dbscan)", p.Method)
	}
}
