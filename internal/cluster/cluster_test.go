package cluster

import (
	"errors"
	"math"
	"reflect"
	"runtime"
	"testing"
)

func twoBlobs() [][]float64 {
	return [][]float64{
		{0, 0}, {0.1, 0.2}, {0.2, 0.1}, {0.1, 0},
		{10, 10}, {10.1, 10.2}, {9.9, 10}, {10, 9.8},
	}
}

func TestStandardize(t *testing.T) {
	in := [][]float64{{1, 5}, {2, 5}, {3, 5}}
	out := Standardize(in)

	var sum, sq float64
	for _, r := range out {
		sum += r[0]
		sq += r[0] * r[0]
		if r[1] != 0 {
			t.Errorf("zero-variance column should be 0, got %v", r[1])
		}
	}
	if math.Abs(sum) > 1e-9 {
		t.Errorf("mean: want 0, got %v", sum/3)
	}
	if math.Abs(sq/3-1) > 1e-9 {
		t.Errorf("variance: want 1, got %v", sq/3)
	}
	if in[0][0] != 1 {
		t.Error("Standardize must not modify its input")
	}
	for _, r := range Standardize([][]float64{{0.1}, {0.1}, {0.1}}) {
		if r[0] != 0 {
			t.Errorf("constant fractional column should be 0, got %v", r[0])
		}
	}
	if got := Standardize(nil); len(got) != 0 {
		t.Errorf("empty input: %v", got)
	}
}

func TestKMeans_SeparatesBlobs(t *testing.T) {
	labels, err := KMeans(twoBlobs(), 2, 42)
	if err != nil {
		t.Fatalf("KMeans: %v", err)
	}
	for i := 1; i < 4; i++ {
		if labels[i] != labels[0] {
			t.Errorf("point %d should share cluster with point 0: %v", i, labels)
		}
	}
	for i := 5; i < 8; i++ {
		if labels[i] != labels[4] {
			t.Errorf("point %d should share cluster with point 4: %v", i, labels)
		}
	}
	if labels[0] == labels[4] {
		t.Errorf("blobs should land in different clusters: %v", labels)
	}
}

func TestKMeans_DeterministicForSeed(t *testing.T) {
	pts := [][]float64{{1, 2}, {3, 1}, {4, 4}, {8, 1}, {2, 9}, {7, 7}, {5, 5}, {0, 3}}
	a, err := KMeans(pts, 3, 7)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := KMeans(pts, 3, 7)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("same seed gave different labels: %v vs %v", a, b)
	}
	for _, l := range a {
		if l < 0 || l >= 3 {
			t.Errorf("label %d out of range", l)
		}
	}
}

func TestKMeans_InvalidK(t *testing.T) {
	for _, k := range []int{0, -1, 9} {
		if _, err := KMeans(twoBlobs(), k, 1); !errors.Is(err, ErrInvalidK) {
			t.Errorf("k=%d: expected ErrInvalidK, got %v", k, err)
		}
	}
}

func TestKMeans_IdenticalPoints(t *testing.T) {
	pts := [][]float64{{1, 1}, {1, 1}, {1, 1}}
	labels, err := KMeans(pts, 2, 3)
	if err != nil {
		t.Fatalf("KMeans: %v", err)
	}
	if len(labels) != 3 {
		t.Errorf("expected 3 labels, got %v", labels)
	}
}

func TestDBSCAN(t *testing.T) {
	pts := append(twoBlobs(), []float64{50, -50})
	labels := DBSCAN(pts, 0.5, 3)

	if labels[8] != Noise {
		t.Errorf("isolated point should be noise, got %d", labels[8])
	}
	if labels[0] != 0 || labels[4] != 1 {
		t.Errorf("clusters should be numbered in input order: %v", labels)
	}
	for i := 0; i < 4; i++ {
		if labels[i] != 0 {
			t.Errorf("point %d: want cluster 0, got %d", i, labels[i])
		}
	}
}

func TestDBSCAN_BorderPoint(t *testing.T) {
	// Point 3 has only one neighbour besides itself but is reachable from core point 2.
	pts := [][]float64{{0}, {0.5}, {1}, {1.9}}
	labels := DBSCAN(pts, 1, 3)
	want := []int{0, 0, 0, 0}
	if !reflect.DeepEqual(labels, want) {
		t.Errorf("want %v, got %v", want, labels)
	}
}

// Every point of a dense cluster is queued once, so expansion memory stays
// linear in the number of points.
func TestDBSCAN_DenseClusterLinearMemory(t *testing.T) {
	const n = 2000
	points := make([][]float64, n)
	for i := range points {
		points[i] = []float64{1, 2, 3}
	}

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	labels := DBSCAN(points, 0.5, 5)
	runtime.ReadMemStats(&after)

	for i, l := range labels {
		if l != 0 {
			t.Fatalf("point %d: label %d, want 0", i, l)
		}
	}
	// A queue that re-appends every neighbour list would hold n*n ints (32 MB).
	if alloc := after.TotalAlloc - before.TotalAlloc; alloc > 1<<20 {
		t.Errorf("DBSCAN allocated %d bytes for %d points", alloc, n)
	}
}

func TestClusterers(t *testing.T) {
	var c Clusterer = KMeansClusterer{K: 2, Seed: 42}
	if labels, err := c.Fit(twoBlobs()); err != nil || len(labels) != 8 {
		t.Errorf("kmeans Fit: %v %v", labels, err)
	}
	if c.Name() != "kmeans(k=2)" {
		t.Errorf("name: %s", c.Name())
	}

	for _, eps := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		c = DBSCANClusterer{Eps: eps, MinPoints: 2}
		if _, err := c.Fit(twoBlobs()); err == nil {
			t.Errorf("expected error for eps=%v", eps)
		}
	}
	c = DBSCANClusterer{Eps: 1, MinPoints: 2}
	if labels, err := c.Fit(twoBlobs()); err != nil || labels[0] == Noise {
		t.Errorf("dbscan Fit: %v %v", labels, err)
	}
}

func TestNew(t *testing.T) {
	if c, err := New(Params{}); c != nil || err != nil {
		t.Errorf("empty method should mean no clustering: %v %v", c, err)
	}
	if _, err := New(Params{Method: "kmeans"}); !errors.Is(err, ErrInvalidK) {
		t.Errorf("kmeans without k: expected ErrInvalidK, got %v", err)
	}
	if c, err := New(Params{Method: "dbscan", Eps: 0.5, MinPoints: 3}); err != nil || c.Name() != "dbscan(eps=0.5,min=3)" {
		t.Errorf("dbscan: %v %v", c, err)
	}
	if _, err := New(Params{Method: "spectral"}); err == nil {
		t.Error("expected error for unknown method")
	}
}
