package cluster

import (
	"errors"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	maxIter   = 300
	tolerance = 1e-4
)

// Result of one k-means fit.
type Result struct {
	K         int
	Labels    []int
	Centroids [][]float64
	Inertia   float64
	Iter      int
}

// KMeans clusters the rows of x into k groups with k-means++ seeding and
// Lloyd iterations. The same seed always gives the same result.
func KMeans(x mat.Matrix, k int, seed uint64) (Result, error) {
	n, dim := x.Dims()
	if k < 1 || k > n {
		return Result{}, errors.New("k must be between 1 and the number of samples")
	}
	rows := rowsOf(x)
	rng := rand.New(rand.NewPCG(seed, seed))

	centroids := seedPlusPlus(rows, k, rng)
	labels := make([]int, n)
	iter := 0
	for iter = 1; iter <= maxIter; iter++ {
		assign(rows, centroids, labels)

		next := make([][]float64, k)
		counts := make([]int, k)
		for c := range next {
			next[c] = make([]float64, dim)
		}
		for i, r := range rows {
			floats.Add(next[labels[i]], r)
			counts[labels[i]]++
		}
		shift := 0.0
		for c := range next {
			if counts[c] == 0 {
				// empty cluster: re-seed on the point furthest from its centroid
				far := furthest(rows, centroids, labels)
				copy(next[c], rows[far])
				labels[far] = c
			} else {
				floats.Scale(1/float64(counts[c]), next[c])
			}
			shift += floats.Distance(next[c], centroids[c], 2)
		}
		centroids = next
		if shift <= tolerance {
			break
		}
	}
	assign(rows, centroids, labels)

	return Result{
		K:         k,
		Labels:    labels,
		Centroids: centroids,
		Inertia:   inertia(rows, centroids, labels),
		Iter:      min(iter, maxIter),
	}, nil
}

func rowsOf(x mat.Matrix) [][]float64 {
	n, dim := x.Dims()
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, dim)
		mat.Row(rows[i], i, x)
	}
	return rows
}

// seedPlusPlus picks each next centre with probability proportional to the
// squared distance from the nearest centre chosen so far.
func seedPlusPlus(rows [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(rows)
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, append([]float64(nil), rows[rng.IntN(n)]...))

	d2 := make([]float64, n)
	for i, r := range rows {
		d2[i] = sqDist(r, centroids[0])
	}
	for len(centroids) < k {
		total := floats.Sum(d2)
		pick := 0
		if total > 0 {
			target := rng.Float64() * total
			acc := 0.0
			for i, d := range d2 {
				acc += d
				if acc >= target {
					pick = i
					break
				}
			}
		} else {
			pick = rng.IntN(n)
		}
		c := append([]float64(nil), rows[pick]...)
		centroids = append(centroids, c)
		for i, r := range rows {
			d2[i] = math.Min(d2[i], sqDist(r, c))
		}
	}
	return centroids
}

func assign(rows, centroids [][]float64, labels []int) {
	for i, r := range rows {
		best, bestD := 0, math.Inf(1)
		for c, ctr := range centroids {
			if d := sqDist(r, ctr); d < bestD {
				best, bestD = c, d
			}
		}
		labels[i] = best
	}
}

func furthest(rows, centroids [][]float64, labels []int) int {
	far, farD := 0, -1.0
	for i, r := range rows {
		if d := sqDist(r, centroids[labels[i]]); d > farD {
			far, farD = i, d
		}
	}
	return far
}

func inertia(rows, centroids [][]float64, labels []int) float64 {
	total := 0.0
	for i, r := range rows {
		total += sqDist(r, centroids[labels[i]])
	}
	return total
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}
