package cluster

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Silhouette is the mean silhouette coefficient over all samples using
// Euclidean distance. Samples alone in their cluster score 0.
func Silhouette(x mat.Matrix, labels []int) float64 {
	rows := rowsOf(x)
	n := len(rows)
	if n == 0 {
		return math.NaN()
	}
	k := 0
	for _, l := range labels {
		k = max(k, l+1)
	}
	size := make([]int, k)
	for _, l := range labels {
		size[l]++
	}

	total := 0.0
	sums := make([]float64, k)
	for i := range rows {
		for c := range sums {
			sums[c] = 0
		}
		for j := range rows {
			if i == j {
				continue
			}
			sums[labels[j]] += floats.Distance(rows[i], rows[j], 2)
		}
		own := labels[i]
		if size[own] <= 1 {
			continue
		}
		a := sums[own] / float64(size[own]-1)
		b := math.Inf(1)
		for c := range sums {
			if c == own || size[c] == 0 {
				continue
			}
			b = math.Min(b, sums[c]/float64(size[c]))
		}
		if math.IsInf(b, 1) {
			continue
		}
		if m := math.Max(a, b); m > 0 {
			total += (b - a) / m
		}
	}
	return total / float64(n)
}

// SweepResult records inertia and silhouette for each k tried.
type SweepResult struct {
	Ks         []int
	Inertia    []float64
	Silhouette []float64
	BestK      int
}

// Sweep fits k-means for every k in [minK, maxK] (capped at n-1) and picks
// the k with the highest silhouette; the smallest k wins ties.
func Sweep(x mat.Matrix, minK, maxK int, seed uint64) (SweepResult, error) {
	n, _ := x.Dims()
	if minK < 2 {
		minK = 2
	}
	maxK = min(maxK, n-1)
	if maxK < minK {
		return SweepResult{}, fmt.Errorf("need at least %d samples to cluster, have %d", minK+1, n)
	}
	var res SweepResult
	best := math.Inf(-1)
	for k := minK; k <= maxK; k++ {
		fit, err := KMeans(x, k, seed)
		if err != nil {
			return SweepResult{}, err
		}
		s := Silhouette(x, fit.Labels)
		res.Ks = append(res.Ks, k)
		res.Inertia = append(res.Inertia, fit.Inertia)
		res.Silhouette = append(res.Silhouette, s)
		if s > best {
			best, res.BestK = s, k
		}
	}
	return res, nil
}

// Projection is the data expressed in its leading principal components.
type Projection struct {
	Points    [][2]float64
	Explained []float64 // ratio of total variance per component
}

// PCA projects x onto its first two principal components.
func PCA(x mat.Matrix) (Projection, error) {
	n, dim := x.Dims()
	if n < 2 || dim < 1 {
		return Projection{}, errors.New("not enough data for PCA")
	}
	var pc stat.PC
	if ok := pc.PrincipalComponents(x, nil); !ok {
		return Projection{}, errors.New("PCA decomposition failed")
	}
	vars := pc.VarsTo(nil)
	var vecs mat.Dense
	pc.VectorsTo(&vecs)

	comps := min(2, len(vars))
	centered := mat.DenseCopyOf(x)
	col := make([]float64, n)
	for j := 0; j < dim; j++ {
		mat.Col(col, j, centered)
		mean := stat.Mean(col, nil)
		for i := range col {
			centered.Set(i, j, col[i]-mean)
		}
	}
	var proj mat.Dense
	proj.Mul(centered, vecs.Slice(0, dim, 0, comps))

	total := floats.Sum(vars)
	out := Projection{Points: make([][2]float64, n), Explained: make([]float64, comps)}
	for c := 0; c < comps; c++ {
		if total > 0 {
			out.Explained[c] = vars[c] / total
		}
	}
	for i := 0; i < n; i++ {
		for c := 0; c < comps; c++ {
			out.Points[i][c] = proj.At(i, c)
		}
	}
	return out, nil
}
