package cluster

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/tyler180/epl-player-stats/internal/dataset"
)

// Features builds the player × stat matrix with NaNs replaced by the column
// mean. Columns with no values at all are dropped; the kept names are returned.
func Features(d *dataset.Dataset) (*mat.Dense, []string) {
	n := d.Len()
	var cols [][]float64
	var names []string
	for _, s := range d.Stats {
		raw := d.Stat(s)
		valid := dataset.Valid(raw)
		if len(valid) == 0 {
			continue
		}
		mean := stat.Mean(valid, nil)
		col := make([]float64, n)
		for i, v := range raw {
			if math.IsNaN(v) {
				v = mean
			}
			col[i] = v
		}
		cols = append(cols, col)
		names = append(names, s)
	}
	if n == 0 || len(cols) == 0 {
		return nil, names
	}
	x := mat.NewDense(n, len(cols), nil)
	for j, col := range cols {
		x.SetCol(j, col)
	}
	return x, names
}

// Standardize scales each column to zero mean and unit population variance.
// Constant columns are only centred.
func Standardize(x *mat.Dense) *mat.Dense {
	r, c := x.Dims()
	out := mat.NewDense(r, c, nil)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, x)
		mean, std := stat.PopMeanStdDev(col, nil)
		for i, v := range col {
			v -= mean
			if std > 0 {
				v /= std
			}
			out.Set(i, j, v)
		}
	}
	return out
}
