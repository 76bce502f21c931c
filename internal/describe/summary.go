package describe

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/tyler180/epl-player-stats/internal/dataset"
	"github.com/tyler180/epl-player-stats/internal/frame"
)

const AllColumn = "all"

// Moments are the per-group figures written to results2.csv.
type Moments struct {
	Median float64
	Mean   float64
	Std    float64
}

// Describe computes median, mean and sample std over the non-NaN values.
// Empty input gives NaNs, a single value gives a NaN std.
func Describe(values []float64) Moments {
	v := dataset.Valid(values)
	if len(v) == 0 {
		return Moments{math.NaN(), math.NaN(), math.NaN()}
	}
	m := Moments{Median: Median(v), Mean: stat.Mean(v, nil), Std: math.NaN()}
	if len(v) > 1 {
		m.Std = stat.StdDev(v, nil)
	}
	return m
}

// Median averages the two middle values for even lengths.
func Median(values []float64) float64 {
	v := dataset.Valid(values)
	if len(v) == 0 {
		return math.NaN()
	}
	sort.Float64s(v)
	mid := len(v) / 2
	if len(v)%2 == 1 {
		return v[mid]
	}
	return (v[mid-1] + v[mid]) / 2
}

// Summaries builds results2.csv: a Median, Mean and Std row per stat with a
// column per team and a final "all" column.
func Summaries(d *dataset.Dataset) *frame.Frame {
	teams := d.Teams()
	header := append([]string{"Statistic"}, teams...)
	header = append(header, AllColumn)

	var rows [][]string
	for _, s := range d.Stats {
		all := Describe(d.Stat(s))
		if math.IsNaN(all.Mean) {
			continue
		}
		per := make([]Moments, len(teams))
		for i, t := range teams {
			per[i] = Describe(d.TeamStat(t, s))
		}
		for _, kind := range []string{"Median", "Mean", "Std"} {
			row := []string{fmt.Sprintf("%s of %s", kind, s)}
			for _, m := range per {
				row = append(row, frame.FormatFloat(m.pick(kind)))
			}
			row = append(row, frame.FormatFloat(all.pick(kind)))
			rows = append(rows, row)
		}
	}
	return frame.New(header, rows)
}

func (m Moments) pick(kind string) float64 {
	switch kind {
	case "Median":
		return m.Median
	case "Mean":
		return m.Mean
	default:
		return m.Std
	}
}
