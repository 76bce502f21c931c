package cluster

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/tyler180/epl-player-stats/internal/dataset"
	"github.com/tyler180/epl-player-stats/internal/frame"
)

// Analysis is the full clustering run over a dataset.
type Analysis struct {
	Features   []string
	Sweep      SweepResult
	Fit        Result
	Projection Projection
	Profiles   []Profile

	players []string
	teams   []string
}

// Profile describes one cluster by its most pronounced standardized stats.
type Profile struct {
	Cluster int
	Size    int
	High    []string
	Low     []string
}

// Analyze imputes, standardizes, sweeps k in [minK, maxK], refits at the
// best k and projects onto two principal components.
func Analyze(d *dataset.Dataset, minK, maxK int, seed uint64) (*Analysis, error) {
	x, names := Features(d)
	if x == nil {
		return nil, errors.New("no numeric stats to cluster")
	}
	z := Standardize(x)

	sw, err := Sweep(z, minK, maxK, seed)
	if err != nil {
		return nil, err
	}
	fit, err := KMeans(z, sw.BestK, seed)
	if err != nil {
		return nil, err
	}
	proj, err := PCA(z)
	if err != nil {
		return nil, err
	}

	a := &Analysis{Features: names, Sweep: sw, Fit: fit, Projection: proj}
	for r := 0; r < d.Len(); r++ {
		a.players = append(a.players, d.Player(r))
		a.teams = append(a.teams, d.Team(r))
	}
	a.Profiles = profiles(fit, names, 3)
	return a, nil
}

func profiles(fit Result, names []string, top int) []Profile {
	out := make([]Profile, fit.K)
	for c := range out {
		out[c].Cluster = c
	}
	for _, l := range fit.Labels {
		out[l].Size++
	}
	for c, ctr := range fit.Centroids {
		idx := make([]int, len(ctr))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(i, j int) bool { return ctr[idx[i]] > ctr[idx[j]] })
		n := min(top, len(idx))
		for _, i := range idx[:n] {
			out[c].High = append(out[c].High, names[i])
		}
		for k := len(idx) - 1; k >= len(idx)-n; k-- {
			out[c].Low = append(out[c].Low, names[idx[k]])
		}
	}
	return out
}

// AssignmentsFrame is player_clusters.csv.
func (a *Analysis) AssignmentsFrame() *frame.Frame {
	rows := make([][]string, len(a.Fit.Labels))
	for i, l := range a.Fit.Labels {
		pt := a.Projection.Points[i]
		rows[i] = []string{
			a.players[i], a.teams[i], strconv.Itoa(l),
			strconv.FormatFloat(pt[0], 'f', 4, 64), strconv.FormatFloat(pt[1], 'f', 4, 64),
		}
	}
	return frame.New([]string{"Player", "Team", "Cluster", "PC1", "PC2"}, rows)
}

// WriteExplanation renders clustering_explanation.txt.
func (a *Analysis) WriteExplanation(w io.Writer) error {
	p := &errWriter{w: w}
	k := a.Sweep.BestK
	p.printf("=== Player Clustering Analysis ===\n\n")
	p.printf("1. Optimal number of clusters:\n")
	p.printf("The chosen number of clusters is %d, the k with the highest silhouette score among k=%d..%d.\n",
		k, a.Sweep.Ks[0], a.Sweep.Ks[len(a.Sweep.Ks)-1])
	p.printf("- The elbow curve (inertia) drops steeply for small k but rarely shows a sharp elbow on its own.\n")
	p.printf("- The silhouette score measures how close players are to their own cluster compared with the nearest other cluster; its peak at k=%d gives the best separated grouping.\n", k)
	p.printf("- %d groups is plausible for football roles: goalkeepers, defenders, midfielders, forwards and more specialised profiles.\n", k)
	p.printf("\nScores per k:\n")
	for i, kk := range a.Sweep.Ks {
		p.printf("  k=%-2d inertia=%.2f silhouette=%.4f\n", kk, a.Sweep.Inertia[i], a.Sweep.Silhouette[i])
	}

	p.printf("\n2. Cluster results:\n")
	p.printf("- 'player_clusters.png' shows every player projected onto two principal components, coloured by cluster.\n")
	ev := a.Projection.Explained
	var sum float64
	for _, v := range ev {
		sum += v
	}
	p.printf("- Explained variance ratio of the two components: %s, total %.2f.", formatRatios(ev), sum)
	if sum < 0.7 {
		p.printf(" Below 0.7, so the 2-D chart hides part of the structure.")
	}
	p.printf("\n")
	for _, pr := range a.Profiles {
		p.printf("  + Cluster %d (%d players): high %v; low %v\n", pr.Cluster, pr.Size, pr.High, pr.Low)
	}
	p.printf("- Missing values were filled with the column mean, which blurs stats that only apply to some positions (Save%% for outfield players).\n")
	return p.err
}

func formatRatios(v []float64) string {
	s := ""
	for i, x := range v {
		if i > 0 {
			s += " and "
		}
		s += fmt.Sprintf("%.2f", x)
	}
	return s
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
