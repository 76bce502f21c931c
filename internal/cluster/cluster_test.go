package cluster

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/tyler180/epl-player-stats/internal/dataset"
	"github.com/tyler180/epl-player-stats/internal/frame"
)

func blobs(centres [][2]float64, per int) *mat.Dense {
	x := mat.NewDense(len(centres)*per, 2, nil)
	r := 0
	for _, c := range centres {
		for i := 0; i < per; i++ {
			dx := float64(i%3) * 0.05
			dy := float64(i/3) * 0.05
			x.Set(r, 0, c[0]+dx)
			x.Set(r, 1, c[1]+dy)
			r++
		}
	}
	return x
}

func TestKMeans_SeparatesBlobsDeterministically(t *testing.T) {
	x := blobs([][2]float64{{0, 0}, {10, 10}}, 6)
	a, err := KMeans(x, 2, 42)
	require.NoError(t, err)
	b, err := KMeans(x, 2, 42)
	require.NoError(t, err)
	assert.Equal(t, a.Labels, b.Labels)

	for i := 1; i < 6; i++ {
		assert.Equal(t, a.Labels[0], a.Labels[i])
		assert.Equal(t, a.Labels[6], a.Labels[6+i])
	}
	assert.NotEqual(t, a.Labels[0], a.Labels[6])
	assert.Less(t, a.Inertia, 1.0)

	_, err = KMeans(x, 13, 42)
	assert.Error(t, err)
}

func TestSilhouette(t *testing.T) {
	x := mat.NewDense(4, 1, []float64{0, 1, 10, 11})
	assert.InDelta(t, 0.8997494, Silhouette(x, []int{0, 0, 1, 1}), 1e-6)

	single := mat.NewDense(3, 1, []float64{0, 1, 10})
	assert.InDelta(t, 0.5962963, Silhouette(single, []int{0, 0, 1}), 1e-6)
}

func TestSweep_PicksThreeBlobs(t *testing.T) {
	x := blobs([][2]float64{{0, 0}, {10, 0}, {0, 10}}, 6)
	res, err := Sweep(x, 2, 20, 42)
	require.NoError(t, err)
	assert.Equal(t, 3, res.BestK)
	assert.Equal(t, 2, res.Ks[0])
	assert.Equal(t, 17, res.Ks[len(res.Ks)-1], "k capped at n-1")
	assert.Len(t, res.Inertia, len(res.Ks))

	_, err = Sweep(mat.NewDense(2, 1, []float64{1, 2}), 2, 20, 42)
	assert.Error(t, err)
}

func TestStandardize(t *testing.T) {
	x := mat.NewDense(4, 2, []float64{1, 5, 2, 5, 3, 5, 4, 5})
	z := Standardize(x)
	col := mat.Col(nil, 0, z)
	assert.InDelta(t, -1.3416408, col[0], 1e-6)
	assert.InDelta(t, 1.3416408, col[3], 1e-6)
	assert.Equal(t, []float64{0, 0, 0, 0}, mat.Col(nil, 1, z))
}

func TestPCA_LineIsOneComponent(t *testing.T) {
	x := mat.NewDense(5, 2, []float64{0, 0, 1, 2, 2, 4, 3, 6, 4, 8})
	p, err := PCA(x)
	require.NoError(t, err)
	require.Len(t, p.Explained, 2)
	assert.InDelta(t, 1.0, p.Explained[0], 1e-9)
	assert.InDelta(t, 0.0, p.Explained[1], 1e-9)
	assert.InDelta(t, 0.0, p.Points[2][0], 1e-9, "middle point sits at the mean")
	assert.InDelta(t, math.Sqrt(20), math.Abs(p.Points[0][0]), 1e-9)
}

func TestAnalyze_EndToEnd(t *testing.T) {
	var b strings.Builder
	b.WriteString("Player,Team,Minutes,Goals,Tkl,Save%\n")
	for i := 0; i < 6; i++ {
		fmt.Fprintf(&b, "Fwd %d,Arsenal,1000,%d,%d,N/a\n", i, 20+i, 1+i)
		fmt.Fprintf(&b, "Def %d,Chelsea,1000,%d,%d,N/a\n", i, i, 40+i)
	}
	f, err := frame.Read(strings.NewReader(b.String()))
	require.NoError(t, err)
	d := dataset.FromFrame(f)

	a, err := Analyze(d, 2, 5, 42)
	require.NoError(t, err)
	assert.Equal(t, []string{"Goals", "Tkl"}, a.Features, "all-NaN Save% is dropped")
	assert.Equal(t, 2, a.Sweep.BestK)
	assert.NotEqual(t, a.Fit.Labels[0], a.Fit.Labels[1])

	asg := a.AssignmentsFrame()
	assert.Equal(t, []string{"Player", "Team", "Cluster", "PC1", "PC2"}, asg.Header)
	assert.Equal(t, 12, asg.Len())
	assert.Equal(t, "Fwd 0", asg.Rows[0][0])

	var buf bytes.Buffer
	require.NoError(t, a.WriteExplanation(&buf))
	out := buf.String()
	assert.Contains(t, out, "The chosen number of clusters is 2")
	assert.Contains(t, out, "Explained variance ratio")
	assert.Contains(t, out, "Cluster 0 (6 players)")
}
