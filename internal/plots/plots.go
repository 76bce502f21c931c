package plots

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/tyler180/epl-player-stats/internal/dataset"
	"github.com/tyler180/epl-player-stats/internal/logging"
)

const Bins = 20

var (
	reUnsafeStat = regexp.MustCompile(`[^a-zA-Z0-9]`)
	reUnsafeTeam = regexp.MustCompile(`[\n<>:"/\\|?*()]`)
)

// SafeStat keeps only ASCII letters and digits.
func SafeStat(stat string) string {
	return reUnsafeStat.ReplaceAllString(stat, "_")
}

// SafeTeam replaces path-reserved characters and spaces, then trims underscores.
func SafeTeam(team string) string {
	s := reUnsafeTeam.ReplaceAllString(team, "_")
	s = strings.ReplaceAll(s, " ", "_")
	return strings.Trim(s, "_")
}

// Histogram saves a 20-bin histogram of values as a PNG.
func Histogram(path, title, xLabel string, values []float64) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = "Frequency"

	h, err := plotter.NewHist(plotter.Values(values), Bins)
	if err != nil {
		return fmt.Errorf("histogram %s: %w", title, err)
	}
	h.FillColor = plotutil.Color(0)
	p.Add(h)
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

// Histograms draws one chart per stat for all players and one per team.
// Failures are logged and skipped. It returns the number of files written.
func Histograms(log *zap.Logger, d *dataset.Dataset, dir string) (int, error) {
	log = logging.OrNop(log)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	written := 0
	save := func(name, title, stat string, values []float64) {
		v := dataset.Valid(values)
		if len(v) == 0 {
			return
		}
		if err := Histogram(filepath.Join(dir, name), title, stat, v); err != nil {
			log.Warn("histogram skipped", zap.String("file", name), zap.Error(err))
			return
		}
		written++
	}

	for _, stat := range d.Stats {
		safe := SafeStat(stat)
		save(fmt.Sprintf("all_players_%s.png", safe), "All Players - "+stat, stat, d.Stat(stat))
		for _, team := range d.Teams() {
			save(fmt.Sprintf("%s_%s.png", SafeTeam(team), safe), team+" - "+stat, stat, d.TeamStat(team, stat))
		}
	}
	log.Info("histograms written", zap.String("dir", dir), zap.Int("files", written))
	return written, nil
}

// Clusters saves a scatter of 2-D points coloured by cluster label.
func Clusters(path string, xy [][2]float64, labels []int, k int) error {
	p := plot.New()
	p.Title.Text = "Player clusters (PCA)"
	p.X.Label.Text = "Principal component 1"
	p.Y.Label.Text = "Principal component 2"

	groups := make([]plotter.XYs, k)
	for i, pt := range xy {
		c := labels[i]
		if c < 0 || c >= k {
			continue
		}
		groups[c] = append(groups[c], plotter.XY{X: pt[0], Y: pt[1]})
	}
	for c, g := range groups {
		if len(g) == 0 {
			continue
		}
		s, err := plotter.NewScatter(g)
		if err != nil {
			return err
		}
		s.GlyphStyle.Color = plotutil.Color(c)
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		s.GlyphStyle.Radius = vg.Points(3)
		p.Add(s)
		p.Legend.Add(fmt.Sprintf("Cluster %d", c), s)
	}
	p.Legend.Top = true
	return p.Save(8*vg.Inch, 6*vg.Inch, path)
}

// Sweep saves the elbow (inertia) and silhouette curves side by side.
func Sweep(path string, ks []int, inertia, silhouette []float64) error {
	elbow, err := linePlot("Elbow method", "Inertia", ks, inertia)
	if err != nil {
		return err
	}
	sil, err := linePlot("Silhouette score", "Silhouette", ks, silhouette)
	if err != nil {
		return err
	}

	const w, h = 12 * vg.Inch, 5 * vg.Inch
	img := vgimg.New(w, h)
	dc := draw.New(img)
	grid := [][]*plot.Plot{{elbow, sil}}
	canvases := plot.Align(grid, draw.Tiles{Rows: 1, Cols: 2}, dc)
	for j := range grid[0] {
		grid[0][j].Draw(canvases[0][j])
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func linePlot(title, yLabel string, ks []int, ys []float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Number of clusters (k)"
	p.Y.Label.Text = yLabel

	pts := make(plotter.XYs, len(ks))
	for i, k := range ks {
		pts[i] = plotter.XY{X: float64(k), Y: ys[i]}
	}
	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, err
	}
	line.Color = plotutil.Color(0)
	points.Shape = draw.CircleGlyph{}
	p.Add(line, points, plotter.NewGrid())
	return p, nil
}
