package describe

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/tyler180/epl-player-stats/internal/dataset"
)

// Entry is one ranked player for a stat.
type Entry struct {
	Player string
	Team   string
	Value  float64
}

// Ranking holds the best and worst players of one stat.
type Ranking struct {
	Stat   string
	Top    []Entry
	Bottom []Entry
}

// TopBottom ranks every stat with at least n valid values. Ties keep file order.
func TopBottom(d *dataset.Dataset, n int) []Ranking {
	var out []Ranking
	for _, stat := range d.Stats {
		vals := d.Stat(stat)
		var entries []Entry
		for r, v := range vals {
			if math.IsNaN(v) {
				continue
			}
			entries = append(entries, Entry{Player: d.Player(r), Team: d.Team(r), Value: v})
		}
		if len(entries) < n {
			continue
		}

		desc := append([]Entry(nil), entries...)
		sort.SliceStable(desc, func(i, j int) bool { return desc[i].Value > desc[j].Value })
		asc := append([]Entry(nil), entries...)
		sort.SliceStable(asc, func(i, j int) bool { return asc[i].Value < asc[j].Value })

		out = append(out, Ranking{Stat: stat, Top: desc[:n], Bottom: asc[:n]})
	}
	return out
}

// WriteRankings renders top_3.txt.
func WriteRankings(w io.Writer, rankings []Ranking) error {
	bar := strings.Repeat("=", 25)
	for _, rk := range rankings {
		if _, err := fmt.Fprintf(w, "\n%s %s %s\n", bar, strings.ToUpper(rk.Stat), bar); err != nil {
			return err
		}
		if err := writeEntries(w, fmt.Sprintf("Top %d:", len(rk.Top)), rk.Top); err != nil {
			return err
		}
		if err := writeEntries(w, fmt.Sprintf("Bottom %d:", len(rk.Bottom)), rk.Bottom); err != nil {
			return err
		}
	}
	return nil
}

func writeEntries(w io.Writer, title string, entries []Entry) error {
	if _, err := fmt.Fprintf(w, "\n%s\n", title); err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%s (%s): %.2f\n", e.Player, e.Team, e.Value); err != nil {
			return err
		}
	}
	return nil
}
