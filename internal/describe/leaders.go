package describe

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"gonum.org/v1/gonum/stat"

	"github.com/tyler180/epl-player-stats/internal/dataset"
	"github.com/tyler180/epl-player-stats/internal/frame"
)

const noLeader = "No team leads in any stat"

// Lead is the team with the highest per-team mean of a stat.
type Lead struct {
	Stat string
	Team string
	Mean float64
}

// TeamCount is how many stats a team leads.
type TeamCount struct {
	Team  string
	Count int
}

type Leadership struct {
	Leads  []Lead
	Counts []TeamCount
}

// Best returns the team leading the most stats.
func (l Leadership) Best() (TeamCount, bool) {
	if len(l.Counts) == 0 {
		return TeamCount{}, false
	}
	return l.Counts[0], true
}

// Leaders finds, for each stat, the team whose players have the highest mean.
// Teams are compared in name order, so ties go to the alphabetically first.
func Leaders(d *dataset.Dataset) Leadership {
	teams := append([]string(nil), d.Teams()...)
	sort.Strings(teams)

	var l Leadership
	counts := map[string]int{}
	for _, s := range d.Stats {
		lead := Lead{Stat: s, Mean: math.NaN()}
		for _, t := range teams {
			v := dataset.Valid(d.TeamStat(t, s))
			if len(v) == 0 {
				continue
			}
			m := stat.Mean(v, nil)
			if math.IsNaN(lead.Mean) || m > lead.Mean {
				lead.Team, lead.Mean = t, m
			}
		}
		if lead.Team == "" {
			continue
		}
		l.Leads = append(l.Leads, lead)
		counts[lead.Team]++
	}

	for t, c := range counts {
		l.Counts = append(l.Counts, TeamCount{Team: t, Count: c})
	}
	sort.Slice(l.Counts, func(i, j int) bool {
		if l.Counts[i].Count != l.Counts[j].Count {
			return l.Counts[i].Count > l.Counts[j].Count
		}
		return l.Counts[i].Team < l.Counts[j].Team
	})
	return l
}

// DetailsFrame is leadership_details.csv.
func (l Leadership) DetailsFrame() *frame.Frame {
	rows := make([][]string, 0, len(l.Leads))
	for _, ld := range l.Leads {
		rows = append(rows, []string{ld.Stat, ld.Team, frame.FormatFloat(ld.Mean)})
	}
	return frame.New([]string{"Statistic", "Leading Team", "Mean Value"}, rows)
}

// CountsFrame is leadership_counts.csv.
func (l Leadership) CountsFrame() *frame.Frame {
	rows := make([][]string, 0, len(l.Counts))
	for _, c := range l.Counts {
		rows = append(rows, []string{c.Team, strconv.Itoa(c.Count)})
	}
	return frame.New([]string{"Team", "count"}, rows)
}

// WriteAnalysis renders best_team_analysis.txt.
func (l Leadership) WriteAnalysis(w io.Writer) error {
	p := &errWriter{w: w}
	p.printf("=== Team Performance Analysis ===\n\n")
	p.printf("Teams Leading in Each Statistic:\n")
	for _, ld := range l.Leads {
		p.printf("%s: %s (Mean: %.2f)\n", ld.Stat, ld.Team, ld.Mean)
	}
	p.printf("\nLeadership Counts:\n")
	for _, c := range l.Counts {
		p.printf("%s: Leads in %d statistics\n", c.Team, c.Count)
	}
	p.printf("\nBest-Performing Team:\n")
	if best, ok := l.Best(); ok {
		p.printf("%s leads in %d statistics, showing strength across multiple metrics.\n", best.Team, best.Count)
	} else {
		p.printf("%s.\n", noLeader)
	}
	return p.err
}

// RenderCounts prints the lead counts as a console table.
func (l Leadership) RenderCounts(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Statistics led per team")
	t.AppendHeader(table.Row{"#", "Team", "Leads"})
	for i, c := range l.Counts {
		t.AppendRow(table.Row{i + 1, c.Team, c.Count})
	}
	t.AppendFooter(table.Row{"", "Stats", len(l.Leads)})
	t.SetStyle(table.StyleRounded)
	t.Render()
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
