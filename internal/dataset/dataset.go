package dataset

import (
	"math"
	"regexp"
	"strings"

	"github.com/tyler180/epl-player-stats/internal/frame"
)

const (
	PlayerCol    = "Player"
	FirstNameCol = "First Name"
	TeamCol      = "Team"
	PositionCol  = "Position"
	MinutesCol   = "Minutes"
)

// IdentityColumns describe a player rather than measure them.
var IdentityColumns = []string{
	PlayerCol, FirstNameCol, "Nation", TeamCol, PositionCol, "Age", "Matches Played", "Starts", MinutesCol,
}

var reNonNumeric = regexp.MustCompile(`[^\d.]`)

// Dataset is results.csv with every stat column coerced to float64.
type Dataset struct {
	Frame   *frame.Frame
	Stats   []string
	Minutes []float64

	values map[string][]float64
	teams  []string
}

// FromFrame cleans a results frame. Percentage columns (any stat whose name
// contains '%') keep only digits and dots and are scaled to 0..1.
func FromFrame(f *frame.Frame) *Dataset {
	ident := map[string]struct{}{}
	for _, c := range IdentityColumns {
		ident[c] = struct{}{}
	}

	d := &Dataset{
		Frame:   f,
		Minutes: f.Floats(MinutesCol),
		values:  map[string][]float64{},
	}
	seen := map[string]struct{}{}
	for _, col := range f.Header {
		if _, ok := ident[col]; ok {
			continue
		}
		if _, ok := seen[col]; ok {
			continue
		}
		seen[col] = struct{}{}
		d.Stats = append(d.Stats, col)
		if IsPercent(col) {
			d.values[col] = percentColumn(f.Strings(col))
		} else {
			d.values[col] = f.Floats(col)
		}
	}

	seenTeam := map[string]struct{}{}
	for _, t := range f.Strings(TeamCol) {
		if _, ok := seenTeam[t]; ok {
			continue
		}
		seenTeam[t] = struct{}{}
		d.teams = append(d.teams, t)
	}
	return d
}

func IsPercent(col string) bool { return strings.Contains(col, "%") }

// CleanPercent turns "71.3" or "71.3%" into 0.713; N/a and junk are NaN.
func CleanPercent(s string) float64 {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "n/a") {
		return math.NaN()
	}
	return frame.ParseFloat(reNonNumeric.ReplaceAllString(s, "")) / 100
}

func percentColumn(raw []string) []float64 {
	out := make([]float64, len(raw))
	for i, s := range raw {
		out[i] = CleanPercent(s)
	}
	return out
}

func (d *Dataset) Len() int { return d.Frame.Len() }

// Teams returns the distinct teams in first-appearance order.
func (d *Dataset) Teams() []string { return d.teams }

// Stat returns the cleaned values of a stat column, or nil.
func (d *Dataset) Stat(name string) []float64 { return d.values[name] }

// TeamStat returns the values of a stat for one team's players.
func (d *Dataset) TeamStat(team, name string) []float64 {
	vals := d.values[name]
	if vals == nil {
		return nil
	}
	var out []float64
	for r := 0; r < d.Len(); r++ {
		if d.Frame.Get(r, TeamCol) == team {
			out = append(out, vals[r])
		}
	}
	return out
}

func (d *Dataset) Player(r int) string { return d.Frame.Get(r, PlayerCol) }
func (d *Dataset) Team(r int) string   { return d.Frame.Get(r, TeamCol) }

// Filter keeps the rows for which keep returns true.
func (d *Dataset) Filter(keep func(row int) bool) *Dataset {
	return FromFrame(d.Frame.Filter(keep))
}

// Valid returns v without NaNs.
func Valid(v []float64) []float64 {
	out := make([]float64, 0, len(v))
	for _, x := range v {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}
