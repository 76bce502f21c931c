package describe

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tyler180/epl-player-stats/internal/dataset"
	"github.com/tyler180/epl-player-stats/internal/frame"
)

const results = `Player,First Name,Nation,Team,Position,Age,Matches Played,Starts,Minutes,Goals,Tkl,Save%
A One,A,ENG,Arsenal,FW,22,30,30,2000,10,5,N/a
B Two,B,ENG,Arsenal,MF,23,30,30,2000,4,20,N/a
C Three,C,ENG,Chelsea,FW,24,30,30,2000,10,8,70
D Four,D,ENG,Chelsea,DF,25,30,30,2000,1,30,N/a
E Five,E,ENG,Burnley,MF,26,30,30,2000,2,N/a,N/a
`

func load(t *testing.T) *dataset.Dataset {
	t.Helper()
	f, err := frame.Read(strings.NewReader(results))
	require.NoError(t, err)
	return dataset.FromFrame(f)
}

func TestTopBottom_TiesKeepFileOrder(t *testing.T) {
	rk := TopBottom(load(t), 3)
	require.Len(t, rk, 2, "Save% has a single value and is skipped")

	goals := rk[0]
	assert.Equal(t, "Goals", goals.Stat)
	assert.Equal(t, []string{"A One", "C Three", "B Two"}, names(goals.Top))
	assert.Equal(t, []string{"D Four", "E Five", "B Two"}, names(goals.Bottom))

	tkl := rk[1]
	assert.Equal(t, "Tkl", tkl.Stat)
	assert.Equal(t, []string{"D Four", "B Two", "C Three"}, names(tkl.Top))
}

func TestWriteRankings(t *testing.T) {
	rk := TopBottom(load(t), 3)
	var buf bytes.Buffer
	require.NoError(t, WriteRankings(&buf, rk[:1]))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\n========================= GOALS =========================\n\nTop 3:\nA One (Arsenal): 10.00\n"))
	assert.Contains(t, out, "\nBottom 3:\nD Four (Chelsea): 1.00\n")
}

func TestDescribe(t *testing.T) {
	m := Describe([]float64{1, 2, 3, 4, math.NaN()})
	assert.Equal(t, 2.5, m.Median)
	assert.Equal(t, 2.5, m.Mean)
	assert.InDelta(t, 1.2909944, m.Std, 1e-6)

	single := Describe([]float64{7})
	assert.Equal(t, 7.0, single.Median)
	assert.True(t, math.IsNaN(single.Std))

	assert.True(t, math.IsNaN(Describe(nil).Mean))
}

func TestSummaries(t *testing.T) {
	f := Summaries(load(t))
	assert.Equal(t, []string{"Statistic", "Arsenal", "Chelsea", "Burnley", "all"}, f.Header)
	require.Equal(t, 9, f.Len())

	assert.Equal(t, []string{"Median of Goals", "7.00", "5.50", "2.00", "4.00"}, f.Rows[0])
	assert.Equal(t, []string{"Mean of Goals", "7.00", "5.50", "2.00", "5.40"}, f.Rows[1])
	assert.Equal(t, "", f.Rows[2][3], "one Burnley player has no sample std")

	assert.Equal(t, []string{"Mean of Save%", "", "0.70", "", "0.70"}, f.Rows[7])
}

func TestLeaders(t *testing.T) {
	l := Leaders(load(t))
	require.Len(t, l.Leads, 3)
	assert.Equal(t, Lead{Stat: "Goals", Team: "Arsenal", Mean: 7}, l.Leads[0])
	assert.Equal(t, Lead{Stat: "Tkl", Team: "Chelsea", Mean: 19}, l.Leads[1])
	assert.Equal(t, "Chelsea", l.Leads[2].Team)

	best, ok := l.Best()
	require.True(t, ok)
	assert.Equal(t, TeamCount{Team: "Chelsea", Count: 2}, best)

	assert.Equal(t, []string{"Chelsea", "2"}, l.CountsFrame().Rows[0])
	assert.Equal(t, []string{"Goals", "Arsenal", "7.00"}, l.DetailsFrame().Rows[0])

	var buf bytes.Buffer
	require.NoError(t, l.WriteAnalysis(&buf))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "=== Team Performance Analysis ===\n\nTeams Leading in Each Statistic:\nGoals: Arsenal (Mean: 7.00)\n"))
	assert.Contains(t, out, "\nLeadership Counts:\nChelsea: Leads in 2 statistics\nArsenal: Leads in 1 statistics\n")
	assert.Contains(t, out, "Chelsea leads in 2 statistics")

	var tbl bytes.Buffer
	l.RenderCounts(&tbl)
	assert.Contains(t, tbl.String(), "Chelsea")
}

func TestLeaders_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Leadership{}.WriteAnalysis(&buf))
	assert.Contains(t, buf.String(), "No team leads in any stat.")
}

func names(es []Entry) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.Player
	}
	return out
}
