package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/tyler180/epl-player-stats/internal/app/pipeline"
	"github.com/tyler180/epl-player-stats/internal/cluster"
	"github.com/tyler180/epl-player-stats/internal/store"
)

func renderSweep(w io.Writer, a *cluster.Analysis) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("k-means sweep")
	t.AppendHeader(table.Row{"k", "Inertia", "Silhouette", ""})
	for i, k := range a.Sweep.Ks {
		mark := ""
		if k == a.Sweep.BestK {
			mark = "best"
		}
		t.AppendRow(table.Row{k, fmt.Sprintf("%.2f", a.Sweep.Inertia[i]), fmt.Sprintf("%.4f", a.Sweep.Silhouette[i]), mark})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func renderPublish(w io.Writer, res *pipeline.PublishResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Run", "Items", "Transfer values", "Parquet rows", "Key"})
	t.AppendRow(table.Row{res.RunID, res.Items, res.Transfers, res.StatRows, res.Key})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func renderLeaders(w io.Writer, res *pipeline.MaterializeResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("%s (%d rows)", res.Table, res.RowCount))
	t.AppendHeader(table.Row{"Statistic", "Leading team", "Mean"})
	for _, r := range res.Leaders {
		row := table.Row{}
		for _, c := range r {
			row = append(row, c)
		}
		t.AppendRow(row)
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func renderStored(w io.Writer, players []store.StoredPlayer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Team", "Player", "Position", "Stats", "Value (€m)"})
	for _, p := range players {
		val := ""
		if p.TransferValue != nil {
			val = fmt.Sprintf("%.2f", *p.TransferValue)
		}
		t.AppendRow(table.Row{p.Team, p.Player, p.Position, len(p.Stats), val})
	}
	t.AppendFooter(table.Row{"", "Players", len(players)})
	t.SetStyle(table.StyleRounded)
	t.Render()
}
