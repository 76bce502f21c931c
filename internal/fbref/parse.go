package fbref

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/tyler180/epl-player-stats/internal/fetch"
	"github.com/tyler180/epl-player-stats/internal/logging"
)

// Record is one player's values keyed by display column.
type Record map[string]string

// ParseTable extracts the category's columns for every player row of its
// stats table. A page without the table yields an empty map.
func ParseTable(log *zap.Logger, html string, cat Category) (map[string]Record, error) {
	log = logging.OrNop(log)
	doc, err := fetch.Document(html)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	fetch.DumpTables(log, doc, cat.Name)

	table := doc.Find("table#" + cat.TableID()).First()
	if table.Length() == 0 {
		log.Error("no table found", zap.String("table", cat.TableID()), zap.String("category", cat.Name))
		return map[string]Record{}, nil
	}

	idx := headerIndex(table)
	minutesIdx, hasMinutes := idx["minutes"]

	out := map[string]Record{}
	table.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		cell := tr.ChildrenFiltered(`[data-stat="player"]`).First()
		if cell.Length() == 0 {
			return
		}
		name := cleanPlayer(cell.Text())
		if isHeaderRow(name) {
			return
		}
		if _, dup := out[name]; dup {
			log.Warn("duplicate player", zap.String("category", cat.Name), zap.String("player", name))
		}

		cells := tr.ChildrenFiltered("th,td")
		rec := Record{}
		for _, col := range cat.Columns {
			rec[col.Name] = NA
			if i, ok := idx[col.DataStat]; ok && i < cells.Length() {
				if v := strings.TrimSpace(cells.Eq(i).Text()); v != "" {
					rec[col.Name] = v
				}
			}
		}
		if cat.Name == "standard" {
			rec[MinutesRawKey] = NA
			if hasMinutes && minutesIdx < cells.Length() {
				rec[MinutesRawKey] = strings.ReplaceAll(strings.TrimSpace(cells.Eq(minutesIdx).Text()), ",", "")
			}
		}
		out[name] = rec
	})
	log.Debug("parsed table", zap.String("category", cat.Name), zap.Int("players", len(out)))
	return out, nil
}

// headerIndex maps data-stat to column position using the last header row,
// which holds the per-column stats under the grouped headings.
func headerIndex(table *goquery.Selection) map[string]int {
	idx := map[string]int{}
	table.Find("thead tr").Last().ChildrenFiltered("th,td").Each(func(i int, h *goquery.Selection) {
		if ds, ok := h.Attr("data-stat"); ok && ds != "" {
			idx[ds] = i
		}
	})
	return idx
}
