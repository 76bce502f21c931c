package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	parquet "github.com/parquet-go/parquet-go"

	"github.com/tyler180/epl-player-stats/internal/dataset"
)

// StatRow is one player-stat pair of the long-format player_stats table.
type StatRow struct {
	Player    string   `parquet:"player"`
	FirstName *string  `parquet:"first_name,optional"`
	Team      string   `parquet:"team"`
	Position  *string  `parquet:"position,optional"`
	Nation    *string  `parquet:"nation,optional"`
	Minutes   *int64   `parquet:"minutes,optional"`
	Stat      string   `parquet:"stat"`
	Value     *float64 `parquet:"value,optional"`
	Season    string   `parquet:"season"`
	RunID     string   `parquet:"run_id"`
}

func NowStamp() string { return time.Now().UTC().Format("20060102T150405Z") }

// Key is the S3 object key for one export of a season.
func Key(prefix, season, stamp string) string {
	return fmt.Sprintf("%s/player_stats/season=%s/part-%s.parquet", strings.TrimSuffix(prefix, "/"), season, stamp)
}

func strPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" || s == "N/a" {
		return nil
	}
	return &s
}

// LongRows melts a cleaned dataset into one row per player and stat. NaN
// stats become null values.
func LongRows(d *dataset.Dataset, season, runID string) []StatRow {
	out := make([]StatRow, 0, d.Len()*len(d.Stats))
	for r := 0; r < d.Len(); r++ {
		base := StatRow{
			Player:    d.Player(r),
			FirstName: strPtr(d.Frame.Get(r, dataset.FirstNameCol)),
			Team:      d.Team(r),
			Position:  strPtr(d.Frame.Get(r, dataset.PositionCol)),
			Nation:    strPtr(d.Frame.Get(r, "Nation")),
			Season:    season,
			RunID:     runID,
		}
		if m := d.Minutes[r]; !math.IsNaN(m) {
			mins := int64(m)
			base.Minutes = &mins
		}
		for _, stat := range d.Stats {
			row := base
			row.Stat = stat
			if v := d.Stat(stat)[r]; !math.IsNaN(v) {
				row.Value = &v
			}
			out = append(out, row)
		}
	}
	return out
}

// WriteParquet encodes rows with the schema derived from T, Snappy compressed.
func WriteParquet[T any](w io.Writer, rows []T) error {
	pw := parquet.NewWriter(w, parquet.SchemaOf(new(T)), parquet.Compression(&parquet.Snappy))
	for _, r := range rows {
		if err := pw.Write(r); err != nil {
			_ = pw.Close()
			return err
		}
	}
	return pw.Close()
}

// WriteParquetAndUpload encodes rows in memory and puts them at key.
// Nothing is uploaded for an empty slice.
func WriteParquetAndUpload[T any](ctx context.Context, rows []T, key string, up *Uploader) error {
	if len(rows) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := WriteParquet(&buf, rows); err != nil {
		return fmt.Errorf("encode parquet: %w", err)
	}
	return up.Put(ctx, key, buf.Bytes())
}
