package fbref

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// WriteResults writes players as results.csv with the header from Columns.
func WriteResults(w io.Writer, players []Player) error {
	cols := Columns()
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return err
	}
	rec := make([]string, len(cols))
	for _, p := range players {
		for i, c := range cols {
			rec[i] = p.Get(c)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteResultsFile(path string, players []Player) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteResults(f, players); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
