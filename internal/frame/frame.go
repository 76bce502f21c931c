// Package frame holds the player tables as header-indexed string records,
// the shape every job reads from and writes back to CSV.
package frame

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Frame is a CSV table. Rows are always as wide as Header.
type Frame struct {
	Header []string
	Rows   [][]string
	index  map[string]int
}

func New(header []string, rows [][]string) *Frame {
	f := &Frame{Header: header, Rows: rows}
	f.reindex()
	for i, r := range f.Rows {
		if len(r) < len(header) {
			padded := make([]string, len(header))
			copy(padded, r)
			f.Rows[i] = padded
		}
	}
	return f
}

func (f *Frame) reindex() {
	f.index = make(map[string]int, len(f.Header))
	for i, h := range f.Header {
		h = strings.TrimSpace(h)
		if _, dup := f.index[h]; !dup {
			f.index[h] = i
		}
	}
}

// Read parses a CSV with a header row.
func Read(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	all, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, errors.New("csv empty")
	}
	hdr := all[0]
	if len(hdr) > 0 {
		hdr[0] = strings.TrimPrefix(hdr[0], "\ufeff")
	}
	return New(hdr, all[1:]), nil
}

func ReadFile(path string) (*Frame, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	f, err := Read(fh)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return f, nil
}

func (f *Frame) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(f.Rows); err != nil {
		return err
	}
	return cw.Error()
}

func (f *Frame) WriteFile(path string) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := f.Write(fh); err != nil {
		_ = fh.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return fh.Close()
}

func (f *Frame) Len() int { return len(f.Rows) }

// Col returns the index of name, or -1.
func (f *Frame) Col(name string) int {
	if i, ok := f.index[name]; ok {
		return i
	}
	return -1
}

func (f *Frame) Has(name string) bool { return f.Col(name) >= 0 }

// Get returns the trimmed cell, or "" when the column is absent.
func (f *Frame) Get(row int, name string) string {
	i := f.Col(name)
	if i < 0 || row < 0 || row >= len(f.Rows) || i >= len(f.Rows[row]) {
		return ""
	}
	return strings.TrimSpace(f.Rows[row][i])
}

func (f *Frame) Strings(name string) []string {
	out := make([]string, len(f.Rows))
	for r := range f.Rows {
		out[r] = f.Get(r, name)
	}
	return out
}

// Floats coerces a column to numbers; N/a, blanks and junk become NaN.
func (f *Frame) Floats(name string) []float64 {
	out := make([]float64, len(f.Rows))
	for r := range f.Rows {
		out[r] = ParseFloat(f.Get(r, name))
	}
	return out
}

// Filter keeps the rows for which keep returns true.
func (f *Frame) Filter(keep func(row int) bool) *Frame {
	var rows [][]string
	for r := range f.Rows {
		if keep(r) {
			rows = append(rows, f.Rows[r])
		}
	}
	return New(f.Header, rows)
}

// Select projects the frame onto cols; unknown columns come back empty.
func (f *Frame) Select(cols ...string) *Frame {
	rows := make([][]string, len(f.Rows))
	for r := range f.Rows {
		rec := make([]string, len(cols))
		for i, c := range cols {
			rec[i] = f.Get(r, c)
		}
		rows[r] = rec
	}
	return New(cols, rows)
}

// ParseFloat parses a numeric cell. Thousands separators are accepted.
func ParseFloat(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" || strings.EqualFold(s, "n/a") {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}

// FormatFloat renders v with two decimals; NaN is an empty cell.
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
