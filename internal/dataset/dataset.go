// Package dataset turns raw candle rows into the prepared, read-only table
// the rest of the program queries.
package dataset

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/candlechat/internal/frame"
)

// Required source columns, in canonical order.
var Required = []string{"timestamp", "open", "high", "low", "close", "direction", "support", "resistance"}

// RawTable is a row-oriented table of untyped cells as read from a source.
// Header names are lower-cased and trimmed.
type RawTable struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Row is one prepared candle.
type Row struct {
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Direction  Direction
	Support    Levels
	Resistance Levels
	// Extra holds pass-through cells aligned with Dataset.ExtraColumns.
	Extra []string
}

func (r Row) SupportMin() float64    { return r.Support.Min() }
func (r Row) SupportMax() float64    { return r.Support.Max() }
func (r Row) ResistanceMin() float64 { return r.Resistance.Min() }
func (r Row) ResistanceMax() float64 { return r.Resistance.Max() }

// Stats records what preparation changed.
type Stats struct {
	Duplicates        int
	DefaultDirections int
	FilledSupport     int
	FilledResistance  int
}

// Dataset is the prepared table. It is not modified after Prepare returns.
type Dataset struct {
	Name         string
	Rows         []Row
	ExtraColumns []string
	Stats        Stats
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.Rows) }

// Prepare deduplicates rows by timestamp (first wins), parses the level
// literals, defaults and encodes direction, then forward- and back-fills
// empty level sets. It never modifies raw.
func Prepare(raw *RawTable) (*Dataset, error) {
	if raw == nil {
		return nil, errors.New("dataset: nil table")
	}
	idx := map[string]int{}
	for i, h := range raw.Header {
		h = strings.ToLower(strings.TrimSpace(h))
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	for _, col := range Required {
		if _, ok := idx[col]; !ok {
			return nil, &ParseError{Column: col, Err: errors.New("missing required column")}
		}
	}
	ds := &Dataset{Name: raw.Name}
	required := map[string]bool{}
	for _, c := range Required {
		required[c] = true
	}
	var extraIdx []int
	for i, h := range raw.Header {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" || required[h] || idx[h] != i {
			continue
		}
		ds.ExtraColumns = append(ds.ExtraColumns, h)
		extraIdx = append(extraIdx, i)
	}

	cell := func(rec []string, col string) string {
		i := idx[col]
		if i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	seen := map[int64]bool{}
	for n, rec := range raw.Rows {
		rowNum := n + 1
		tsRaw := cell(rec, "timestamp")
		ts, err := ParseTimestamp(tsRaw)
		if err != nil {
			return nil, &ParseError{Row: rowNum, Column: "timestamp", Value: tsRaw, Err: err}
		}
		key := ts.UnixNano()
		if seen[key] {
			ds.Stats.Duplicates++
			continue
		}
		seen[key] = true

		row := Row{Timestamp: ts}
		for _, p := range []struct {
			col string
			dst *float64
		}{{"open", &row.Open}, {"high", &row.High}, {"low", &row.Low}, {"close", &row.Close}} {
			v := cell(rec, p.col)
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, &ParseError{Row: rowNum, Column: p.col, Value: v, Err: errors.New("not a number")}
			}
			*p.dst = f
		}
		for _, p := range []struct {
			col string
			dst *Levels
		}{{"support", &row.Support}, {"resistance", &row.Resistance}} {
			v := cell(rec, p.col)
			lv, err := ParseLevels(v)
			if err != nil {
				return nil, &ParseError{Row: rowNum, Column: p.col, Value: v, Err: err}
			}
			*p.dst = lv
		}
		dirRaw := cell(rec, "direction")
		dir, err := ParseDirection(dirRaw)
		if err != nil {
			return nil, &ParseError{Row: rowNum, Column: "direction", Value: dirRaw, Err: err}
		}
		if dirRaw == "" {
			ds.Stats.DefaultDirections++
		}
		row.Direction = dir
		for _, i := range extraIdx {
			v := ""
			if i < len(rec) {
				v = rec[i]
			}
			row.Extra = append(row.Extra, v)
		}
		ds.Rows = append(ds.Rows, row)
	}

	ds.Stats.FilledSupport = fillLevels(ds.Rows, func(r *Row) *Levels { return &r.Support })
	ds.Stats.FilledResistance = fillLevels(ds.Rows, func(r *Row) *Levels { return &r.Resistance })
	return ds, nil
}

// fillLevels forward-fills empty sets from the nearest earlier row, then
// back-fills the leading gap from the first non-empty row. It returns how many
// rows changed. A column with no non-empty set is left alone.
func fillLevels(rows []Row, field func(*Row) *Levels) int {
	filled := 0
	var last Levels
	for i := range rows {
		f := field(&rows[i])
		if len(*f) > 0 {
			last = *f
			continue
		}
		if last != nil {
			*f = append(Levels(nil), last...)
			filled++
		}
	}
	var next Levels
	for i := len(rows) - 1; i >= 0; i-- {
		f := field(&rows[i])
		if len(*f) > 0 {
			next = *f
			continue
		}
		if next != nil {
			*f = append(Levels(nil), next...)
			filled++
		}
	}
	return filled
}

var timeLayouts = []string{
	time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02", "2006/01/02", "2006/01/02 15:04:05",
	"01/02/2006", "01/02/2006 15:04", "1/2/2006 15:04", "1/2/2006 15:04:05",
}

// ParseTimestamp accepts RFC3339 and common date layouts, or unix seconds
// (milliseconds when the number is large enough). Results are UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > 1e12 || n < -1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// Records re-encodes the dataset in its source schema. Preparing the result
// again yields the same rows.
func (d *Dataset) Records() *RawTable {
	out := &RawTable{Name: d.Name, Header: append(append([]string(nil), Required...), d.ExtraColumns...)}
	ff := func(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }
	for _, r := range d.Rows {
		rec := []string{
			r.Timestamp.Format(time.RFC3339Nano),
			ff(r.Open), ff(r.High), ff(r.Low), ff(r.Close),
			r.Direction.String(),
			r.Support.String(), r.Resistance.String(),
		}
		rec = append(rec, r.Extra...)
		out.Rows = append(out.Rows, rec)
	}
	return out
}

// Frame builds the tabular view used by snippets. Every call returns a new
// frame that shares nothing with the dataset.
func (d *Dataset) Frame() *frame.Frame {
	n := len(d.Rows)
	ts := make([]time.Time, n)
	unix := make([]float64, n)
	open, high, low, closes := make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)
	dir := make([]float64, n)
	sup, res := make([][]float64, n), make([][]float64, n)
	smin, smax, rmin, rmax := make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)
	for i, r := range d.Rows {
		ts[i] = r.Timestamp
		unix[i] = float64(r.Timestamp.Unix())
		open[i], high[i], low[i], closes[i] = r.Open, r.High, r.Low, r.Close
		dir[i] = float64(r.Direction)
		sup[i], res[i] = r.Support, r.Resistance
		smin[i], smax[i] = r.SupportMin(), r.SupportMax()
		rmin[i], rmax[i] = r.ResistanceMin(), r.ResistanceMax()
	}
	cols := []*frame.Series{
		frame.NewTime("timestamp", ts),
		frame.NewFloat("time", unix),
		frame.NewFloat("open", open),
		frame.NewFloat("high", high),
		frame.NewFloat("low", low),
		frame.NewFloat("close", closes),
		frame.NewFloat("direction", dir),
		frame.NewLevels("support", sup),
		frame.NewLevels("resistance", res),
		frame.NewFloat("support_min", smin),
		frame.NewFloat("support_max", smax),
		frame.NewFloat("resistance_min", rmin),
		frame.NewFloat("resistance_max", rmax),
	}
	taken := map[string]bool{}
	for _, c := range cols {
		taken[c.Name()] = true
	}
	for j, name := range d.ExtraColumns {
		if taken[name] {
			name = "raw_" + name
		}
		taken[name] = true
		vals := make([]string, n)
		for i, r := range d.Rows {
			if j < len(r.Extra) {
				vals[i] = r.Extra[j]
			}
		}
		if frame.Numeric(vals) {
			cols = append(cols, frame.NewFloat(name, frame.NewText(name, vals).Floats()))
		} else {
			cols = append(cols, frame.NewText(name, vals))
		}
	}
	return frame.MustNew(cols...)
}
