// Package frame is a small column-oriented table. Snippets see it as pd.
//
// A Frame shared between goroutines must be treated as read-only; Set and
// Drop mutate in place and are meant for private copies.
package frame

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/KaramelBytes/candlechat/internal/numeric"
)

// IndexColumn is the timestamp column used by Between.
const IndexColumn = "timestamp"

var (
	ErrNoColumn  = errors.New("frame: no such column")
	ErrLength    = errors.New("frame: length mismatch")
	ErrDuplicate = errors.New("frame: duplicate column")
)

// Frame is an ordered set of equally long Series.
type Frame struct {
	names []string
	cols  map[string]*Series
	rows  int
}

// New builds a frame from the given columns, which are used as-is.
func New(cols ...*Series) (*Frame, error) {
	f := &Frame{cols: make(map[string]*Series, len(cols))}
	for i, c := range cols {
		if i == 0 {
			f.rows = c.Len()
		}
		if c.Len() != f.rows {
			return nil, fmt.Errorf("%w: column %q has %d rows, want %d", ErrLength, c.Name(), c.Len(), f.rows)
		}
		if _, dup := f.cols[c.Name()]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicate, c.Name())
		}
		f.names = append(f.names, c.Name())
		f.cols[c.Name()] = c
	}
	return f, nil
}

// MustNew is New that panics on error.
func MustNew(cols ...*Series) *Frame {
	f, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return f
}

// Len returns the number of rows.
func (f *Frame) Len() int { return f.rows }

// Columns returns the column names in order.
func (f *Frame) Columns() []string { return append([]string(nil), f.names...) }

// Has reports whether the column exists.
func (f *Frame) Has(name string) bool {
	_, ok := f.cols[name]
	return ok
}

// Column returns the named column.
func (f *Frame) Column(name string) (*Series, error) {
	s, ok := f.cols[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoColumn, name)
	}
	return s, nil
}

// Col is Column for snippet use; it panics when the column is missing.
func (f *Frame) Col(name string) *Series {
	s, err := f.Column(name)
	if err != nil {
		panic(err)
	}
	return s
}

// Copy returns a deep copy.
func (f *Frame) Copy() *Frame {
	out := &Frame{names: append([]string(nil), f.names...), cols: make(map[string]*Series, len(f.cols)), rows: f.rows}
	for name, c := range f.cols {
		out.cols[name] = c.Copy()
	}
	return out
}

func (f *Frame) take(idx []int) *Frame {
	out := &Frame{names: append([]string(nil), f.names...), cols: make(map[string]*Series, len(f.cols)), rows: len(idx)}
	for name, c := range f.cols {
		out.cols[name] = c.take(idx)
	}
	return out
}

func span(from, to int) []int {
	idx := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		idx = append(idx, i)
	}
	return idx
}

// Slice returns rows [i, j), clamped to the frame.
func (f *Frame) Slice(i, j int) *Frame {
	if i < 0 {
		i = 0
	}
	if j > f.rows {
		j = f.rows
	}
	if j < i {
		j = i
	}
	return f.take(span(i, j))
}

// Head returns the first n rows.
func (f *Frame) Head(n int) *Frame { return f.Slice(0, n) }

// Tail returns the last n rows.
func (f *Frame) Tail(n int) *Frame { return f.Slice(f.rows-n, f.rows) }

// Filter keeps the rows where mask is true. The mask must cover every row.
func (f *Frame) Filter(mask []bool) *Frame {
	if len(mask) != f.rows {
		panic(fmt.Errorf("%w: mask has %d values, frame has %d rows", ErrLength, len(mask), f.rows))
	}
	var idx []int
	for i, keep := range mask {
		if keep {
			idx = append(idx, i)
		}
	}
	return f.take(idx)
}

// Select returns a frame with only the named columns, in the given order.
func (f *Frame) Select(names ...string) *Frame {
	out := &Frame{cols: make(map[string]*Series, len(names)), rows: f.rows}
	for _, n := range names {
		c := f.Col(n)
		if _, dup := out.cols[n]; dup {
			continue
		}
		out.names = append(out.names, n)
		out.cols[n] = c.Copy()
	}
	return out
}

// SortBy returns the rows ordered by one column. The sort is stable.
func (f *Frame) SortBy(name string, ascending bool) *Frame {
	c := f.Col(name)
	idx := span(0, f.rows)
	sort.SliceStable(idx, func(a, b int) bool {
		if ascending {
			return c.less(idx[a], idx[b])
		}
		return c.less(idx[b], idx[a])
	})
	return f.take(idx)
}

// Between keeps rows whose timestamp falls in [from, to). A zero bound is open.
func (f *Frame) Between(from, to time.Time) *Frame {
	ts := f.Col(IndexColumn)
	mask := make([]bool, f.rows)
	for i, t := range ts.times {
		mask[i] = (from.IsZero() || !t.Before(from)) && (to.IsZero() || t.Before(to))
	}
	return f.Filter(mask)
}

// Set adds or replaces a column in place. A new column is appended last.
func (f *Frame) Set(name string, s *Series) {
	if len(f.names) > 0 && s.Len() != f.rows {
		panic(fmt.Errorf("%w: column %q has %d rows, want %d", ErrLength, name, s.Len(), f.rows))
	}
	if len(f.names) == 0 {
		f.rows = s.Len()
	}
	c := s.Rename(name)
	if _, ok := f.cols[name]; !ok {
		f.names = append(f.names, name)
	}
	f.cols[name] = c
}

// Drop removes columns in place. Unknown names are ignored.
func (f *Frame) Drop(names ...string) {
	for _, n := range names {
		if _, ok := f.cols[n]; !ok {
			continue
		}
		delete(f.cols, n)
		for i, v := range f.names {
			if v == n {
				f.names = append(f.names[:i], f.names[i+1:]...)
				break
			}
		}
	}
}

// Row returns row i keyed by column name.
func (f *Frame) Row(i int) map[string]any {
	out := make(map[string]any, len(f.names))
	for _, n := range f.names {
		out[n] = f.cols[n].At(i)
	}
	return out
}

// Describe summarizes the numeric columns like pandas' describe.
func (f *Frame) Describe() *Frame {
	stats := []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}
	cols := []*Series{NewText("stat", stats)}
	for _, n := range f.names {
		c := f.cols[n]
		if c.Kind() != Float {
			continue
		}
		v := c.Floats()
		cols = append(cols, NewFloat(n, []float64{
			float64(numeric.Count(v)),
			numeric.Mean(v),
			numeric.Std(v),
			numeric.Min(v),
			numeric.Percentile(v, 25),
			numeric.Percentile(v, 50),
			numeric.Percentile(v, 75),
			numeric.Max(v),
		}))
	}
	return MustNew(cols...)
}

// GroupMean averages value per distinct rendered key.
func (f *Frame) GroupMean(key, value string) map[string]float64 {
	k, v := f.Col(key), f.Col(value).Floats()
	groups := map[string][]float64{}
	for i := 0; i < f.rows; i++ {
		g := k.format(i)
		groups[g] = append(groups[g], v[i])
	}
	out := make(map[string]float64, len(groups))
	for g, xs := range groups {
		out[g] = numeric.Mean(xs)
	}
	return out
}

// Numeric reports whether every cell of a text column parses as a float.
func Numeric(values []string) bool {
	s := NewText("", values)
	for _, v := range s.Floats() {
		if math.IsNaN(v) {
			return false
		}
	}
	return len(values) > 0
}

// String renders the frame as a markdown table, eliding the middle of long frames.
func (f *Frame) String() string {
	if f.rows > 20 {
		head, tail := f.Head(10).Table(), f.Tail(10).Table()
		mid := make([]string, len(head.Header))
		for i := range mid {
			mid[i] = "..."
		}
		head.Rows = append(append(head.Rows, mid), tail.Rows...)
		return head.Markdown() + fmt.Sprintf("\n[%d rows x %d columns]\n", f.rows, len(f.names))
	}
	return f.Table().Markdown()
}
