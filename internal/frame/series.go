package frame

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/candlechat/internal/numeric"
)

// Kind is the storage type of a Series.
type Kind int

const (
	Float Kind = iota
	Time
	Text
	Levels
)

func (k Kind) String() string {
	switch k {
	case Float:
		return "float"
	case Time:
		return "time"
	case Text:
		return "text"
	case Levels:
		return "levels"
	default:
		return "unknown"
	}
}

// Series is one named column. Only the slice matching its Kind is populated.
type Series struct {
	name   string
	kind   Kind
	floats []float64
	times  []time.Time
	texts  []string
	levels [][]float64
}

// NewFloat builds a numeric series. The values are copied.
func NewFloat(name string, values []float64) *Series {
	return &Series{name: name, kind: Float, floats: append([]float64(nil), values...)}
}

// NewTime builds a timestamp series. The values are copied.
func NewTime(name string, values []time.Time) *Series {
	return &Series{name: name, kind: Time, times: append([]time.Time(nil), values...)}
}

// NewText builds a string series. The values are copied.
func NewText(name string, values []string) *Series {
	return &Series{name: name, kind: Text, texts: append([]string(nil), values...)}
}

// NewLevels builds a series whose cells are sets of price levels.
func NewLevels(name string, values [][]float64) *Series {
	s := &Series{name: name, kind: Levels, levels: make([][]float64, len(values))}
	for i, v := range values {
		s.levels[i] = append([]float64(nil), v...)
	}
	return s
}

func (s *Series) Name() string { return s.name }
func (s *Series) Kind() Kind   { return s.kind }

// Rename returns a copy of s under a new name.
func (s *Series) Rename(name string) *Series {
	c := s.Copy()
	c.name = name
	return c
}

// Len returns the number of cells.
func (s *Series) Len() int {
	switch s.kind {
	case Float:
		return len(s.floats)
	case Time:
		return len(s.times)
	case Text:
		return len(s.texts)
	case Levels:
		return len(s.levels)
	}
	return 0
}

// Copy returns a deep copy.
func (s *Series) Copy() *Series {
	switch s.kind {
	case Float:
		return NewFloat(s.name, s.floats)
	case Time:
		return NewTime(s.name, s.times)
	case Text:
		return NewText(s.name, s.texts)
	default:
		return NewLevels(s.name, s.levels)
	}
}

// Floats returns the values as float64. Time cells become unix seconds and
// cells without a numeric reading become NaN.
func (s *Series) Floats() []float64 {
	out := make([]float64, s.Len())
	switch s.kind {
	case Float:
		copy(out, s.floats)
	case Time:
		for i, t := range s.times {
			out[i] = float64(t.Unix())
		}
	case Text:
		for i, v := range s.texts {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				f = math.NaN()
			}
			out[i] = f
		}
	default:
		for i := range out {
			out[i] = math.NaN()
		}
	}
	return out
}

// Times returns a copy of the timestamps; nil for non-time series.
func (s *Series) Times() []time.Time {
	if s.kind != Time {
		return nil
	}
	return append([]time.Time(nil), s.times...)
}

// Strings renders every cell as text.
func (s *Series) Strings() []string {
	out := make([]string, s.Len())
	for i := range out {
		out[i] = s.format(i)
	}
	return out
}

// LevelSets returns a copy of the level sets; nil for other kinds.
func (s *Series) LevelSets() [][]float64 {
	if s.kind != Levels {
		return nil
	}
	return NewLevels(s.name, s.levels).levels
}

// At returns cell i as float64, time.Time, string or []float64.
func (s *Series) At(i int) any {
	switch s.kind {
	case Float:
		return s.floats[i]
	case Time:
		return s.times[i]
	case Text:
		return s.texts[i]
	default:
		return append([]float64(nil), s.levels[i]...)
	}
}

// Float returns cell i as float64 (see Floats for conversions).
func (s *Series) Float(i int) float64 {
	switch s.kind {
	case Float:
		return s.floats[i]
	case Time:
		return float64(s.times[i].Unix())
	}
	return s.Floats()[i]
}

func (s *Series) Mean() float64   { return numeric.Mean(s.Floats()) }
func (s *Series) Sum() float64    { return numeric.Sum(s.Floats()) }
func (s *Series) Min() float64    { return numeric.Min(s.Floats()) }
func (s *Series) Max() float64    { return numeric.Max(s.Floats()) }
func (s *Series) Std() float64    { return numeric.Std(s.Floats()) }
func (s *Series) Median() float64 { return numeric.Median(s.Floats()) }

// Count returns the number of non-missing cells.
func (s *Series) Count() int {
	switch s.kind {
	case Float:
		return numeric.Count(s.floats)
	case Time:
		n := 0
		for _, t := range s.times {
			if !t.IsZero() {
				n++
			}
		}
		return n
	case Text:
		n := 0
		for _, v := range s.texts {
			if strings.TrimSpace(v) != "" {
				n++
			}
		}
		return n
	default:
		n := 0
		for _, v := range s.levels {
			if len(v) > 0 {
				n++
			}
		}
		return n
	}
}

// First returns cell 0 or nil when empty.
func (s *Series) First() any {
	if s.Len() == 0 {
		return nil
	}
	return s.At(0)
}

// Last returns the final cell or nil when empty.
func (s *Series) Last() any {
	if s.Len() == 0 {
		return nil
	}
	return s.At(s.Len() - 1)
}

// ArgMax returns the index of the largest value, or -1.
func (s *Series) ArgMax() int {
	best := -1
	for i, v := range s.Floats() {
		if math.IsNaN(v) {
			continue
		}
		if best < 0 || v > s.Float(best) {
			best = i
		}
	}
	return best
}

// ArgMin returns the index of the smallest value, or -1.
func (s *Series) ArgMin() int {
	best := -1
	for i, v := range s.Floats() {
		if math.IsNaN(v) {
			continue
		}
		if best < 0 || v < s.Float(best) {
			best = i
		}
	}
	return best
}

func (s *Series) mask(pred func(float64) bool) []bool {
	vals := s.Floats()
	out := make([]bool, len(vals))
	for i, v := range vals {
		out[i] = !math.IsNaN(v) && pred(v)
	}
	return out
}

func (s *Series) Gt(x float64) []bool { return s.mask(func(v float64) bool { return v > x }) }
func (s *Series) Ge(x float64) []bool { return s.mask(func(v float64) bool { return v >= x }) }
func (s *Series) Lt(x float64) []bool { return s.mask(func(v float64) bool { return v < x }) }
func (s *Series) Le(x float64) []bool { return s.mask(func(v float64) bool { return v <= x }) }
func (s *Series) Eq(x float64) []bool { return s.mask(func(v float64) bool { return v == x }) }
func (s *Series) Ne(x float64) []bool { return s.mask(func(v float64) bool { return v != x }) }

// Is compares the rendered text of each cell with v.
func (s *Series) Is(v string) []bool {
	out := make([]bool, s.Len())
	for i := range out {
		out[i] = s.format(i) == v
	}
	return out
}

func (s *Series) derived(suffix string, values []float64) *Series {
	name := s.name
	if suffix != "" {
		name = s.name + "_" + suffix
	}
	return &Series{name: name, kind: Float, floats: values}
}

// Diff is the element-wise difference with the previous cell.
func (s *Series) Diff() *Series { return s.derived("diff", numeric.Diff(s.Floats())) }

// PctChange is the fractional change from the previous cell.
func (s *Series) PctChange() *Series { return s.derived("pct", numeric.PctChange(s.Floats())) }

// RollingMean is the trailing mean over n cells; the first n-1 cells are NaN.
func (s *Series) RollingMean(n int) *Series {
	return s.derived(fmt.Sprintf("ma%d", n), numeric.SMA(s.Floats(), n))
}

// Shift moves values down by n cells (up for negative n), filling with NaN.
func (s *Series) Shift(n int) *Series {
	vals := s.Floats()
	out := make([]float64, len(vals))
	for i := range out {
		j := i - n
		if j < 0 || j >= len(vals) {
			out[i] = math.NaN()
			continue
		}
		out[i] = vals[j]
	}
	return s.derived("", out)
}

func (s *Series) zip(o *Series, op func(a, b float64) float64) *Series {
	if o.Len() != s.Len() {
		panic(fmt.Errorf("%w: %q has %d values, %q has %d", ErrLength, s.name, s.Len(), o.name, o.Len()))
	}
	a, b := s.Floats(), o.Floats()
	out := make([]float64, len(a))
	for i := range a {
		out[i] = op(a[i], b[i])
	}
	return s.derived("", out)
}

// Add, Sub, Mul and Div combine two series of equal length cell by cell.
func (s *Series) Add(o *Series) *Series { return s.zip(o, func(a, b float64) float64 { return a + b }) }
func (s *Series) Sub(o *Series) *Series { return s.zip(o, func(a, b float64) float64 { return a - b }) }
func (s *Series) Mul(o *Series) *Series { return s.zip(o, func(a, b float64) float64 { return a * b }) }
func (s *Series) Div(o *Series) *Series {
	return s.zip(o, func(a, b float64) float64 {
		if b == 0 {
			return math.NaN()
		}
		return a / b
	})
}

// Apply maps fn over the numeric reading of every cell.
func (s *Series) Apply(fn func(float64) float64) *Series {
	vals := s.Floats()
	for i, v := range vals {
		vals[i] = fn(v)
	}
	return s.derived("", vals)
}

// ValueCounts counts cells by their rendered text.
func (s *Series) ValueCounts() map[string]int {
	out := map[string]int{}
	for i := 0; i < s.Len(); i++ {
		out[s.format(i)]++
	}
	return out
}

// Unique returns the distinct rendered values in sorted order.
func (s *Series) Unique() []string {
	counts := s.ValueCounts()
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Series) take(idx []int) *Series {
	out := &Series{name: s.name, kind: s.kind}
	for _, i := range idx {
		switch s.kind {
		case Float:
			out.floats = append(out.floats, s.floats[i])
		case Time:
			out.times = append(out.times, s.times[i])
		case Text:
			out.texts = append(out.texts, s.texts[i])
		default:
			out.levels = append(out.levels, append([]float64(nil), s.levels[i]...))
		}
	}
	return out
}

func (s *Series) less(i, j int) bool {
	switch s.kind {
	case Time:
		return s.times[i].Before(s.times[j])
	case Text:
		return s.texts[i] < s.texts[j]
	}
	a, b := s.Float(i), s.Float(j)
	if math.IsNaN(b) {
		return !math.IsNaN(a)
	}
	return a < b
}

func (s *Series) format(i int) string {
	switch s.kind {
	case Float:
		return FormatFloat(s.floats[i])
	case Time:
		return FormatTime(s.times[i])
	case Text:
		return s.texts[i]
	default:
		return FormatLevels(s.levels[i])
	}
}

// String renders the series as "name: [v0 v1 ...]", eliding long series.
func (s *Series) String() string {
	vals := s.Strings()
	if len(vals) > 10 {
		vals = append(append(vals[:5:5], "..."), vals[len(vals)-5:]...)
	}
	return fmt.Sprintf("%s: [%s]", s.name, strings.Join(vals, " "))
}

// FormatFloat prints x with at most six decimals.
func FormatFloat(x float64) string {
	switch {
	case math.IsNaN(x):
		return "NaN"
	case math.IsInf(x, 1):
		return "+Inf"
	case math.IsInf(x, -1):
		return "-Inf"
	}
	return strconv.FormatFloat(numeric.Round(x, 6), 'f', -1, 64)
}

// FormatTime prints t in UTC as "2006-01-02 15:04:05".
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

// FormatLevels prints a level set as a list literal, e.g. "[100, 105.5]".
func FormatLevels(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = FormatFloat(x)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
