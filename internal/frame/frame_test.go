package frame

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(t *testing.T) *Frame {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := []time.Time{base, base.Add(time.Hour), base.Add(2 * time.Hour), base.Add(3 * time.Hour)}
	f, err := New(
		NewTime("timestamp", ts),
		NewFloat("close", []float64{10, 12, 11, 15}),
		NewFloat("direction", []float64{0, 1, 2, 0}),
		NewLevels("support", [][]float64{{9}, {10, 11}, {}, {14}}),
	)
	require.NoError(t, err)
	return f
}

func TestNewRejectsRaggedColumns(t *testing.T) {
	_, err := New(NewFloat("a", []float64{1, 2}), NewFloat("b", []float64{1}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLength))

	_, err = New(NewFloat("a", []float64{1}), NewFloat("a", []float64{2}))
	assert.True(t, errors.Is(err, ErrDuplicate))
}

func TestColumnLookup(t *testing.T) {
	f := sample(t)
	assert.Equal(t, 4, f.Len())
	assert.Equal(t, []string{"timestamp", "close", "direction", "support"}, f.Columns())
	_, err := f.Column("nope")
	assert.True(t, errors.Is(err, ErrNoColumn))
	assert.Panics(t, func() { f.Col("nope") })
}

func TestSeriesStats(t *testing.T) {
	c := sample(t).Col("close")
	assert.InDelta(t, 12, c.Mean(), 1e-12)
	assert.InDelta(t, 48, c.Sum(), 1e-12)
	assert.Equal(t, 3, c.ArgMax())
	assert.Equal(t, 0, c.ArgMin())
	assert.Equal(t, 15.0, c.Last())
	assert.Equal(t, 4, c.Count())
}

func TestFilterAndSort(t *testing.T) {
	f := sample(t)
	longs := f.Filter(f.Col("direction").Eq(0))
	assert.Equal(t, 2, longs.Len())
	assert.Equal(t, []float64{10, 15}, longs.Col("close").Floats())

	sorted := f.SortBy("close", false)
	assert.Equal(t, []float64{15, 12, 11, 10}, sorted.Col("close").Floats())
	// source untouched
	assert.Equal(t, []float64{10, 12, 11, 15}, f.Col("close").Floats())
	assert.Panics(t, func() { f.Filter([]bool{true}) })
}

func TestHeadTailSliceClamp(t *testing.T) {
	f := sample(t)
	assert.Equal(t, 2, f.Head(2).Len())
	assert.Equal(t, []float64{11, 15}, f.Tail(2).Col("close").Floats())
	assert.Equal(t, 4, f.Head(100).Len())
	assert.Equal(t, 0, f.Slice(3, 1).Len())
}

func TestBetweenIsHalfOpen(t *testing.T) {
	f := sample(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	w := f.Between(base.Add(time.Hour), base.Add(3*time.Hour))
	assert.Equal(t, []float64{12, 11}, w.Col("close").Floats())
	assert.Equal(t, 3, f.Between(base.Add(time.Hour), time.Time{}).Len())
}

func TestCopyIsDeep(t *testing.T) {
	f := sample(t)
	c := f.Copy()
	c.Drop("close")
	c.Set("direction", NewFloat("x", []float64{9, 9, 9, 9}))

	assert.True(t, f.Has("close"))
	assert.Equal(t, []float64{0, 1, 2, 0}, f.Col("direction").Floats())
	assert.False(t, c.Has("close"))
	assert.Equal(t, "direction", c.Col("direction").Name())
}

func TestSetRejectsWrongLength(t *testing.T) {
	f := sample(t)
	assert.Panics(t, func() { f.Set("bad", NewFloat("bad", []float64{1})) })
	f.Set("ma2", f.Col("close").RollingMean(2))
	assert.Equal(t, "ma2", f.Columns()[4])
	assert.True(t, math.IsNaN(f.Col("ma2").Float(0)))
	assert.InDelta(t, 11, f.Col("ma2").Float(1), 1e-9)
}

func TestSeriesArithmetic(t *testing.T) {
	f := sample(t)
	c := f.Col("close")
	d := c.Sub(c.Shift(1))
	assert.True(t, math.IsNaN(d.Float(0)))
	assert.Equal(t, []float64{2, -1, 4}, d.Floats()[1:])
	assert.Equal(t, []float64{20, 24, 22, 30}, c.Apply(func(x float64) float64 { return x * 2 }).Floats())
	assert.Panics(t, func() { c.Add(NewFloat("x", []float64{1})) })
}

func TestValueCounts(t *testing.T) {
	counts := sample(t).Col("direction").ValueCounts()
	assert.Equal(t, map[string]int{"0": 2, "1": 1, "2": 1}, counts)
}

func TestTableMarkdown(t *testing.T) {
	md := sample(t).Head(2).Table().Markdown()
	lines := strings.Split(strings.TrimSpace(md), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "| timestamp | close | direction | support |", lines[0])
	assert.Equal(t, "| 2024-01-01 00:00:00 | 10 | 0 | [9] |", lines[2])
	assert.Equal(t, "| 2024-01-01 01:00:00 | 12 | 1 | [10, 11] |", lines[3])
}

func TestDescribe(t *testing.T) {
	d := sample(t).Describe()
	assert.Equal(t, []string{"stat", "close", "direction"}, d.Columns())
	assert.Equal(t, 8, d.Len())
	assert.Equal(t, 4.0, d.Col("close").Float(0))
	assert.InDelta(t, 12, d.Col("close").Float(1), 1e-12)
}

func TestGroupMean(t *testing.T) {
	g := sample(t).GroupMean("direction", "close")
	assert.InDelta(t, 12.5, g["0"], 1e-12)
	assert.InDelta(t, 12, g["1"], 1e-12)
}
