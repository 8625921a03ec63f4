// Package plot is the figure builder snippets use as plt. A Figure collects
// chart series and renders through the chart package.
package plot

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/KaramelBytes/candlechat/internal/chart"
	"github.com/KaramelBytes/candlechat/internal/frame"
)

// Figure is built by chaining calls. Builder methods never panic; the first
// problem is kept and reported by Err.
type Figure struct {
	title   string
	width   int
	height  int
	series  []chart.Series
	markers []chart.Marker
	err     error
}

// NewFigure starts an empty figure.
func NewFigure(title string) *Figure {
	cfg := chart.DefaultConfig()
	return &Figure{title: title, width: cfg.Width, height: cfg.Height}
}

func (f *Figure) fail(err error) *Figure {
	if f.err == nil {
		f.err = err
	}
	return f
}

// Title returns the figure title.
func (f *Figure) Title() string { return f.title }

// Err returns the first builder error, if any.
func (f *Figure) Err() error { return f.err }

// Size sets the pixel size.
func (f *Figure) Size(width, height int) *Figure {
	if width <= 0 || height <= 0 {
		return f.fail(fmt.Errorf("plot: invalid size %dx%d", width, height))
	}
	f.width, f.height = width, height
	return f
}

// Plot adds column col of df as a line against the timestamp index.
func (f *Figure) Plot(df *frame.Frame, col string) *Figure {
	if df == nil {
		return f.fail(errors.New("plot: nil frame"))
	}
	s, err := df.Column(col)
	if err != nil {
		return f.fail(fmt.Errorf("plot: %w", err))
	}
	return f.Line(col, indexTimes(df), s.Floats())
}

// Line adds a named line from parallel times and values.
func (f *Figure) Line(name string, times []time.Time, values []float64) *Figure {
	if len(times) != len(values) {
		return f.fail(fmt.Errorf("plot: line %q has %d times and %d values", name, len(times), len(values)))
	}
	pts := make([]chart.Point, len(times))
	for i, t := range times {
		pts[i] = chart.Point{Time: t.Unix(), Value: values[i]}
	}
	f.series = append(f.series, chart.Series{Type: chart.Line, Name: name, Points: pts})
	return f
}

// Candles adds an OHLC series from the open/high/low/close columns of df.
func (f *Figure) Candles(df *frame.Frame) *Figure {
	if df == nil {
		return f.fail(errors.New("plot: nil frame"))
	}
	cols := make([][]float64, 4)
	for i, name := range []string{"open", "high", "low", "close"} {
		s, err := df.Column(name)
		if err != nil {
			return f.fail(fmt.Errorf("plot: candles: %w", err))
		}
		cols[i] = s.Floats()
	}
	times := indexTimes(df)
	cs := make([]chart.Candle, len(times))
	for i, t := range times {
		cs[i] = chart.Candle{Time: t.Unix(), Open: cols[0][i], High: cols[1][i], Low: cols[2][i], Close: cols[3][i]}
	}
	f.series = append(f.series, chart.Series{
		Type:    chart.Candlestick,
		Name:    "price",
		Candles: cs,
		Options: map[string]any{"upColor": chart.ColorBull, "downColor": chart.ColorBear},
	})
	return f
}

// Marker annotates the candle at t. Position is aboveBar, belowBar or
// inBar; shape is arrowUp, arrowDown, circle or square.
func (f *Figure) Marker(t time.Time, position, color, shape, text string) *Figure {
	switch position {
	case "aboveBar", "belowBar", "inBar":
	default:
		return f.fail(fmt.Errorf("plot: unknown marker position %q", position))
	}
	switch shape {
	case "arrowUp", "arrowDown", "circle", "square":
	default:
		return f.fail(fmt.Errorf("plot: unknown marker shape %q", shape))
	}
	f.markers = append(f.markers, chart.Marker{Time: t.Unix(), Position: position, Color: color, Shape: shape, Size: 1, Text: text})
	return f
}

// Series returns copies of the figure's series. Markers are attached to the
// first candlestick series, or to the first series when there is none.
func (f *Figure) Series() []chart.Series {
	out := make([]chart.Series, len(f.series))
	copy(out, f.series)
	if len(f.markers) == 0 || len(out) == 0 {
		return out
	}
	target := 0
	for i, s := range out {
		if s.Type == chart.Candlestick {
			target = i
			break
		}
	}
	out[target].Markers = append(append([]chart.Marker(nil), out[target].Markers...), f.markers...)
	return out
}

// Chart converts the figure to a chart payload.
func (f *Figure) Chart() *chart.Chart {
	cfg := chart.DefaultConfig()
	cfg.Title, cfg.Width, cfg.Height = f.title, f.width, f.height
	return &chart.Chart{Config: cfg, Series: f.Series()}
}

// RenderHTML writes the figure as an HTML page.
func (f *Figure) RenderHTML(w io.Writer) error {
	if f.err != nil {
		return f.err
	}
	return chart.RenderHTML(w, f.Chart())
}

// indexTimes returns the timestamp column, or row numbers as unix seconds
// when the frame has none.
func indexTimes(df *frame.Frame) []time.Time {
	if s, err := df.Column(frame.IndexColumn); err == nil && s.Kind() == frame.Time {
		return s.Times()
	}
	out := make([]time.Time, df.Len())
	for i := range out {
		out[i] = time.Unix(int64(i), 0).UTC()
	}
	return out
}
