// Package chart holds the candlestick chart payload shared by the CLI, the
// HTTP API and snippet figures, and renders it to JSON or HTML.
package chart

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/KaramelBytes/candlechat/internal/dataset"
)

const (
	ColorBull = "rgba(38,166,154,0.9)"
	ColorBear = "rgba(239,83,80,0.9)"

	// DefaultLimit caps how many candles the dashboard chart shows.
	DefaultLimit = 500
)

// SeriesType selects how a series is drawn.
type SeriesType string

const (
	Candlestick SeriesType = "Candlestick"
	Line        SeriesType = "Line"
)

// Layout is the chart surface styling.
type Layout struct {
	TextColor  string `json:"textColor"`
	Background string `json:"background"`
}

// Config is the chart-wide configuration.
type Config struct {
	Title  string `json:"title,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Layout Layout `json:"layout"`
}

// DefaultConfig matches the dashboard look: white background, black text.
func DefaultConfig() Config {
	return Config{Width: 1200, Height: 600, Layout: Layout{TextColor: "black", Background: "white"}}
}

// Candle is one OHLC bar keyed by unix seconds.
type Candle struct {
	Time  int64   `json:"time"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// Point is one line sample. A NaN value is a gap.
type Point struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

// MarshalJSON writes gaps as a null value; encoding/json rejects NaN.
func (p Point) MarshalJSON() ([]byte, error) {
	if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
		return json.Marshal(struct {
			Time  int64 `json:"time"`
			Value any   `json:"value"`
		}{p.Time, nil})
	}
	type plain Point
	return json.Marshal(plain(p))
}

// Marker annotates one candle.
type Marker struct {
	Time     int64  `json:"time"`
	Position string `json:"position"`
	Color    string `json:"color"`
	Shape    string `json:"shape"`
	Size     int    `json:"size,omitempty"`
	Text     string `json:"text,omitempty"`
}

// Series is one drawable layer. Candlestick series use Candles, line series
// use Points; Data in the JSON form is whichever applies.
type Series struct {
	Type    SeriesType     `json:"type"`
	Name    string         `json:"name,omitempty"`
	Candles []Candle       `json:"-"`
	Points  []Point        `json:"-"`
	Options map[string]any `json:"options,omitempty"`
	Markers []Marker       `json:"markers,omitempty"`
}

func (s Series) MarshalJSON() ([]byte, error) {
	type plain Series
	out := struct {
		plain
		Data any `json:"data"`
	}{plain: plain(s)}
	if s.Type == Candlestick {
		out.Data = nonNil(s.Candles)
	} else {
		out.Data = nonNil(s.Points)
	}
	return json.Marshal(out)
}

func nonNil[T any](xs []T) []T {
	if xs == nil {
		return []T{}
	}
	return xs
}

// Len is the number of data items in the series.
func (s Series) Len() int {
	if s.Type == Candlestick {
		return len(s.Candles)
	}
	return len(s.Points)
}

// Chart is the full payload.
type Chart struct {
	Config Config   `json:"chart"`
	Series []Series `json:"series"`
}

// WriteJSON encodes c to w.
func WriteJSON(w io.Writer, c *Chart) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

// Window restricts which rows FromDataset uses. From is inclusive, To is
// exclusive and zero times are open ends. Limit 0 means DefaultLimit and a
// negative Limit shows every row.
type Window struct {
	From  time.Time
	To    time.Time
	Limit int
}

// ParseWindow builds a Window from user text. Empty bounds are open.
func ParseWindow(from, to string, limit int) (Window, error) {
	w := Window{Limit: limit}
	var err error
	if strings.TrimSpace(from) != "" {
		if w.From, err = dataset.ParseTimestamp(from); err != nil {
			return Window{}, fmt.Errorf("from: %w", err)
		}
	}
	if strings.TrimSpace(to) != "" {
		if w.To, err = dataset.ParseTimestamp(to); err != nil {
			return Window{}, fmt.Errorf("to: %w", err)
		}
	}
	if !w.From.IsZero() && !w.To.IsZero() && !w.From.Before(w.To) {
		return Window{}, fmt.Errorf("empty window: from %s is not before to %s", from, to)
	}
	return w, nil
}

// FromDataset builds the dashboard chart: candles, LONG/SHORT markers and the
// four support/resistance band lines.
func FromDataset(ds *dataset.Dataset, w Window) *Chart {
	limit := w.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	var rows []dataset.Row
	for _, r := range ds.Rows {
		if !w.From.IsZero() && r.Timestamp.Before(w.From) {
			continue
		}
		if !w.To.IsZero() && !r.Timestamp.Before(w.To) {
			continue
		}
		rows = append(rows, r)
		if limit > 0 && len(rows) == limit {
			break
		}
	}

	candles := Series{
		Type: Candlestick,
		Name: ds.Name,
		Options: map[string]any{
			"upColor":       ColorBull,
			"downColor":     ColorBear,
			"borderVisible": false,
			"wickUpColor":   ColorBull,
			"wickDownColor": ColorBear,
		},
	}
	bands := []struct {
		name  string
		color string
		value func(dataset.Row) float64
	}{
		{"support_min", ColorBull, dataset.Row.SupportMin},
		{"support_max", ColorBull, dataset.Row.SupportMax},
		{"resistance_min", ColorBear, dataset.Row.ResistanceMin},
		{"resistance_max", ColorBear, dataset.Row.ResistanceMax},
	}
	lines := make([]Series, len(bands))
	for i, b := range bands {
		lines[i] = Series{Type: Line, Name: b.name, Options: map[string]any{"color": b.color, "lineWidth": 1}}
	}

	for _, r := range rows {
		t := r.Timestamp.Unix()
		candles.Candles = append(candles.Candles, Candle{Time: t, Open: r.Open, High: r.High, Low: r.Low, Close: r.Close})
		if m, ok := directionMarker(t, r.Direction); ok {
			candles.Markers = append(candles.Markers, m)
		}
		for i, b := range bands {
			if v := b.value(r); !math.IsNaN(v) {
				lines[i].Points = append(lines[i].Points, Point{Time: t, Value: v})
			}
		}
	}

	c := &Chart{Config: DefaultConfig(), Series: []Series{candles}}
	c.Config.Title = ds.Name
	for _, l := range lines {
		if len(l.Points) > 0 {
			c.Series = append(c.Series, l)
		}
	}
	return c
}

func directionMarker(t int64, d dataset.Direction) (Marker, bool) {
	switch d {
	case dataset.Long:
		return Marker{Time: t, Position: "belowBar", Color: ColorBull, Shape: "arrowUp", Size: 1, Text: "LONG"}, true
	case dataset.Short:
		return Marker{Time: t, Position: "aboveBar", Color: ColorBear, Shape: "arrowDown", Size: 1, Text: "SHORT"}, true
	}
	return Marker{}, false
}
