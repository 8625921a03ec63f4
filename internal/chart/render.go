package chart

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// ErrEmpty is returned when there is nothing to draw.
var ErrEmpty = errors.New("chart has no data")

const axisLayout = "2006-01-02 15:04"

// RenderHTML draws c as a standalone echarts page: a kline base when a
// candlestick series is present, otherwise a line base, with every other
// series overlapped on a shared category axis.
func RenderHTML(w io.Writer, c *Chart) error {
	if c == nil {
		return ErrEmpty
	}
	axis := timeAxis(c.Series)
	if len(axis) == 0 {
		return ErrEmpty
	}
	labels := make([]string, len(axis))
	pos := make(map[int64]int, len(axis))
	for i, t := range axis {
		labels[i] = time.Unix(t, 0).UTC().Format(axisLayout)
		pos[t] = i
	}

	global := globalOptions(c.Config)
	var overlays []charts.Overlaper
	var kline *charts.Kline
	var base *charts.Line
	for _, s := range c.Series {
		switch s.Type {
		case Candlestick:
			if kline != nil {
				// one kline per page; extra candle series are ignored
				continue
			}
			kline = buildKline(s, labels, pos)
			if len(s.Markers) > 0 {
				overlays = append(overlays, buildMarkers(s, labels, pos))
			}
		default:
			l := buildLine(s, labels, pos)
			if base == nil {
				base = l
				continue
			}
			overlays = append(overlays, l)
		}
	}

	if kline != nil {
		kline.SetGlobalOptions(global...)
		if base != nil {
			overlays = append([]charts.Overlaper{base}, overlays...)
		}
		kline.Overlap(overlays...)
		return kline.Render(w)
	}
	base.SetGlobalOptions(global...)
	base.Overlap(overlays...)
	return base.Render(w)
}

func globalOptions(cfg Config) []charts.GlobalOpts {
	width, height := cfg.Width, cfg.Height
	if width <= 0 {
		width = DefaultConfig().Width
	}
	if height <= 0 {
		height = DefaultConfig().Height
	}
	text := cfg.Layout.TextColor
	if text == "" {
		text = "black"
	}
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			Width:           fmt.Sprintf("%dpx", width),
			Height:          fmt.Sprintf("%dpx", height),
			BackgroundColor: cfg.Layout.Background,
			PageTitle:       cfg.Title,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:      cfg.Title,
			Left:       "left",
			TitleStyle: &opts.TextStyle{Color: text},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "30", TextStyle: &opts.TextStyle{Color: text}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: text},
			SplitLine: &opts.SplitLine{Show: opts.Bool(false)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: text},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Opacity: opts.Float(0.2)}},
		}),
	}
}

func timeAxis(series []Series) []int64 {
	seen := map[int64]bool{}
	var out []int64
	add := func(t int64) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, s := range series {
		for _, c := range s.Candles {
			add(c.Time)
		}
		for _, p := range s.Points {
			add(p.Time)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func buildKline(s Series, labels []string, pos map[int64]int) *charts.Kline {
	up, down := optString(s.Options, "upColor", ColorBull), optString(s.Options, "downColor", ColorBear)
	k := charts.NewKLine()
	k.SetSeriesOptions(charts.WithItemStyleOpts(opts.ItemStyle{
		Color:        up,
		Color0:       down,
		BorderColor:  up,
		BorderColor0: down,
	}))
	data := make([]opts.KlineData, len(labels))
	for _, c := range s.Candles {
		data[pos[c.Time]] = opts.KlineData{Value: [4]float64{c.Open, c.Close, c.Low, c.High}}
	}
	k.SetXAxis(labels)
	k.AddSeries(seriesName(s, "price"), data)
	return k
}

func buildLine(s Series, labels []string, pos map[int64]int) *charts.Line {
	l := charts.NewLine()
	l.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	data := make([]opts.LineData, len(labels))
	for i := range data {
		data[i] = opts.LineData{Value: nil}
	}
	for _, p := range s.Points {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			continue
		}
		data[pos[p.Time]] = opts.LineData{Value: p.Value}
	}
	style := opts.LineStyle{Width: 1}
	if c := optString(s.Options, "color", ""); c != "" {
		style.Color = c
	}
	l.SetXAxis(labels)
	l.AddSeries(seriesName(s, "value"), data, charts.WithLineStyleOpts(style))
	return l
}

// buildMarkers draws direction markers as a scatter layer next to the bar
// they annotate.
func buildMarkers(s Series, labels []string, pos map[int64]int) *charts.Scatter {
	lows := map[int64]float64{}
	highs := map[int64]float64{}
	for _, c := range s.Candles {
		lows[c.Time], highs[c.Time] = c.Low, c.High
	}
	sc := charts.NewScatter()
	groups := map[string][]opts.ScatterData{}
	var order []string
	for _, m := range s.Markers {
		i, ok := pos[m.Time]
		if !ok {
			continue
		}
		y, rotate := highs[m.Time], 0
		if m.Position == "belowBar" {
			y = lows[m.Time]
		}
		if m.Shape == "arrowDown" {
			rotate = 180
		}
		size := 10
		if m.Size > 1 {
			size = 10 * m.Size
		}
		name := m.Text
		if name == "" {
			name = m.Shape
		}
		if _, seen := groups[name]; !seen {
			order = append(order, name)
		}
		groups[name] = append(groups[name], opts.ScatterData{
			Name:         m.Text,
			Value:        []interface{}{labels[i], y},
			Symbol:       "triangle",
			SymbolSize:   size,
			SymbolRotate: rotate,
		})
	}
	sc.SetXAxis(labels)
	for _, name := range order {
		color := ColorBull
		for _, m := range s.Markers {
			if m.Text == name || (m.Text == "" && m.Shape == name) {
				color = m.Color
				break
			}
		}
		sc.AddSeries(name, groups[name], charts.WithItemStyleOpts(opts.ItemStyle{Color: color}))
	}
	return sc
}

func optString(o map[string]any, key, def string) string {
	if v, ok := o[key].(string); ok && v != "" {
		return v
	}
	return def
}

func seriesName(s Series, def string) string {
	if s.Name != "" {
		return s.Name
	}
	return def
}
