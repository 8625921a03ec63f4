package chart

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/KaramelBytes/candlechat/internal/dataset"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func sampleDataset(n int) *dataset.Dataset {
	ds := &dataset.Dataset{Name: "TSLA_data.csv"}
	dirs := []dataset.Direction{dataset.Long, dataset.Short, dataset.Neutral}
	for i := 0; i < n; i++ {
		r := dataset.Row{
			Timestamp: day0.Add(time.Duration(i) * time.Hour),
			Open:      100 + float64(i), High: 110 + float64(i), Low: 95 + float64(i), Close: 105 + float64(i),
			Direction: dirs[i%3],
			Support:   dataset.Levels{90, 95},
		}
		if i%2 == 0 {
			r.Resistance = dataset.Levels{120}
		}
		ds.Rows = append(ds.Rows, r)
	}
	return ds
}

func TestFromDatasetDefaultLimit(t *testing.T) {
	c := FromDataset(sampleDataset(DefaultLimit+20), Window{})
	require.NotEmpty(t, c.Series)
	candles := c.Series[0]
	assert.Equal(t, Candlestick, candles.Type)
	assert.Len(t, candles.Candles, DefaultLimit)
	assert.Equal(t, day0.Unix(), candles.Candles[0].Time)
	assert.Equal(t, ColorBull, candles.Options["upColor"])
	assert.Equal(t, ColorBear, candles.Options["downColor"])
	assert.Equal(t, "white", c.Config.Layout.Background)
	assert.Equal(t, "black", c.Config.Layout.TextColor)

	all := FromDataset(sampleDataset(DefaultLimit+20), Window{Limit: -1})
	assert.Len(t, all.Series[0].Candles, DefaultLimit+20)
}

func TestFromDatasetMarkers(t *testing.T) {
	c := FromDataset(sampleDataset(3), Window{})
	m := c.Series[0].Markers
	require.Len(t, m, 2, "neutral rows carry no marker")
	assert.Equal(t, Marker{Time: day0.Unix(), Position: "belowBar", Color: ColorBull, Shape: "arrowUp", Size: 1, Text: "LONG"}, m[0])
	assert.Equal(t, "aboveBar", m[1].Position)
	assert.Equal(t, "arrowDown", m[1].Shape)
}

func TestFromDatasetBands(t *testing.T) {
	ds := sampleDataset(4)
	ds.Rows[1].Support = dataset.Levels{}
	c := FromDataset(ds, Window{})
	names := map[string]Series{}
	for _, s := range c.Series[1:] {
		assert.Equal(t, Line, s.Type)
		names[s.Name] = s
	}
	require.Len(t, names, 4)
	assert.Len(t, names["support_min"].Points, 3, "empty set leaves a gap")
	assert.Equal(t, 95.0, names["support_max"].Points[0].Value)
	assert.Len(t, names["resistance_max"].Points, 2)
}

func TestFromDatasetWindowHalfOpen(t *testing.T) {
	ds := sampleDataset(10)
	c := FromDataset(ds, Window{From: day0.Add(2 * time.Hour), To: day0.Add(5 * time.Hour)})
	got := c.Series[0].Candles
	require.Len(t, got, 3)
	assert.Equal(t, day0.Add(2*time.Hour).Unix(), got[0].Time)
	assert.Equal(t, day0.Add(4*time.Hour).Unix(), got[2].Time)
}

func TestWriteJSON(t *testing.T) {
	c := FromDataset(sampleDataset(2), Window{})
	c.Series = append(c.Series, Series{Type: Line, Name: "gap", Points: []Point{{Time: 1, Value: math.NaN()}}})
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, c))
	doc := gjson.ParseBytes(buf.Bytes())
	assert.Equal(t, "white", doc.Get("chart.layout.background").String())
	assert.Equal(t, "Candlestick", doc.Get("series.0.type").String())
	assert.Equal(t, int64(2), doc.Get("series.0.data.#").Int())
	assert.Equal(t, 105.0, doc.Get("series.0.data.0.close").Float())
	assert.Equal(t, "arrowUp", doc.Get("series.0.markers.0.shape").String())
	last := doc.Get("series.#").Int() - 1
	assert.Equal(t, gjson.Null, doc.Get(fmt.Sprintf("series.%d.data.0.value", last)).Type)
}

func TestWriteJSONEmptySeries(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, &Chart{Config: DefaultConfig(), Series: []Series{{Type: Line}}}))
	assert.True(t, gjson.GetBytes(buf.Bytes(), "series.0.data").IsArray())
}

func TestRenderHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, FromDataset(sampleDataset(6), Window{})))
	html := buf.String()
	assert.True(t, strings.Contains(html, "echarts"), "expected an echarts page")
	assert.True(t, strings.Contains(html, "candlestick"))
	assert.True(t, strings.Contains(html, "support_min"))
}

func TestRenderHTMLLineOnly(t *testing.T) {
	c := &Chart{Config: DefaultConfig(), Series: []Series{
		{Type: Line, Name: "close", Points: []Point{{Time: 10, Value: 1}, {Time: 20, Value: 2}}},
		{Type: Line, Name: "ma", Points: []Point{{Time: 20, Value: 1.5}}},
	}}
	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, c))
	assert.True(t, strings.Contains(buf.String(), "\"ma\""))
}

func TestRenderHTMLEmpty(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, RenderHTML(&buf, &Chart{}), ErrEmpty)
	assert.ErrorIs(t, RenderHTML(&buf, nil), ErrEmpty)
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow("2024-01-02", "", 10)
	require.NoError(t, err)
	assert.Equal(t, day0.AddDate(0, 0, 1), w.From)
	assert.True(t, w.To.IsZero())
	assert.Equal(t, 10, w.Limit)

	_, err = ParseWindow("2024-01-03", "2024-01-02", 0)
	assert.Error(t, err)
	_, err = ParseWindow("soon", "", 0)
	assert.ErrorContains(t, err, "from")
}
