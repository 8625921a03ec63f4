package present

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/KaramelBytes/candlechat/internal/frame"
	"github.com/KaramelBytes/candlechat/internal/plot"
	"github.com/KaramelBytes/candlechat/internal/sandbox"
)

const code = `result = df.Col("close").Mean()`

func table() *frame.Frame {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return frame.MustNew(
		frame.NewTime("timestamp", []time.Time{t0, t0.Add(time.Hour)}),
		frame.NewFloat("close", []float64{1.5, 2.5}),
	)
}

func TestPresentScalar(t *testing.T) {
	d := Present(code, sandbox.Outcome{Kind: sandbox.Success, Result: 2.5, ShowCode: true})
	assert.Equal(t, ShowText, d.Action)
	assert.Equal(t, "Answer: 2.5", d.Text)
	assert.Equal(t, code, d.Code)
	assert.Equal(t, "Answer: 2.5", d.Summary())
}

func TestPresentPrecedence(t *testing.T) {
	fig := plot.NewFigure("close").Plot(table(), "close")
	d := Present(code, sandbox.Outcome{Kind: sandbox.Success, Result: table(), Figure: fig, ShowCode: true})
	assert.Equal(t, ShowChart, d.Action, "figure wins over table")
	assert.True(t, strings.HasPrefix(d.Summary(), "📈 Chart: close"))

	d = Present(code, sandbox.Outcome{Kind: sandbox.Success, Result: table(), ShowCode: true})
	assert.Equal(t, ShowTable, d.Action)
	assert.Contains(t, d.Summary(), "| timestamp | close |")
}

func TestPresentHidesCode(t *testing.T) {
	d := Present(code, sandbox.Outcome{Kind: sandbox.Success, Result: "Hi there!", ShowCode: false})
	assert.Empty(t, d.Code)
	assert.Equal(t, "Hi there!", d.Text)
}

func TestPresentFailureEchoesCode(t *testing.T) {
	out := sandbox.Outcome{Kind: sandbox.Failure, Message: sandbox.FailurePrefix + "run: panic: boom", ShowCode: false}
	d := Present(code, out)
	assert.True(t, d.Failed)
	assert.Equal(t, ShowText, d.Action)
	assert.Equal(t, code, d.Code)
	assert.Equal(t, out.Message, d.Summary())
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "<nil>", Format(nil))
	assert.Equal(t, "NaN", Format(math.NaN()))
	assert.Equal(t, "42", Format(42))
	assert.Equal(t, "[1, 2.5]", Format([]float64{1, 2.5}))
	assert.Equal(t, "0: 3\n2: 1", Format(map[string]int{"2": 1, "0": 3}))
	assert.Equal(t, "2024-01-01 00:00:00", Format(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestMarshalJSON(t *testing.T) {
	d := Present(code, sandbox.Outcome{Kind: sandbox.Success, Result: table(), ShowCode: true})
	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, "table", gjson.GetBytes(b, "action").String())
	assert.Equal(t, "close", gjson.GetBytes(b, "table.header.1").String())
	assert.Equal(t, int64(2), gjson.GetBytes(b, "table.rows.#").Int())
	assert.False(t, gjson.GetBytes(b, "failed").Bool())

	fig := plot.NewFigure("c").Candles(frame.MustNew(
		frame.NewFloat("open", []float64{1}), frame.NewFloat("high", []float64{2}),
		frame.NewFloat("low", []float64{0}), frame.NewFloat("close", []float64{1.5}),
	))
	b, err = json.Marshal(Present(code, sandbox.Outcome{Kind: sandbox.Success, Figure: fig, ShowCode: true}))
	require.NoError(t, err)
	assert.Equal(t, "Candlestick", gjson.GetBytes(b, "chart.series.0.type").String())
}

func newTerminal(t *testing.T, buf *bytes.Buffer) (*Terminal, string) {
	t.Helper()
	dir := t.TempDir()
	term, err := NewTerminal(buf, TerminalOptions{
		Style:      "notty",
		Width:      80,
		FiguresDir: dir,
		Now:        func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) },
	})
	require.NoError(t, err)
	return term, dir
}

func TestTerminalText(t *testing.T) {
	var buf bytes.Buffer
	term, _ := newTerminal(t, &buf)
	_, err := term.Display(Present(code, sandbox.Outcome{Kind: sandbox.Success, Result: 2.5, ShowCode: true, Output: "debug line\n"}))
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "df.Col")
	assert.Contains(t, out, "debug line")
	assert.Contains(t, out, "Answer: 2.5")
}

func TestTerminalChartWritesFile(t *testing.T) {
	var buf bytes.Buffer
	term, dir := newTerminal(t, &buf)
	fig := plot.NewFigure("close").Plot(table(), "close")
	path, err := term.Display(Present(code, sandbox.Outcome{Kind: sandbox.Success, Figure: fig, ShowCode: false}))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, dir))
	html, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(html), "echarts")
	assert.Contains(t, buf.String(), "Chart saved to")
}

func TestTerminalTurn(t *testing.T) {
	var buf bytes.Buffer
	term, _ := newTerminal(t, &buf)
	require.NoError(t, term.Turn("user", "hello"))
	require.NoError(t, term.Turn("assistant", "Answer: 1"))
	assert.Contains(t, buf.String(), "you")
	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "assistant")
}
