// Package present turns an execution outcome into the single thing the user
// sees for a turn.
package present

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/candlechat/internal/chart"
	"github.com/KaramelBytes/candlechat/internal/frame"
	"github.com/KaramelBytes/candlechat/internal/plot"
	"github.com/KaramelBytes/candlechat/internal/sandbox"
)

// Action is the one display a turn produces.
type Action int

const (
	ShowText Action = iota
	ShowTable
	ShowChart
)

func (a Action) String() string {
	switch a {
	case ShowTable:
		return "table"
	case ShowChart:
		return "chart"
	default:
		return "text"
	}
}

// Display is what a renderer draws. Code is empty when the snippet asked
// not to be shown.
type Display struct {
	Action Action
	Code   string
	// Text is the answer for ShowText, and a caption for the other actions
	// when the snippet also set a result.
	Text   string
	Table  *frame.Frame
	Figure *plot.Figure
	Output string
	Failed bool
}

// Present picks the display for out: a figure wins over a table, a table
// over text. Failures are text and always echo the code.
func Present(code string, out sandbox.Outcome) Display {
	d := Display{Output: out.Output}
	if out.Kind == sandbox.Failure {
		d.Action, d.Text, d.Code, d.Failed = ShowText, out.Message, code, true
		return d
	}
	if out.ShowCode {
		d.Code = code
	}
	tbl, isTable := out.Result.(*frame.Frame)
	switch {
	case out.Figure != nil:
		d.Action, d.Figure = ShowChart, out.Figure
		if isTable {
			d.Table = tbl
		} else if out.Result != nil {
			d.Text = Answer(out.Result)
		}
	case isTable:
		d.Action, d.Table = ShowTable, tbl
	case !out.ShowCode:
		// conversational reply
		d.Action, d.Text = ShowText, Format(out.Result)
	default:
		d.Action, d.Text = ShowText, Answer(out.Result)
	}
	return d
}

// Summary is the text recorded as the assistant turn.
func (d Display) Summary() string {
	switch d.Action {
	case ShowChart:
		s := "📈 Chart: " + d.Figure.Title()
		if d.Text != "" {
			s += "\n" + d.Text
		}
		return s
	case ShowTable:
		return d.Table.String()
	}
	return d.Text
}

// Answer formats a result the way analytical replies are shown.
func Answer(v any) string { return "Answer: " + Format(v) }

// Format renders a snippet result as text.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return "<nil>"
	case string:
		return x
	case float64:
		return formatFloat(x)
	case float32:
		return formatFloat(float64(x))
	case time.Time:
		return frame.FormatTime(x)
	case *frame.Series:
		return x.String()
	case *frame.Frame:
		return x.String()
	case error:
		return x.Error()
	case []float64:
		parts := make([]string, len(x))
		for i, f := range x {
			parts[i] = formatFloat(f)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]int:
		return formatMap(x, strconv.Itoa)
	case map[string]float64:
		return formatMap(x, formatFloat)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatMap[V any](m map[string]V, f func(V) string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + ": " + f(m[k])
	}
	return strings.Join(lines, "\n")
}

type displayJSON struct {
	Action string       `json:"action"`
	Code   string       `json:"code,omitempty"`
	Text   string       `json:"text,omitempty"`
	Table  *frame.Table `json:"table,omitempty"`
	Chart  *chart.Chart `json:"chart,omitempty"`
	Output string       `json:"output,omitempty"`
	Failed bool         `json:"failed"`
}

// MarshalJSON is the HTTP form: table rows and chart series inline.
func (d Display) MarshalJSON() ([]byte, error) {
	out := displayJSON{Action: d.Action.String(), Code: d.Code, Text: d.Text, Output: d.Output, Failed: d.Failed}
	if d.Table != nil {
		t := d.Table.Table()
		out.Table = &t
	}
	if d.Figure != nil {
		out.Chart = d.Figure.Chart()
	}
	return json.Marshal(out)
}
