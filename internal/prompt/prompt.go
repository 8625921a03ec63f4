// Package prompt assembles the instruction text sent to the code generator.
package prompt

import (
	"strings"

	"github.com/KaramelBytes/candlechat/internal/frame"
)

// DefaultSampleRows is how many rows of the dataset the prompt shows.
const DefaultSampleRows = 3

// AllowedImports lists the standard packages a snippet may import.
var AllowedImports = []string{"fmt", "math", "sort", "strconv", "strings", "time"}

// Input is everything the builder needs.
type Input struct {
	Question string
	Columns  []string
	Sample   *frame.Frame
}

const helperReference = `Helpers are already imported; do not import them again:
- df is a *pd.Frame. Frame methods: Len, Columns, Has, Col(name) *pd.Series, Head(n), Tail(n), Slice(i, j), Filter(mask []bool), Select(names...), SortBy(name, ascending), Between(from, to time.Time), Set(name, series), Drop(names...), Copy, Row(i), Describe, GroupMean(key, value).
- *pd.Series methods: Name, Len, Floats, Times, Strings, At(i), Float(i), Mean, Sum, Min, Max, Std, Median, Count, First, Last, ArgMax, ArgMin, Gt/Ge/Lt/Le/Eq/Ne(x float64) []bool, Is(text) []bool, Diff, PctChange, Shift(n), RollingMean(n), Add/Sub/Mul/Div(other), Apply(func(float64) float64), ValueCounts.
- pd.NewFloat(name, []float64), pd.NewText(name, []string) build new columns.
- np functions on []float64: Mean, Sum, Min, Max, Std, Median, Percentile(xs, p), Corr(a, b), CumSum, Diff, PctChange, Round(x, places), NaN(), IsNaN(x), SMA(xs, n), EMA(xs, n), RSI(xs, n), MACD(xs, fast, slow, signal), ATR(high, low, close, n), BBands(xs, n, devs).
- plt.NewFigure(title) returns a *plt.Figure with chainable Plot(df, column), Line(name, times, values), Candles(df), Marker(t, position, color, shape, text), Size(width, height).`

// Build returns the instruction text for one question. The same input always
// yields the same text.
func Build(in Input) string {
	var sb strings.Builder
	sb.WriteString("[INSTRUCTIONS]\n")
	sb.WriteString("You are a Go assistant who writes Go code to answer questions about a table named `df`.\n")
	sb.WriteString("The table columns are: ")
	sb.WriteString(strings.Join(in.Columns, ", "))
	sb.WriteString(".\n")
	sb.WriteString("The 'direction' column is encoded as: LONG = 0 (Bullish), SHORT = 1 (Bearish), NEUTRAL = 2.\n")
	sb.WriteString("The 'timestamp' column holds times; 'time' holds the same instants as unix seconds.\n\n")

	sb.WriteString("[HELPERS]\n")
	sb.WriteString(helperReference)
	sb.WriteString("\nYou may import only: ")
	sb.WriteString(strings.Join(AllowedImports, ", "))
	sb.WriteString(".\n\n")

	sb.WriteString("[QUESTION]\n")
	sb.WriteString("The user question is: \"")
	sb.WriteString(in.Question)
	sb.WriteString("\"\n\n")

	sb.WriteString("[TASK]\n")
	sb.WriteString("Return only a Go code snippet in a ```go fence (no header or explanation). ")
	sb.WriteString("Write statements, not a package or func main. Assign your answer to the variable `result`. ")
	sb.WriteString("If you want to plot, assign a *plt.Figure to `fig`. ")
	sb.WriteString("If the question is conversational and needs no code, assign the reply text to `result` and set `show_code = false`.\n")
	sb.WriteString("`result`, `fig` and `show_code` are already declared; assign them with `=`. ")
	sb.WriteString("When a call returns an error, check it with `if err != nil`, put a short message in `result` and `return`.\n")

	if in.Sample != nil && in.Sample.Len() > 0 {
		sb.WriteString("\n[SAMPLE]\n")
		sb.WriteString("Here's a sample of the data:\n")
		sb.WriteString(in.Sample.Table().Markdown())
	}
	return sb.String()
}

// SampleFrame returns the first n rows of f without the set-valued columns.
func SampleFrame(f *frame.Frame, n int) *frame.Frame {
	if n <= 0 {
		n = DefaultSampleRows
	}
	s := f.Head(n)
	var drop []string
	for _, name := range s.Columns() {
		if s.Col(name).Kind() == frame.Levels {
			drop = append(drop, name)
		}
	}
	s.Drop(drop...)
	return s
}
