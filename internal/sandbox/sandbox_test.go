package sandbox

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/candlechat/internal/frame"
)

func baseFrame() *frame.Frame {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := make([]time.Time, 4)
	for i := range ts {
		ts[i] = t0.Add(time.Duration(i) * time.Hour)
	}
	return frame.MustNew(
		frame.NewTime("timestamp", ts),
		frame.NewFloat("open", []float64{1, 2, 3, 4}),
		frame.NewFloat("high", []float64{2, 3, 4, 5}),
		frame.NewFloat("low", []float64{0.5, 1.5, 2.5, 3.5}),
		frame.NewFloat("close", []float64{1, 2, 3, 4}),
		frame.NewFloat("direction", []float64{0, 1, 2, 0}),
	)
}

func run(t *testing.T, code string, opts ...Option) Outcome {
	t.Helper()
	return New(baseFrame(), opts...).Execute(context.Background(), code)
}

func requireSuccess(t *testing.T, out Outcome) {
	t.Helper()
	require.Equal(t, Success, out.Kind, "message: %s", out.Message)
}

func TestAverageClose(t *testing.T) {
	out := run(t, `result = df.Col("close").Mean()`)
	requireSuccess(t, out)
	assert.Equal(t, 2.5, out.Result)
	assert.Nil(t, out.Figure)
	assert.True(t, out.ShowCode)
}

func TestShortDeclarationWritesSlot(t *testing.T) {
	out := run(t, `result := np.Mean(df.Col("close").Floats())`)
	requireSuccess(t, out)
	assert.Equal(t, 2.5, out.Result)
}

func TestShadowedSlotIsCollected(t *testing.T) {
	out := run(t, "result, err := strconv.Atoi(\"42\")\n_ = err")
	requireSuccess(t, out)
	assert.Equal(t, 42, out.Result)
}

func TestErrorReturningCalls(t *testing.T) {
	cases := []struct {
		name string
		code string
		want any
	}{
		{"discarded error", "a, err := strconv.Atoi(\"4\")\n_ = err\nresult = a", 4},
		{"if err branch", "v, err := strconv.Atoi(\"7\")\nif err != nil {\n\tresult = \"bad\"\n} else {\n\tresult = v * 2\n}", 14},
		{"error reported", "_, err := strconv.ParseFloat(\"x\", 64)\nif err != nil {\n\tresult = \"not a number\"\n\treturn\n}\nresult = 0", "not a number"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := run(t, tc.code)
			requireSuccess(t, out)
			assert.Equal(t, tc.want, out.Result)
		})
	}
}

func TestRedeclaredResult(t *testing.T) {
	out := run(t, "var result = 5")
	requireSuccess(t, out)
	assert.Equal(t, 5, out.Result)
}

func TestTableResult(t *testing.T) {
	out := run(t, `result = df.Filter(df.Col("direction").Eq(0)).Select("timestamp", "close")`)
	requireSuccess(t, out)
	tbl, ok := out.Result.(*frame.Frame)
	require.True(t, ok, "got %T", out.Result)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, []string{"timestamp", "close"}, tbl.Columns())
}

func TestImportsAndOutput(t *testing.T) {
	code := "import (\n\t\"fmt\"\n\tm \"math\"\n)\n\nfmt.Println(\"rows\", df.Len())\nresult = m.Sqrt(16)"
	out := run(t, code)
	requireSuccess(t, out)
	assert.Equal(t, 4.0, out.Result)
	assert.Equal(t, "rows 4\n", out.Output)
}

func TestForbiddenImport(t *testing.T) {
	out := run(t, "import \"os\"\nresult = os.Getenv(\"HOME\")")
	require.Equal(t, Failure, out.Kind)
	require.NotNil(t, out.Err)
	assert.Equal(t, StageImport, out.Err.Stage)
	assert.True(t, strings.HasPrefix(out.Message, FailurePrefix))
	assert.Contains(t, out.Message, `"os"`)
}

func TestUnboundNames(t *testing.T) {
	for _, code := range []string{
		`result = os.Getenv("HOME")`,
		`result = exec.Command("ls")`,
		`result = ioutil.ReadFile("/etc/passwd")`,
		`time.Sleep(time.Second)`,
	} {
		out := run(t, code)
		assert.Equal(t, Failure, out.Kind, code)
		if assert.NotNil(t, out.Err, code) {
			assert.Equal(t, StageCompile, out.Err.Stage, code)
		}
	}
}

func TestGoStatementsRejected(t *testing.T) {
	out := run(t, "go func() { result = 1 }()")
	require.Equal(t, Failure, out.Kind)
	assert.ErrorIs(t, out.Err, errGoStmt)
}

func TestIsolationBetweenRuns(t *testing.T) {
	base := baseFrame()
	ex := New(base)
	first := ex.Execute(context.Background(), "df.Drop(\"close\")\nresult = len(df.Columns())")
	requireSuccess(t, first)
	assert.Equal(t, 5, first.Result)

	second := ex.Execute(context.Background(), `result = df.Col("close").Sum()`)
	requireSuccess(t, second)
	assert.Equal(t, 10.0, second.Result)
	assert.True(t, base.Has("close"))

	third := ex.Execute(context.Background(), "x := 1\nresult = x")
	requireSuccess(t, third)
	fourth := ex.Execute(context.Background(), "result = x")
	assert.Equal(t, Failure, fourth.Kind, "variables must not survive between runs")
}

func TestRuntimePanic(t *testing.T) {
	out := run(t, `result = df.Col("nope").Mean()`)
	require.Equal(t, Failure, out.Kind)
	require.NotNil(t, out.Err)
	assert.Equal(t, StageRun, out.Err.Stage)
	assert.Contains(t, out.Message, "nope")
}

func TestIndexOutOfRange(t *testing.T) {
	out := run(t, "xs := df.Col(\"close\").Floats()\nresult = xs[10]")
	assert.Equal(t, Failure, out.Kind)
}

func TestSyntaxError(t *testing.T) {
	out := run(t, "result = = 1")
	require.Equal(t, Failure, out.Kind)
	assert.Equal(t, StageCompile, out.Err.Stage)
}

func TestTimeout(t *testing.T) {
	start := time.Now()
	out := run(t, "n := 0\nfor {\n\tn++\n}", WithTimeout(200*time.Millisecond))
	require.Equal(t, Failure, out.Kind)
	assert.Equal(t, StageTimeout, out.Err.Stage)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestShowCodeSlot(t *testing.T) {
	out := run(t, "result = \"Hello! Ask me about the data.\"\nshow_code := false")
	requireSuccess(t, out)
	assert.False(t, out.ShowCode)
	assert.Equal(t, "Hello! Ask me about the data.", out.Result)
}

func TestFigureSlot(t *testing.T) {
	out := run(t, "fig := plt.NewFigure(\"close\").Plot(df, \"close\")\nresult = \"plotted\"")
	requireSuccess(t, out)
	require.NotNil(t, out.Figure)
	assert.Equal(t, "close", out.Figure.Title())
}

func TestBrokenFigureFails(t *testing.T) {
	out := run(t, `fig = plt.NewFigure("x").Plot(df, "volume")`)
	require.Equal(t, Failure, out.Kind)
	assert.Contains(t, out.Message, "volume")
}

func TestWrongSlotTypesAreIgnored(t *testing.T) {
	out := run(t, "var fig = 3\nvar show_code = \"no\"\nresult = 1")
	requireSuccess(t, out)
	assert.Nil(t, out.Figure)
	assert.True(t, out.ShowCode)
}

func TestEarlyReturnStillCollects(t *testing.T) {
	out := run(t, "result = 3\nif result != nil {\n\treturn\n}\nresult = 4")
	requireSuccess(t, out)
	assert.Equal(t, 3, out.Result)
}

func TestReturnFromNestedLoop(t *testing.T) {
	code := "for i := 0; i < df.Len(); i++ {\n\tif df.Col(\"close\").Float(i) > 2 {\n\t\tresult = i\n\t\treturn\n\t}\n}\nresult = -1"
	out := run(t, code)
	requireSuccess(t, out)
	assert.Equal(t, 2, out.Result)

	out = run(t, "if df.Len() > 2 {\n\tresult = \"big\"\n\treturn\n}\nresult = \"small\"")
	requireSuccess(t, out)
	assert.Equal(t, "big", out.Result)
}

func TestHostErrorsCannotBeRebound(t *testing.T) {
	ex := New(baseFrame())
	ex.Execute(context.Background(), "pd.ErrNoColumn = nil\nresult = 1")
	require.NotNil(t, frame.ErrNoColumn)

	_, err := baseFrame().Column("nope")
	assert.True(t, errors.Is(err, frame.ErrNoColumn))

	out := ex.Execute(context.Background(), `result = df.Col("nope").Mean()`)
	require.Equal(t, Failure, out.Kind)
	assert.Contains(t, out.Message, "no such column")
}

func TestFullProgram(t *testing.T) {
	code := `package main

import "math"

func spread(hi, lo float64) float64 { return math.Abs(hi - lo) }

func main() {
	result = spread(df.Col("high").Max(), df.Col("low").Min())
}`
	out := run(t, code)
	requireSuccess(t, out)
	assert.Equal(t, 4.5, out.Result)
}

func TestIndicatorsAvailable(t *testing.T) {
	out := run(t, "ma := np.SMA(df.Col(\"close\").Floats(), 2)\nresult = ma[3]")
	requireSuccess(t, out)
	assert.Equal(t, 3.5, out.Result)
}

func TestEmptyAndOversizedCode(t *testing.T) {
	out := run(t, "   ")
	assert.Equal(t, Failure, out.Kind)
	assert.Contains(t, out.Message, "no code")

	out = run(t, strings.Repeat("x", 100), WithMaxCodeBytes(10))
	assert.Equal(t, Failure, out.Kind)
	assert.Contains(t, out.Message, "limit")
}

func TestNilResultIsSuccess(t *testing.T) {
	out := run(t, `fmt.Println(df.Len())`)
	requireSuccess(t, out)
	assert.Nil(t, out.Result)
	assert.Equal(t, "4\n", out.Output)
}
