package sandbox

import (
	"io/fs"
	"reflect"
	"sort"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/KaramelBytes/candlechat/internal/frame"
	"github.com/KaramelBytes/candlechat/internal/numeric"
	"github.com/KaramelBytes/candlechat/internal/plot"
	"github.com/KaramelBytes/candlechat/internal/prompt"
)

// Import paths of the helper packages inside the interpreter.
const (
	framePath   = "candlechat/frame"
	numericPath = "candlechat/numeric"
	plotPath    = "candlechat/plot"
	runtimePath = "candlechat/runtime"
)

// deniedSymbols are removed from otherwise allowed packages because they
// start timers that call back into interpreted code.
var deniedSymbols = map[string][]string{
	"time": {"AfterFunc", "After", "NewTicker", "NewTimer", "Tick", "Sleep"},
}

// allowedStdlib copies the allowed packages out of the yaegi stdlib table.
func allowedStdlib() interp.Exports {
	out := interp.Exports{}
	for _, p := range prompt.AllowedImports {
		key := p + "/" + p[strings.LastIndex(p, "/")+1:]
		syms, ok := stdlib.Symbols[key]
		if !ok {
			continue
		}
		cp := make(map[string]reflect.Value, len(syms))
		for name, v := range syms {
			cp[name] = v
		}
		for _, name := range deniedSymbols[p] {
			delete(cp, name)
		}
		out[key] = cp
	}
	return out
}

var frameSymbols = map[string]reflect.Value{
	"Frame":       reflect.ValueOf((*frame.Frame)(nil)),
	"Series":      reflect.ValueOf((*frame.Series)(nil)),
	"Table":       reflect.ValueOf((*frame.Table)(nil)),
	"Kind":        reflect.ValueOf((*frame.Kind)(nil)),
	"Float":       reflect.ValueOf(frame.Float),
	"Time":        reflect.ValueOf(frame.Time),
	"Text":        reflect.ValueOf(frame.Text),
	"Levels":      reflect.ValueOf(frame.Levels),
	"IndexColumn": reflect.ValueOf(frame.IndexColumn),
	// errors are bound by value so snippets cannot rebind the host vars
	"ErrNoColumn": reflect.ValueOf(frame.ErrNoColumn),
	"ErrLength":   reflect.ValueOf(frame.ErrLength),
	"New":         reflect.ValueOf(frame.New),
	"MustNew":     reflect.ValueOf(frame.MustNew),
	"NewFloat":    reflect.ValueOf(frame.NewFloat),
	"NewTime":     reflect.ValueOf(frame.NewTime),
	"NewText":     reflect.ValueOf(frame.NewText),
	"NewLevels":   reflect.ValueOf(frame.NewLevels),
	"Numeric":     reflect.ValueOf(frame.Numeric),
	"FormatFloat": reflect.ValueOf(frame.FormatFloat),
	"FormatTime":  reflect.ValueOf(frame.FormatTime),
}

var numericSymbols = map[string]reflect.Value{
	"NaN":        reflect.ValueOf(numeric.NaN),
	"IsNaN":      reflect.ValueOf(numeric.IsNaN),
	"Count":      reflect.ValueOf(numeric.Count),
	"Sum":        reflect.ValueOf(numeric.Sum),
	"Mean":       reflect.ValueOf(numeric.Mean),
	"Min":        reflect.ValueOf(numeric.Min),
	"Max":        reflect.ValueOf(numeric.Max),
	"Std":        reflect.ValueOf(numeric.Std),
	"Median":     reflect.ValueOf(numeric.Median),
	"Percentile": reflect.ValueOf(numeric.Percentile),
	"Corr":       reflect.ValueOf(numeric.Corr),
	"CumSum":     reflect.ValueOf(numeric.CumSum),
	"Diff":       reflect.ValueOf(numeric.Diff),
	"PctChange":  reflect.ValueOf(numeric.PctChange),
	"Round":      reflect.ValueOf(numeric.Round),
	"SMA":        reflect.ValueOf(numeric.SMA),
	"EMA":        reflect.ValueOf(numeric.EMA),
	"RSI":        reflect.ValueOf(numeric.RSI),
	"MACD":       reflect.ValueOf(numeric.MACD),
	"ATR":        reflect.ValueOf(numeric.ATR),
	"BBands":     reflect.ValueOf(numeric.BBands),
}

var plotSymbols = map[string]reflect.Value{
	"Figure":    reflect.ValueOf((*plot.Figure)(nil)),
	"NewFigure": reflect.ValueOf(plot.NewFigure),
}

// slots receives the well-known variables at the end of a run.
type slots struct {
	collected bool
	result    any
	fig       any
	show      any
}

// helperSymbols binds the helper packages for one execution. Input hands the
// snippet its private frame; Collect carries the slots back to the host.
func helperSymbols(df *frame.Frame, s *slots) interp.Exports {
	rt := map[string]reflect.Value{
		"Input": reflect.ValueOf(func() *frame.Frame { return df }),
		"Collect": reflect.ValueOf(func(result, fig, show any) {
			if s.collected {
				return
			}
			s.collected = true
			s.result, s.fig, s.show = result, fig, show
		}),
	}
	return interp.Exports{
		framePath + "/frame":     frameSymbols,
		numericPath + "/numeric": numericSymbols,
		plotPath + "/plot":       plotSymbols,
		runtimePath + "/runtime": rt,
	}
}

// preamble imports every allowed package and declares the snippet globals.
func preamble() string {
	var b strings.Builder
	b.WriteString("import (\n")
	for _, p := range prompt.AllowedImports {
		b.WriteString("\t\"" + p + "\"\n")
	}
	b.WriteString("\tpd \"" + framePath + "\"\n")
	b.WriteString("\tnp \"" + numericPath + "\"\n")
	b.WriteString("\tplt \"" + plotPath + "\"\n")
	b.WriteString("\t_rt \"" + runtimePath + "\"\n")
	b.WriteString(")\n\n")
	b.WriteString("var (\n")
	b.WriteString("\tdf               = _rt.Input()\n")
	b.WriteString("\tresult    interface{}\n")
	b.WriteString("\tfig       *plt.Figure\n")
	b.WriteString("\tshow_code = true\n")
	b.WriteString(")\n")
	return b.String()
}

// usage keeps the predeclared imports referenced.
const usage = `var (
	_ = fmt.Sprint
	_ = math.Abs
	_ = sort.Float64s
	_ = strconv.Itoa
	_ = strings.TrimSpace
	_ = time.Unix
	_ = np.Mean
	_ = pd.NewFloat
	_ = plt.NewFigure
)`

const (
	snippetFunc = "_snippet"
	collectCall = "_rt.Collect(result, fig, show_code)"
)

// preimported reports whether spec names a package the preamble already
// imports under its default name.
func preimported(spec importSpec) bool {
	for _, p := range prompt.AllowedImports {
		if spec.Path == p && (spec.Name == "" || spec.Name == p) {
			return true
		}
	}
	return false
}

func allowedImport(path string) bool {
	i := sort.SearchStrings(sortedAllowed, path)
	return i < len(sortedAllowed) && sortedAllowed[i] == path
}

var sortedAllowed = func() []string {
	out := append([]string(nil), prompt.AllowedImports...)
	sort.Strings(out)
	return out
}()

// emptyFS backs the interpreter's source loader so no package can be read
// from disk.
type emptyFS struct{}

func (emptyFS) Open(name string) (fs.File, error) {
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}
