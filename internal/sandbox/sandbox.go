// Package sandbox runs generated Go snippets in a yaegi interpreter that can
// reach only a few standard packages and the data helpers.
//
// This is best-effort isolation inside the host process, not a security
// boundary: there are no OS-level limits on memory or CPU.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/traefik/yaegi/interp"
	"go.uber.org/zap"

	"github.com/KaramelBytes/candlechat/internal/frame"
	"github.com/KaramelBytes/candlechat/internal/plot"
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultMaxCodeBytes = 64 << 10
)

// Executor runs snippets against private copies of one frame.
type Executor struct {
	base     *frame.Frame
	timeout  time.Duration
	maxBytes int
	logger   *zap.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithTimeout bounds each execution. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithMaxCodeBytes rejects larger snippets before they are parsed.
func WithMaxCodeBytes(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxBytes = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// New returns an executor over base. base is never modified; each run gets
// its own deep copy.
func New(base *frame.Frame, opts ...Option) *Executor {
	e := &Executor{base: base, timeout: DefaultTimeout, maxBytes: DefaultMaxCodeBytes, logger: zap.NewNop()}
	for _, o := range opts {
		o(e)
	}
	if e.base == nil {
		e.base = frame.MustNew()
	}
	return e
}

// Timeout reports the per-execution limit.
func (e *Executor) Timeout() time.Duration { return e.timeout }

// Execute runs code and reports the outcome. It never panics and never
// returns an error; every fault is a Failure outcome.
func (e *Executor) Execute(ctx context.Context, code string) (out Outcome) {
	start := time.Now()
	var output syncBuffer
	defer func() {
		if r := recover(); r != nil {
			out = failure(&ExecError{Stage: StageRun, Err: fmt.Errorf("panic: %v", r)}, output.String())
		}
		fields := []zap.Field{zap.String("kind", out.Kind.String()), zap.Duration("duration", time.Since(start))}
		if out.Err != nil {
			fields = append(fields, zap.String("stage", string(out.Err.Stage)), zap.Error(out.Err.Err))
		}
		e.logger.Debug("snippet executed", fields...)
	}()

	code = strings.TrimSpace(code)
	if code == "" {
		return failure(&ExecError{Stage: StageCompile, Err: errors.New("no code to run")}, "")
	}
	if len(code) > e.maxBytes {
		return failure(&ExecError{Stage: StageCompile, Err: fmt.Errorf("snippet is %d bytes, limit is %d", len(code), e.maxBytes)}, "")
	}
	prog, xerr := parseProgram(code)
	if xerr != nil {
		return failure(xerr, "")
	}
	var forbidden []string
	for _, spec := range prog.imports {
		if !allowedImport(spec.Path) {
			forbidden = append(forbidden, fmt.Sprintf("%q", spec.Path))
		}
	}
	if len(forbidden) > 0 {
		return failure(&ExecError{Stage: StageImport, Err: fmt.Errorf("forbidden import %s", strings.Join(forbidden, ", "))}, "")
	}
	if xerr := checkStatements(prog); xerr != nil {
		return failure(xerr, "")
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var sl slots
	i := interp.New(interp.Options{
		Stdout:               &output,
		Stderr:               &output,
		Stdin:                strings.NewReader(""),
		SourcecodeFilesystem: emptyFS{},
	})
	if err := i.Use(allowedStdlib()); err != nil {
		return failure(&ExecError{Stage: StageCompile, Err: err}, "")
	}
	if err := i.Use(helperSymbols(e.base.Copy(), &sl)); err != nil {
		return failure(&ExecError{Stage: StageCompile, Err: err}, "")
	}

	steps := []string{preamble(), usage}
	for _, spec := range prog.imports {
		if preimported(spec) {
			continue
		}
		steps = append(steps, fmt.Sprintf("import %s %q", spec.Name, spec.Path))
	}
	if strings.TrimSpace(prog.decls) != "" {
		steps = append(steps, prog.decls)
	}
	// The body runs inside a function so := and return behave as in Go. The
	// trailing collect sees slots the body shadowed.
	steps = append(steps,
		"func "+snippetFunc+"() {\n"+normalizeSlots(prog.body)+"\n"+collectCall+"\n}",
		snippetFunc+"()",
	)
	for _, src := range steps {
		if xerr := eval(ctx, i, src); xerr != nil {
			return failure(xerr, output.String())
		}
	}
	if !sl.collected {
		// the body returned early; read the package-level slots
		if xerr := eval(ctx, i, collectCall); xerr != nil {
			return failure(xerr, output.String())
		}
	}
	return e.outcome(&sl, output.String())
}

func eval(ctx context.Context, i *interp.Interpreter, src string) *ExecError {
	_, err := i.EvalWithContext(ctx, src)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return &ExecError{Stage: StageTimeout, Err: err}
	}
	var p interp.Panic
	if errors.As(err, &p) {
		return &ExecError{Stage: StageRun, Err: fmt.Errorf("panic: %v", p.Value)}
	}
	var pp *interp.Panic
	if errors.As(err, &pp) {
		return &ExecError{Stage: StageRun, Err: fmt.Errorf("panic: %v", pp.Value)}
	}
	return &ExecError{Stage: StageCompile, Err: err}
}

// outcome validates the collected slots.
func (e *Executor) outcome(sl *slots, output string) Outcome {
	out := Outcome{Kind: Success, Result: sl.result, ShowCode: true, Output: output}
	if b, ok := sl.show.(bool); ok {
		out.ShowCode = b
	}
	switch f := sl.fig.(type) {
	case nil:
	case *plot.Figure:
		if f != nil {
			if err := f.Err(); err != nil {
				return failure(&ExecError{Stage: StageRun, Err: err}, output)
			}
			out.Figure = f
		}
	default:
		e.logger.Warn("ignoring fig of unexpected type", zap.String("type", fmt.Sprintf("%T", f)))
	}
	if fr, ok := out.Result.(*frame.Frame); ok && fr == nil {
		out.Result = nil
	}
	return out
}

// syncBuffer collects interpreter output; goroutines inside the interpreter
// may write concurrently with the host reading it.
type syncBuffer struct {
	mu sync.Mutex
	b  strings.Builder
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}
