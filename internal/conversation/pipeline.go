package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/KaramelBytes/candlechat/internal/ai"
	"github.com/KaramelBytes/candlechat/internal/frame"
	"github.com/KaramelBytes/candlechat/internal/present"
	"github.com/KaramelBytes/candlechat/internal/prompt"
	"github.com/KaramelBytes/candlechat/internal/sandbox"
	"github.com/KaramelBytes/candlechat/internal/snippet"
	"github.com/KaramelBytes/candlechat/internal/utils"
)

// DefaultGenerateTimeout bounds the model call when Pipeline.GenerateTimeout is zero.
const DefaultGenerateTimeout = 60 * time.Second

// Generator turns instruction text into free model text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Executor runs one snippet. *sandbox.Executor implements it.
type Executor interface {
	Execute(ctx context.Context, code string) sandbox.Outcome
}

// Report describes one finished turn.
type Report struct {
	Session string
	Action  present.Action
	Failed  bool
	Demo    bool
	// Stage is "generate" for model failures, the sandbox stage for
	// execution failures, and empty on success.
	Stage      string
	Generation time.Duration
	Execution  time.Duration
}

// Observer receives a Report after every assistant turn.
type Observer interface {
	TurnCompleted(Report)
}

// Pipeline runs prompt, generation, extraction, execution and presentation
// for one question. It is safe for concurrent use by many sessions.
type Pipeline struct {
	Generator Generator
	Executor  Executor
	// Columns and Sample describe the dataset to the model.
	Columns         []string
	Sample          *frame.Frame
	GenerateTimeout time.Duration
	// MaxPromptTokens truncates the instruction text when positive.
	MaxPromptTokens int
	Demo            bool
	Observer        Observer
	Logger          *zap.Logger
}

// Reply is everything one turn produced.
type Reply struct {
	Prompt  string
	Raw     string
	Code    string
	Outcome sandbox.Outcome
	Display present.Display
	// Err is the *GenerationError when the model call failed.
	Err    error
	Report Report
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

// Run answers question. It always returns a reply; failures are carried in
// the display.
func (p *Pipeline) Run(ctx context.Context, session, question string) *Reply {
	r := p.run(ctx, question)
	r.Report.Session = session
	r.Report.Action = r.Display.Action
	r.Report.Failed = r.Display.Failed

	p.logger().Info("turn completed",
		zap.String("session", session),
		zap.Stringer("action", r.Display.Action),
		zap.Bool("failed", r.Display.Failed),
		zap.Bool("demo", r.Report.Demo),
		zap.String("stage", r.Report.Stage),
		zap.Duration("generation", r.Report.Generation),
		zap.Duration("execution", r.Report.Execution),
	)
	if p.Observer != nil {
		p.Observer.TurnCompleted(r.Report)
	}
	return r
}

func (p *Pipeline) run(ctx context.Context, question string) *Reply {
	if p.Demo {
		return &Reply{
			Display: present.Display{Action: present.ShowText, Text: DemoMessage},
			Report:  Report{Demo: true},
		}
	}

	r := &Reply{}
	r.Prompt = prompt.Build(prompt.Input{Question: question, Columns: p.Columns, Sample: p.Sample})
	if p.MaxPromptTokens > 0 && utils.CountTokens(r.Prompt) > p.MaxPromptTokens {
		r.Prompt = utils.TruncateToTokenLimit(r.Prompt, p.MaxPromptTokens, "\n…")
	}

	timeout := p.GenerateTimeout
	if timeout <= 0 {
		timeout = DefaultGenerateTimeout
	}
	gctx, cancel := context.WithTimeout(ctx, timeout)
	start := time.Now()
	raw, err := p.Generator.Generate(gctx, r.Prompt)
	cancel()
	r.Report.Generation = time.Since(start)
	if err != nil {
		var gerr *GenerationError
		if !errors.As(err, &gerr) {
			gerr = &GenerationError{Err: err, Hint: ai.Hint("", "", err)}
		}
		p.logger().Warn("generation failed", zap.Error(err))
		r.Err = gerr
		r.Outcome = sandbox.Outcome{Kind: sandbox.Failure, Message: gerr.Message(), ShowCode: true}
		r.Display = present.Present("", r.Outcome)
		r.Report.Stage = "generate"
		return r
	}

	r.Raw = raw
	r.Code = snippet.Extract(raw)
	start = time.Now()
	r.Outcome = p.Executor.Execute(ctx, r.Code)
	r.Report.Execution = time.Since(start)
	if r.Outcome.Err != nil {
		r.Report.Stage = string(r.Outcome.Err.Stage)
	}
	r.Display = present.Present(r.Code, r.Outcome)
	return r
}

// RuntimeGenerator adapts an ai.Runtime to Generator.
type RuntimeGenerator struct {
	Runtime     ai.Runtime
	Provider    string
	Model       string
	MaxTokens   int
	Temperature float64
	// OnDelta, when set and the runtime can stream, receives the reply as it
	// arrives.
	OnDelta func(string)
}

func (g *RuntimeGenerator) Generate(ctx context.Context, promptText string) (string, error) {
	req := ai.GenerateRequest{
		Model:       g.Model,
		Messages:    []ai.Message{{Role: "user", Content: promptText}},
		MaxTokens:   g.MaxTokens,
		Temperature: g.Temperature,
	}
	text, err := g.generate(ctx, req)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("no content returned from model")
	}
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, ctx.Err()) {
			err = fmt.Errorf("%w: %v", ctx.Err(), err)
		}
		return "", &GenerationError{
			Provider: g.Provider,
			Model:    g.Model,
			Err:      err,
			Hint:     ai.Hint(g.Provider, g.Model, err),
		}
	}
	return text, nil
}

func (g *RuntimeGenerator) generate(ctx context.Context, req ai.GenerateRequest) (string, error) {
	if sr, ok := g.Runtime.(ai.StreamRuntime); ok && g.OnDelta != nil {
		var sb strings.Builder
		err := sr.GenerateStream(ctx, req, func(d string) {
			sb.WriteString(d)
			g.OnDelta(d)
		})
		return sb.String(), err
	}
	resp, err := g.Runtime.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
