package cmd

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/KaramelBytes/candlechat/internal/ai"
	cfgpkg "github.com/KaramelBytes/candlechat/internal/config"
	"github.com/KaramelBytes/candlechat/internal/conversation"
	"github.com/KaramelBytes/candlechat/internal/dataset"
	"github.com/KaramelBytes/candlechat/internal/prompt"
	"github.com/KaramelBytes/candlechat/internal/sandbox"
)

// modelFlags are shared by the commands that talk to a model.
type modelFlags struct {
	provider    string
	model       string
	maxTokens   int
	temperature float64
	promptLimit int
	stream      bool
}

// newRuntime builds the generation backend. Tests replace it.
var newRuntime = func(provider string, c *cfgpkg.Global) (ai.Runtime, error) {
	rt, ok := ai.GetRuntime(provider, ai.RuntimeConfig{
		HTTPTimeout:  c.HTTPTimeout(),
		RetryMax:     c.RetryMaxAttempts,
		BaseDelay:    c.RetryBaseDelay(),
		MaxDelay:     c.RetryMaxDelay(),
		APIKey:       c.APIKey,
		GeminiAPIKey: c.GeminiAPIKey,
		Host:         c.OllamaHost,
	})
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (known: %s)", provider, strings.Join(ai.Providers(), ", "))
	}
	return rt, nil
}

// selectProvider applies flag > config > gemini.
func selectProvider(c *cfgpkg.Global, flag string) string {
	if p := strings.ToLower(strings.TrimSpace(flag)); p != "" {
		return p
	}
	if c != nil && c.DefaultProvider != "" {
		return strings.ToLower(c.DefaultProvider)
	}
	return ai.ProviderGemini
}

// selectModel applies flag > config, but falls back to the provider's
// balanced pick when the configured model belongs to another provider.
func selectModel(c *cfgpkg.Global, provider, flag string) string {
	if m := strings.TrimSpace(flag); m != "" {
		return m
	}
	preset, hasPreset := ai.PresetCatalog(provider)
	if c != nil && c.DefaultModel != "" {
		if !hasPreset {
			return c.DefaultModel
		}
		if _, ok := preset[c.DefaultModel]; ok {
			return c.DefaultModel
		}
	}
	if name, ok := ai.RecommendModel(provider, "balanced"); ok {
		return name
	}
	if c != nil {
		return c.DefaultModel
	}
	return ""
}

// newPipeline wires dataset, model and sandbox for one process. In demo
// mode no runtime is created at all.
func newPipeline(ds *dataset.Dataset, c *cfgpkg.Global, mf modelFlags) (*conversation.Pipeline, error) {
	f := ds.Frame()
	p := &conversation.Pipeline{
		Columns:         f.Columns(),
		Sample:          prompt.SampleFrame(f, c.SampleRows),
		GenerateTimeout: c.GenerationTimeout(),
		MaxPromptTokens: mf.promptLimit,
		Demo:            c.DemoMode,
		Logger:          log,
	}
	if c.DemoMode {
		log.Debug("demo mode: generation disabled")
		return p, nil
	}

	provider := selectProvider(c, mf.provider)
	model := selectModel(c, provider, mf.model)
	rt, err := newRuntime(provider, c)
	if err != nil {
		return nil, err
	}
	maxTokens := c.MaxTokens
	if mf.maxTokens > 0 {
		maxTokens = mf.maxTokens
	}
	temp := c.Temperature
	if mf.temperature >= 0 {
		temp = mf.temperature
	}
	gen := &conversation.RuntimeGenerator{
		Runtime:     rt,
		Provider:    provider,
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: temp,
	}
	if mf.stream {
		gen.OnDelta = func(d string) { fmt.Fprint(os.Stderr, d) }
	}
	p.Generator = gen
	p.Executor = sandbox.New(f,
		sandbox.WithTimeout(c.ExecTimeout()),
		sandbox.WithLogger(log.Named("sandbox")),
	)
	log.Debug("pipeline ready",
		zap.String("provider", provider),
		zap.String("model", model),
		zap.Int("sample_rows", p.Sample.Len()),
	)
	return p, nil
}
