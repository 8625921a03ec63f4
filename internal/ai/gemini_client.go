package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiClient generates through the Gemini API. The SDK client is created on
// first use so a missing key surfaces as an AuthError from Generate.
type GeminiClient struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	retry   retryPolicy

	once   sync.Once
	client *genai.Client
	err    error
}

// NewGeminiClient returns a runtime for apiKey. baseURL overrides the API host
// and is empty in production.
func NewGeminiClient(apiKey, baseURL string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration) *GeminiClient {
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}
	return &GeminiClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		timeout: httpTimeout,
		retry:   newRetryPolicy(retryMax, baseDelay, maxDelay, 3, 500*time.Millisecond, 4*time.Second),
	}
}

func (c *GeminiClient) sdk(ctx context.Context) (*genai.Client, error) {
	c.once.Do(func() {
		if c.apiKey == "" {
			c.err = &AuthError{APIError: &APIError{StatusCode: http.StatusUnauthorized, Message: "GEMINI_API_KEY is missing"}}
			return
		}
		cfg := &genai.ClientConfig{
			APIKey:     c.apiKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: &http.Client{Timeout: c.timeout},
		}
		if c.baseURL != "" {
			cfg.HTTPOptions = genai.HTTPOptions{BaseURL: strings.TrimRight(c.baseURL, "/") + "/"}
		}
		c.client, c.err = genai.NewClient(ctx, cfg)
		if c.err != nil {
			c.err = fmt.Errorf("create gemini client: %w", c.err)
		}
	})
	return c.client, c.err
}

// geminiContents splits system messages into the system instruction; the
// assistant role is called "model" by the API.
func geminiContents(msgs []Message) (*genai.Content, []*genai.Content) {
	var system []string
	var contents []*genai.Content
	for _, m := range msgs {
		switch m.Role {
		case "system":
			system = append(system, m.Content)
		case "assistant", genai.RoleModel:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(system) == 0 {
		return nil, contents
	}
	return genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser), contents
}

func (c *GeminiClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	// OpenRouter style names are accepted for convenience.
	model = strings.TrimPrefix(model, "google/")
	system, contents := geminiContents(req.Messages)
	if len(contents) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	client, err := c.sdk(ctx)
	if err != nil {
		return nil, err
	}
	cfg := &genai.GenerateContentConfig{SystemInstruction: system}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	backoff := c.retry.base
	var lastErr error
	for attempt := 1; attempt <= c.retry.max; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, err := client.Models.GenerateContent(ctx, model, contents, cfg)
		if err == nil {
			return geminiResponse(resp), nil
		}
		lastErr = c.classify(err)
		if !retryableGemini(lastErr) || attempt == c.retry.max {
			return nil, lastErr
		}
		wait := c.retry.capped(withJitter(backoff))
		var rl *RateLimitError
		if errors.As(lastErr, &rl) && rl.RetryAfter > 0 {
			wait = rl.RetryAfter
		}
		if err := sleepCtx(ctx, wait); err != nil {
			return nil, err
		}
		backoff *= 2
	}
	return nil, lastErr
}

func geminiResponse(resp *genai.GenerateContentResponse) *GenerateResponse {
	out := &GenerateResponse{
		Choices: []Choice{{Message: Message{Role: "assistant", Content: resp.Text()}}},
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out
}

func retryableGemini(err error) bool {
	var (
		rl *RateLimitError
		se *ServerError
	)
	return errors.As(err, &rl) || errors.As(err, &se)
}

// classify maps SDK errors onto the package's typed errors.
func (c *GeminiClient) classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *APIError
	var v genai.APIError
	var p *genai.APIError
	switch {
	case errors.As(err, &v):
		apiErr = &APIError{StatusCode: v.Code, Code: v.Status, Message: v.Message}
	case errors.As(err, &p) && p != nil:
		apiErr = &APIError{StatusCode: p.Code, Code: p.Status, Message: p.Message}
	default:
		var uerr *url.Error
		var operr *net.OpError
		if errors.As(err, &uerr) || errors.As(err, &operr) {
			host := c.baseURL
			if host == "" {
				host = "generativelanguage.googleapis.com"
			}
			return &UnreachableError{Host: host, Err: err}
		}
		return fmt.Errorf("gemini: %w", err)
	}
	return classifyAPIError(apiErr, nil)
}
