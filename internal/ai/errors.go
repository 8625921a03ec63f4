package ai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// AuthError indicates authentication/authorization failures (401/403).
type AuthError struct{ *APIError }

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.APIError.Error())
}

// RateLimitError indicates 429 responses and may include a Retry-After.
type RateLimitError struct {
	*APIError
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: wait about %ds before retrying: %s", int(e.RetryAfter.Seconds()), e.APIError.Error())
	}
	return fmt.Sprintf("rate limited: %s", e.APIError.Error())
}

// ModelNotFoundError indicates the requested model is not available.
type ModelNotFoundError struct{ *APIError }

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("model not found: %s", e.APIError.Error())
}

// BadRequestError indicates a 4xx request problem (e.g., 400 validation).
type BadRequestError struct{ *APIError }

func (e *BadRequestError) Error() string { return fmt.Sprintf("bad request: %s", e.APIError.Error()) }

// QuotaExceededError indicates billing/quota problems.
type QuotaExceededError struct{ *APIError }

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded: %s", e.APIError.Error())
}

// ServerError indicates 5xx errors from the provider.
type ServerError struct{ *APIError }

func (e *ServerError) Error() string { return fmt.Sprintf("provider error: %s", e.APIError.Error()) }

// UnreachableError indicates the target runtime is not reachable (e.g., local Ollama down).
type UnreachableError struct {
	Host string
	Err  error
}

func (e *UnreachableError) Error() string {
	if e == nil {
		return "unreachable"
	}
	if e.Host != "" {
		return fmt.Sprintf("endpoint unreachable at %s: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("endpoint unreachable: %v", e.Err)
}

// Hint turns a generation error into one line of advice for the user,
// or "" when there is nothing better to say than the error itself.
func Hint(provider, model string, err error) string {
	var (
		authErr *AuthError
		rlErr   *RateLimitError
		nfErr   *ModelNotFoundError
		brErr   *BadRequestError
		qErr    *QuotaExceededError
		sErr    *ServerError
		unreach *UnreachableError
	)
	switch {
	case errors.As(err, &unreach):
		if provider == ProviderOllama {
			return fmt.Sprintf("Ollama not reachable at %s. Ensure Ollama is running and the host is correct (CANDLECHAT_OLLAMA_HOST or config 'ollama_host').", unreach.Host)
		}
		return "Endpoint unreachable. Check your network and provider settings."
	case errors.As(err, &authErr):
		switch provider {
		case ProviderGemini, ProviderGoogle:
			return "Authentication failed: set GEMINI_API_KEY or 'gemini_api_key' in ~/.candlechat/config.yaml."
		case ProviderOllama:
			return "Authentication failed against the local runtime."
		}
		return "Authentication failed: set OPENROUTER_API_KEY or 'api_key' in ~/.candlechat/config.yaml."
	case errors.As(err, &rlErr):
		if rlErr.RetryAfter > 0 {
			return fmt.Sprintf("Rate limited, try again in ~%ds.", int(rlErr.RetryAfter.Seconds()))
		}
		return "Rate limited by provider, please retry."
	case errors.As(err, &nfErr):
		if provider == ProviderOllama {
			return fmt.Sprintf("Local model not available (%s). Install it with 'ollama pull %s' or choose another model.", model, model)
		}
		return fmt.Sprintf("Model not found (%s). Verify the name with 'candlechat models show'.", model)
	case errors.As(err, &brErr):
		return "Request rejected by the provider. Try a shorter question or fewer sample rows."
	case errors.As(err, &qErr):
		return "Quota or billing issue. Check your provider account."
	case errors.As(err, &sErr):
		return "Provider appears unavailable (server error). Please retry later."
	case errors.Is(err, context.DeadlineExceeded):
		return "The model took too long to answer. Raise 'generation_timeout_sec' or retry."
	}
	return ""
}
