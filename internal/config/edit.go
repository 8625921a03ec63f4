package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/candlechat/internal/ai"
)

// Set validates value and assigns it to key.
func (c *Global) Set(key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)
	switch key {
	case "api_key":
		c.APIKey = value
	case "gemini_api_key":
		c.GeminiAPIKey = value
	case "default_provider":
		p := strings.ToLower(value)
		if !knownProvider(p) {
			return fmt.Errorf("unknown provider %q (known: %s)", value, strings.Join(ai.Providers(), ", "))
		}
		c.DefaultProvider = p
	case "default_model":
		if value == "" {
			return fmt.Errorf("default_model cannot be empty")
		}
		c.DefaultModel = value
	case "temperature":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 || f > 2 {
			return fmt.Errorf("temperature must be a number between 0 and 2")
		}
		c.Temperature = f
	case "demo_mode":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("demo_mode must be true or false")
		}
		c.DemoMode = b
	case "dataset_path":
		c.DatasetPath = value
	case "figures_dir":
		c.FiguresDir = value
	case "ollama_host":
		if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
			return fmt.Errorf("ollama_host must start with http:// or https://")
		}
		c.OllamaHost = value
	case "listen_addr":
		if !strings.Contains(value, ":") {
			return fmt.Errorf("listen_addr must be host:port")
		}
		c.ListenAddr = value
	default:
		dst := c.intField(key)
		if dst == nil {
			return fmt.Errorf("unknown key %q", key)
		}
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%s must be a non-negative integer", key)
		}
		*dst = n
	}
	return nil
}

func (c *Global) intField(key string) *int {
	switch key {
	case "max_tokens":
		return &c.MaxTokens
	case "sample_rows":
		return &c.SampleRows
	case "chart_limit":
		return &c.ChartLimit
	case "generation_timeout_sec":
		return &c.GenerationTimeoutSec
	case "exec_timeout_sec":
		return &c.ExecTimeoutSec
	case "http_timeout_sec":
		return &c.HTTPTimeoutSec
	case "retry_max_attempts":
		return &c.RetryMaxAttempts
	case "retry_base_delay_ms":
		return &c.RetryBaseDelayMs
	case "retry_max_delay_ms":
		return &c.RetryMaxDelayMs
	case "ollama_timeout_sec":
		return &c.OllamaTimeoutSec
	}
	return nil
}

func knownProvider(p string) bool {
	for _, k := range ai.Providers() {
		if k == p {
			return true
		}
	}
	return false
}

// Masked returns a copy with API keys shortened for display.
func (c Global) Masked() Global {
	c.APIKey = Mask(c.APIKey)
	c.GeminiAPIKey = Mask(c.GeminiAPIKey)
	return c
}

// Mask keeps the last four characters of a secret.
func Mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
