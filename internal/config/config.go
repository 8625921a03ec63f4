// Package config loads and saves the candlechat settings file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix prefixes every environment override, e.g. CANDLECHAT_DEMO_MODE.
	EnvPrefix = "CANDLECHAT"
	dirName   = ".candlechat"
	fileName  = "config.yaml"
)

// Global configuration structure.
type Global struct {
	APIKey          string  `mapstructure:"api_key" yaml:"api_key"`
	GeminiAPIKey    string  `mapstructure:"gemini_api_key" yaml:"gemini_api_key"`
	DefaultProvider string  `mapstructure:"default_provider" yaml:"default_provider"`
	DefaultModel    string  `mapstructure:"default_model" yaml:"default_model"`
	MaxTokens       int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature" yaml:"temperature"`
	DemoMode        bool    `mapstructure:"demo_mode" yaml:"demo_mode"`

	// Dataset and output
	DatasetPath string `mapstructure:"dataset_path" yaml:"dataset_path"`
	SampleRows  int    `mapstructure:"sample_rows" yaml:"sample_rows"`
	ChartLimit  int    `mapstructure:"chart_limit" yaml:"chart_limit"`
	FiguresDir  string `mapstructure:"figures_dir" yaml:"figures_dir"`

	// Turn time limits
	GenerationTimeoutSec int `mapstructure:"generation_timeout_sec" yaml:"generation_timeout_sec"`
	ExecTimeoutSec       int `mapstructure:"exec_timeout_sec" yaml:"exec_timeout_sec"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Local runtimes (Ollama)
	OllamaHost       string `mapstructure:"ollama_host" yaml:"ollama_host"`
	OllamaTimeoutSec int    `mapstructure:"ollama_timeout_sec" yaml:"ollama_timeout_sec"`

	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
}

// Keys lists every settable key in file order.
var Keys = []string{
	"api_key", "gemini_api_key", "default_provider", "default_model", "max_tokens",
	"temperature", "demo_mode", "dataset_path", "sample_rows", "chart_limit",
	"figures_dir", "generation_timeout_sec", "exec_timeout_sec", "http_timeout_sec",
	"retry_max_attempts", "retry_base_delay_ms", "retry_max_delay_ms",
	"ollama_host", "ollama_timeout_sec", "listen_addr",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("default_provider", "gemini")
	v.SetDefault("default_model", "gemini-2.0-flash")
	v.SetDefault("max_tokens", 2048)
	v.SetDefault("temperature", 0.2)
	v.SetDefault("demo_mode", false)
	v.SetDefault("dataset_path", "data.csv")
	v.SetDefault("sample_rows", 5)
	v.SetDefault("chart_limit", 500)
	v.SetDefault("figures_dir", "figures")
	v.SetDefault("generation_timeout_sec", 60)
	v.SetDefault("exec_timeout_sec", 10)
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	// Ollama defaults
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("ollama_timeout_sec", 60)
	v.SetDefault("listen_addr", "127.0.0.1:8080")
	// AutomaticEnv only sees keys viper already knows about.
	v.SetDefault("api_key", "")
	v.SetDefault("gemini_api_key", "")
}

// DefaultPath is ~/.candlechat/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, dirName, fileName), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.candlechat/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	// the file may hold API keys
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. Flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		// a missing explicit file is created by the first "config set"
		if _, err := os.Stat(cfgFile); err == nil {
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
			}
		}
	} else {
		path, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(filepath.Dir(path))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.resolveCredentials()
	return &c, nil
}

// resolveCredentials falls back to the provider's conventional variables.
func (c *Global) resolveCredentials() {
	if c.GeminiAPIKey == "" {
		c.GeminiAPIKey = firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY")
	}
	if c.APIKey == "" {
		c.APIKey = firstEnv("OPENROUTER_API_KEY")
	}
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(os.Getenv(n)); v != "" {
			return v
		}
	}
	return ""
}

func (c *Global) GenerationTimeout() time.Duration {
	return seconds(c.GenerationTimeoutSec)
}

func (c *Global) ExecTimeout() time.Duration { return seconds(c.ExecTimeoutSec) }

func (c *Global) HTTPTimeout() time.Duration { return seconds(c.HTTPTimeoutSec) }

func (c *Global) OllamaTimeout() time.Duration { return seconds(c.OllamaTimeoutSec) }

func (c *Global) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelayMs) * time.Millisecond
}

func (c *Global) RetryMaxDelay() time.Duration {
	return time.Duration(c.RetryMaxDelayMs) * time.Millisecond
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
