package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	cfgpkg "github.com/KaramelBytes/candlechat/internal/config"
	"github.com/KaramelBytes/candlechat/internal/dataset"
)

var (
	// Global flags
	cfgFile  string
	debug    bool
	dataPath string
	demo     bool
	// Retry/HTTP flags (override config if set)
	flagHTTPTimeoutSec   int
	flagRetryMaxAttempts int
	flagRetryBaseDelayMs int
	flagRetryMaxDelayMs  int

	// Loaded configuration
	cfg *cfgpkg.Global
	log = zap.NewNop()

	// datasets memoizes prepared data for the life of the process.
	datasets dataset.Cache
)

var rootCmd = &cobra.Command{
	Use:   "candlechat",
	Short: "candlechat: ask questions about a candlestick dataset in plain language",
	Long: `candlechat turns free-text questions about a candlestick dataset into short Go
snippets with a language model, runs them in a restricted interpreter against a
private copy of the data and shows the answer as text, a table or a chart.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		_ = log.Sync()
		os.Exit(1)
	}
	_ = log.Sync()
}

func init() {
	cobra.OnInitialize(loadConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.candlechat/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dataPath, "data", "", "dataset file (CSV, TSV or JSON; overrides config)")
	rootCmd.PersistentFlags().BoolVar(&demo, "demo", false, "demo mode: never call the language model")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxAttempts, "retry-max", 0, "max retry attempts on 429/5xx (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryBaseDelayMs, "retry-base-ms", 0, "base retry backoff in ms (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxDelayMs, "retry-max-ms", 0, "max retry backoff cap in ms (overrides config)")
}

func loadConfig() {
	l, err := newLogger(debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to build logger: %v\n", err)
	} else {
		log = l
	}

	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c
	applyFlagOverrides(rootCmd, cfg)
}

// applyFlagOverrides copies explicitly set global flags onto c.
func applyFlagOverrides(cmd *cobra.Command, c *cfgpkg.Global) {
	f := cmd.PersistentFlags()
	if f.Changed("data") && dataPath != "" {
		c.DatasetPath = dataPath
	}
	if f.Changed("demo") {
		c.DemoMode = demo
	}
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		c.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("retry-max") && flagRetryMaxAttempts > 0 {
		c.RetryMaxAttempts = flagRetryMaxAttempts
	}
	if f.Changed("retry-base-ms") && flagRetryBaseDelayMs > 0 {
		c.RetryBaseDelayMs = flagRetryBaseDelayMs
	}
	if f.Changed("retry-max-ms") && flagRetryMaxDelayMs > 0 {
		c.RetryMaxDelayMs = flagRetryMaxDelayMs
	}
}

// newLogger writes JSON to stderr at warn level, or human-readable debug
// output with --debug.
func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}

// settings returns the loaded config, loading it on demand.
func settings() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	applyFlagOverrides(rootCmd, c)
	cfg = c
	return cfg, nil
}

// loadDataset returns the prepared dataset named by --data or the config. A
// malformed file is fatal for the calling command.
func loadDataset() (*dataset.Dataset, error) {
	c, err := settings()
	if err != nil {
		return nil, err
	}
	if c.DatasetPath == "" {
		return nil, fmt.Errorf("no dataset: pass --data or set 'dataset_path'")
	}
	ds, err := datasets.Get(c.DatasetPath)
	if err != nil {
		return nil, fmt.Errorf("load dataset %s: %w", c.DatasetPath, err)
	}
	log.Debug("dataset ready", zap.String("path", c.DatasetPath), zap.Int("rows", ds.Len()))
	return ds, nil
}
