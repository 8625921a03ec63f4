package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/candlechat/internal/ai"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect the model catalog and pick a model",
	Example: `  candlechat models show
  candlechat models show --provider ollama
  candlechat models sync --file ./models.json --merge
  candlechat models recommend --provider openrouter --tier cheap`,
}

var modelsShowProvider string

var modelsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current model catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		models := ai.SortedModels()
		if modelsShowProvider != "" {
			preset, ok := ai.PresetCatalog(strings.ToLower(modelsShowProvider))
			if !ok {
				return fmt.Errorf("unknown --provider: %s (known: %s)", modelsShowProvider, strings.Join(ai.Providers(), ", "))
			}
			filtered := models[:0]
			for _, m := range models {
				if _, ok := preset[m.Name]; ok {
					filtered = append(filtered, m)
				}
			}
			models = filtered
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(models)
	},
}

var (
	syncPath  string
	syncMerge bool
)

var modelsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Load model catalog/pricing from a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if syncPath == "" {
			return fmt.Errorf("--file is required")
		}
		m, err := ai.LoadCatalogFromJSON(syncPath)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		if syncMerge {
			ai.MergeCatalog(m)
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Merged %d models from file\n", len(m))
		} else {
			ai.OverrideCatalog(m)
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Replaced model catalog with %d models from file\n", len(m))
		}
		return nil
	},
}

var (
	recommendProvider string
	recommendTier     string
)

var modelsRecommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend a model for a provider and tier (cheap|balanced|high-context)",
	RunE: func(cmd *cobra.Command, args []string) error {
		provider := strings.ToLower(recommendProvider)
		if provider == "" && cfg != nil {
			provider = cfg.DefaultProvider
		}
		name, ok := ai.RecommendModel(provider, recommendTier)
		if !ok {
			return fmt.Errorf("no recommendation for provider %q and tier %q (use cheap|balanced|high-context)", provider, recommendTier)
		}
		fmt.Fprintln(cmd.OutOrStdout(), name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsShowCmd)
	modelsCmd.AddCommand(modelsSyncCmd)
	modelsCmd.AddCommand(modelsRecommendCmd)

	modelsShowCmd.Flags().StringVar(&modelsShowProvider, "provider", "", "only show models of this provider preset")

	modelsSyncCmd.Flags().StringVar(&syncPath, "file", "", "path to JSON catalog file")
	modelsSyncCmd.Flags().BoolVar(&syncMerge, "merge", false, "merge into existing catalog instead of replacing")

	modelsRecommendCmd.Flags().StringVar(&recommendProvider, "provider", "", "provider (defaults to 'default_provider')")
	modelsRecommendCmd.Flags().StringVar(&recommendTier, "tier", "balanced", "cheap|balanced|high-context")
}
