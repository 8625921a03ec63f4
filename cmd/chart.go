package cmd

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/candlechat/internal/chart"
	"github.com/KaramelBytes/candlechat/internal/utils"
)

var (
	chartFrom   string
	chartTo     string
	chartLimit  int
	chartOutput string
	chartJSON   bool
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Render the candlestick chart with direction markers and bands",
	Example: `  candlechat chart --output chart.html
  candlechat chart --from 2024-01-01 --to 2024-02-01 --limit -1
  candlechat chart --json > series.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := settings()
		if err != nil {
			return err
		}
		ds, err := loadDataset()
		if err != nil {
			return err
		}
		limit := chartLimit
		if !cmd.Flags().Changed("limit") {
			limit = c.ChartLimit
		}
		w, err := chart.ParseWindow(chartFrom, chartTo, limit)
		if err != nil {
			return err
		}
		ch := chart.FromDataset(ds, w)
		if chartJSON {
			return chart.WriteJSON(cmd.OutOrStdout(), ch)
		}

		var buf bytes.Buffer
		if err := chart.RenderHTML(&buf, ch); err != nil {
			return fmt.Errorf("render chart: %w", err)
		}
		if err := utils.SafeWriteFile(chartOutput, buf.Bytes()); err != nil {
			return err
		}
		candles := 0
		if len(ch.Series) > 0 {
			candles = ch.Series[0].Len()
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Chart with %d candles written to %s\n", candles, chartOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chartCmd)
	chartCmd.Flags().StringVar(&chartFrom, "from", "", "first timestamp to include")
	chartCmd.Flags().StringVar(&chartTo, "to", "", "timestamp to stop before (exclusive)")
	chartCmd.Flags().IntVar(&chartLimit, "limit", 0, "max candles; negative shows all (default from 'chart_limit')")
	chartCmd.Flags().StringVarP(&chartOutput, "output", "o", "chart.html", "HTML output path")
	chartCmd.Flags().BoolVar(&chartJSON, "json", false, "print the series payload as JSON instead of HTML")
}
