package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/candlechat/internal/frame"
	"github.com/KaramelBytes/candlechat/internal/prompt"
	"github.com/KaramelBytes/candlechat/internal/utils"
)

var (
	inspectSample int
	inspectJSON   bool
	inspectPrompt string
)

// inspectReport is the --json form of the dataset summary.
type inspectReport struct {
	Name       string         `json:"name"`
	Rows       int            `json:"rows"`
	From       string         `json:"from,omitempty"`
	To         string         `json:"to,omitempty"`
	Columns    []string       `json:"columns"`
	Directions map[string]int `json:"directions"`
	Filled     map[string]int `json:"filled"`
	Duplicates int            `json:"duplicates_dropped"`
	Sample     *frame.Table   `json:"sample,omitempty"`
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show the prepared dataset: schema, range, direction counts and a sample",
	Example: `  candlechat inspect --data ./data.csv
  candlechat inspect --sample 10 --json
  candlechat inspect --prompt "what is the average close price"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := loadDataset()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if inspectPrompt != "" {
			// show the instruction without calling a model
			f := ds.Frame()
			fmt.Fprintln(out, prompt.Build(prompt.Input{
				Question: inspectPrompt,
				Columns:  f.Columns(),
				Sample:   prompt.SampleFrame(f, inspectSample),
			}))
			return nil
		}

		s := ds.Summary(inspectSample)
		if !inspectJSON {
			fmt.Fprint(out, s.Markdown())
			return nil
		}
		rep := inspectReport{
			Name:       s.Name,
			Rows:       s.Rows,
			Columns:    s.Columns,
			Directions: map[string]int{},
			Filled: map[string]int{
				"support":    s.Stats.FilledSupport,
				"resistance": s.Stats.FilledResistance,
				"direction":  s.Stats.DefaultDirections,
			},
			Duplicates: s.Stats.Duplicates,
		}
		if s.Rows > 0 {
			rep.From, rep.To = frame.FormatTime(s.From), frame.FormatTime(s.To)
		}
		for d, n := range s.Directions {
			rep.Directions[d.String()] = n
		}
		if inspectSample > 0 {
			t := prompt.SampleFrame(ds.Frame(), inspectSample).Table()
			rep.Sample = &t
		}
		b, err := utils.PrettyJSON(rep)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(b))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().IntVar(&inspectSample, "sample", 5, "number of sample rows to show (0 disables)")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "print the summary as JSON")
	inspectCmd.Flags().StringVar(&inspectPrompt, "prompt", "", "print the model instruction for this question instead")
}
