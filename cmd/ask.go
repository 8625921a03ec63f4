package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/KaramelBytes/candlechat/internal/ai"
	cfgpkg "github.com/KaramelBytes/candlechat/internal/config"
	"github.com/KaramelBytes/candlechat/internal/conversation"
	"github.com/KaramelBytes/candlechat/internal/present"
	"github.com/KaramelBytes/candlechat/internal/utils"
)

var (
	askFlags       modelFlags
	askJSON        bool
	askPrintPrompt bool
	askStyle       string
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question about the dataset",
	Example: `  candlechat ask "what is the average close price"
  candlechat ask --provider ollama --model qwen2.5-coder:7b "plot the close price"
  candlechat ask --json "how many LONG signals are there"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Sticky flag values from an earlier invocation in the same process
		// must not leak into this one.
		provided := map[string]bool{}
		cmd.Flags().Visit(func(fl *pflag.Flag) { provided[fl.Name] = true })
		if !provided["temperature"] {
			askFlags.temperature = -1
		}

		question := strings.TrimSpace(strings.Join(args, " "))
		if question == "" {
			return fmt.Errorf("question is empty")
		}
		c, err := settings()
		if err != nil {
			return err
		}
		ds, err := loadDataset()
		if err != nil {
			return err
		}
		p, err := newPipeline(ds, c, askFlags)
		if err != nil {
			return err
		}
		s := conversation.NewSession("ask", p)
		reply, err := s.Submit(cmd.Context(), question)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if askPrintPrompt && reply.Prompt != "" {
			fmt.Fprintln(out, reply.Prompt)
			printUsage(out, c, askFlags, reply)
		}
		if askJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(reply.Display)
		}
		term, err := present.NewTerminal(out, present.TerminalOptions{Style: askStyle, FiguresDir: c.FiguresDir})
		if err != nil {
			return err
		}
		if _, err := term.Display(reply.Display); err != nil {
			return err
		}
		if reply.Display.Failed {
			return fmt.Errorf("question could not be answered")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	addModelFlags(askCmd, &askFlags)
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the display as JSON")
	askCmd.Flags().BoolVar(&askPrintPrompt, "print-prompt", false, "print the instruction sent to the model")
	askCmd.Flags().StringVar(&askStyle, "style", "", "markdown style (dark|light|notty); empty detects the terminal")
}

// printUsage reports estimated token counts and, for catalog models, cost.
func printUsage(w io.Writer, c *cfgpkg.Global, mf modelFlags, reply *conversation.Reply) {
	counts := utils.TokenBreakdown(map[string]string{"prompt": reply.Prompt, "reply": reply.Raw})
	fmt.Fprintf(w, "Tokens (est.): prompt=%d reply=%d\n", counts["prompt"], counts["reply"])
	provider := selectProvider(c, mf.provider)
	model := selectModel(c, provider, mf.model)
	if cost, ok := ai.EstimateCostUSD(model, counts["prompt"], counts["reply"]); ok {
		fmt.Fprintf(w, "Cost (est.): $%.6f with %s\n", cost, model)
	}
}

func addModelFlags(cmd *cobra.Command, mf *modelFlags) {
	cmd.Flags().StringVar(&mf.provider, "provider", "", "generation provider (gemini|openrouter|ollama)")
	cmd.Flags().StringVar(&mf.model, "model", "", "model name (overrides config)")
	cmd.Flags().IntVar(&mf.maxTokens, "max-tokens", 0, "max tokens for the reply (overrides config)")
	cmd.Flags().Float64Var(&mf.temperature, "temperature", -1, "sampling temperature (overrides config)")
	cmd.Flags().IntVar(&mf.promptLimit, "prompt-limit", 0, "truncate the instruction to this many tokens (0 = no limit)")
	cmd.Flags().BoolVar(&mf.stream, "stream", false, "echo the model reply to stderr as it arrives")
}
