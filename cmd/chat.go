package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/candlechat/internal/conversation"
	"github.com/KaramelBytes/candlechat/internal/present"
)

var (
	chatFlags modelFlags
	chatStyle string
)

const chatHelp = `Ask anything about the dataset. Commands:
  /history  show the conversation so far
  /reset    clear the conversation
  /quit     leave`

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation about the dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := settings()
		if err != nil {
			return err
		}
		ds, err := loadDataset()
		if err != nil {
			return err
		}
		p, err := newPipeline(ds, c, chatFlags)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		term, err := present.NewTerminal(out, present.TerminalOptions{Style: chatStyle, FiguresDir: c.FiguresDir})
		if err != nil {
			return err
		}
		s := conversation.NewSession("chat", p)
		fmt.Fprintf(out, "📊 %s: %d candles loaded\n%s\n", ds.Name, ds.Len(), chatHelp)
		if c.DemoMode {
			fmt.Fprintln(out, conversation.DemoMessage)
		}
		return chatLoop(cmd.Context(), s, term, cmd.InOrStdin(), out)
	},
}

func chatLoop(ctx context.Context, s *conversation.Session, term *present.Terminal, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprintln(out, chatHelp)
			continue
		case "/reset":
			if err := s.Reset(); err != nil {
				return err
			}
			fmt.Fprintln(out, "✓ Conversation cleared")
			continue
		case "/history":
			turns := s.Turns()
			if len(turns) == 0 {
				fmt.Fprintln(out, "(no messages yet)")
			}
			for _, t := range turns {
				if err := term.Turn(t.Role.String(), t.Content); err != nil {
					return err
				}
			}
			continue
		}

		reply, err := s.Submit(ctx, line)
		if errors.Is(err, conversation.ErrBusy) {
			fmt.Fprintln(out, "⚠ Warning: still answering the previous question")
			continue
		}
		if err != nil {
			return err
		}
		if reply == nil {
			continue
		}
		if _, err := term.Display(reply.Display); err != nil {
			fmt.Fprintf(out, "⚠ Warning: %v\n", err)
		}
	}
}

func init() {
	rootCmd.AddCommand(chatCmd)
	addModelFlags(chatCmd, &chatFlags)
	chatCmd.Flags().StringVar(&chatStyle, "style", "", "markdown style (dark|light|notty); empty detects the terminal")
}
