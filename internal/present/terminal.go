package present

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/KaramelBytes/candlechat/internal/utils"
)

// TerminalOptions configures a Terminal.
type TerminalOptions struct {
	// Style is a glamour style name ("dark", "light", "notty"); empty picks
	// one from the terminal.
	Style string
	Width int
	// FiguresDir receives chart HTML files.
	FiguresDir string
	Now        func() time.Time
}

// Terminal renders displays as styled text.
type Terminal struct {
	w          io.Writer
	md         *glamour.TermRenderer
	figuresDir string
	now        func() time.Time

	user      lipgloss.Style
	assistant lipgloss.Style
	success   lipgloss.Style
	failure   lipgloss.Style
	muted     lipgloss.Style
}

// NewTerminal builds a renderer writing to w.
func NewTerminal(w io.Writer, opts TerminalOptions) (*Terminal, error) {
	width := opts.Width
	if width <= 0 {
		width = 100
	}
	style := glamour.WithAutoStyle()
	if opts.Style != "" {
		style = glamour.WithStandardStyle(opts.Style)
	}
	md, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return nil, fmt.Errorf("markdown renderer: %w", err)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	dir := opts.FiguresDir
	if dir == "" {
		dir = "figures"
	}
	return &Terminal{
		w:          w,
		md:         md,
		figuresDir: dir,
		now:        now,
		user:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3b82f6")),
		assistant:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#26a69a")),
		success:    lipgloss.NewStyle().Foreground(lipgloss.Color("#26a69a")),
		failure:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ef5350")),
		muted:      lipgloss.NewStyle().Faint(true),
	}, nil
}

// Turn prints one history entry with its role label.
func (t *Terminal) Turn(role, content string) error {
	label := t.assistant.Render("assistant")
	if role == "user" {
		label = t.user.Render("you")
	}
	_, err := fmt.Fprintf(t.w, "%s: %s\n", label, content)
	return err
}

// Display renders d. For charts it writes an HTML file and returns its path.
func (t *Terminal) Display(d Display) (string, error) {
	if d.Code != "" {
		if err := t.markdown("```go\n" + d.Code + "\n```"); err != nil {
			return "", err
		}
	}
	if out := strings.TrimSpace(d.Output); out != "" {
		fmt.Fprintln(t.w, t.muted.Render("output:"))
		fmt.Fprintln(t.w, t.muted.Render(out))
	}
	switch d.Action {
	case ShowChart:
		path, err := t.writeFigure(d)
		if err != nil {
			return "", err
		}
		fmt.Fprintln(t.w, t.success.Render("📈 Chart saved to "+path))
		if d.Table != nil {
			if err := t.markdown(d.Table.String()); err != nil {
				return path, err
			}
		} else if d.Text != "" {
			fmt.Fprintln(t.w, t.success.Render(d.Text))
		}
		return path, nil
	case ShowTable:
		return "", t.markdown(d.Table.String())
	}
	if d.Failed {
		_, err := fmt.Fprintln(t.w, t.failure.Render(d.Text))
		return "", err
	}
	if d.Code == "" {
		// conversational replies are markdown
		return "", t.markdown(d.Text)
	}
	_, err := fmt.Fprintln(t.w, t.success.Render(d.Text))
	return "", err
}

func (t *Terminal) markdown(md string) error {
	out, err := t.md.Render(md)
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err = io.WriteString(t.w, out)
	return err
}

func (t *Terminal) writeFigure(d Display) (string, error) {
	var buf bytes.Buffer
	if err := d.Figure.RenderHTML(&buf); err != nil {
		return "", fmt.Errorf("render chart: %w", err)
	}
	path := utils.TimestampedPath(t.figuresDir, "figure", "html", t.now())
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}
