package dataset

import (
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/candlechat/internal/frame"
)

// Summary describes a prepared dataset for humans.
type Summary struct {
	Name       string
	Rows       int
	From, To   time.Time
	Columns    []string
	Directions map[Direction]int
	Stats      Stats
	Sample     frame.Table
}

// Summary computes the overview shown by the inspect command.
func (d *Dataset) Summary(sampleRows int) Summary {
	s := Summary{Name: d.Name, Rows: len(d.Rows), Directions: map[Direction]int{}, Stats: d.Stats}
	f := d.Frame()
	s.Columns = f.Columns()
	for i, r := range d.Rows {
		if i == 0 || r.Timestamp.Before(s.From) {
			s.From = r.Timestamp
		}
		if i == 0 || r.Timestamp.After(s.To) {
			s.To = r.Timestamp
		}
		s.Directions[r.Direction]++
	}
	if sampleRows > 0 {
		sample := f.Head(sampleRows)
		sample.Drop("support", "resistance")
		s.Sample = sample.Table()
	}
	return s
}

// Markdown renders the summary in the same section style as prompts.
func (s Summary) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if s.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", s.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", s.Rows))
	if s.Rows > 0 {
		b.WriteString(fmt.Sprintf("Range: %s → %s\n", frame.FormatTime(s.From), frame.FormatTime(s.To)))
	}
	b.WriteString(fmt.Sprintf("Columns: %s\n\n", strings.Join(s.Columns, ", ")))

	b.WriteString("[DIRECTION]\n")
	for _, d := range []Direction{Long, Short, Neutral} {
		b.WriteString(fmt.Sprintf("- %s (%d): %d\n", d, int(d), s.Directions[d]))
	}

	b.WriteString("\n[PREPARATION]\n")
	b.WriteString(fmt.Sprintf("- duplicate timestamps dropped: %d\n", s.Stats.Duplicates))
	b.WriteString(fmt.Sprintf("- missing directions set to NEUTRAL: %d\n", s.Stats.DefaultDirections))
	b.WriteString(fmt.Sprintf("- support sets filled: %d\n", s.Stats.FilledSupport))
	b.WriteString(fmt.Sprintf("- resistance sets filled: %d\n", s.Stats.FilledResistance))

	if len(s.Sample.Rows) > 0 {
		b.WriteString("\n[SAMPLE]\n")
		b.WriteString(s.Sample.Markdown())
	}
	return b.String()
}
