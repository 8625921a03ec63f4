package frame

import "strings"

// Table is a frame rendered to text cells, ready for display.
type Table struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// Table renders every cell of the frame.
func (f *Frame) Table() Table {
	t := Table{Header: f.Columns(), Rows: make([][]string, f.rows)}
	for i := 0; i < f.rows; i++ {
		row := make([]string, len(f.names))
		for j, n := range f.names {
			row[j] = f.cols[n].format(i)
		}
		t.Rows[i] = row
	}
	return t
}

// Markdown renders the table as a GitHub-style pipe table.
func (t Table) Markdown() string {
	var b strings.Builder
	if len(t.Header) == 0 {
		return ""
	}
	b.WriteString("| ")
	for i, h := range t.Header {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(safeVal(h))
	}
	b.WriteString(" |\n|")
	for range t.Header {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range t.Rows {
		b.WriteString("| ")
		for i := range t.Header {
			if i > 0 {
				b.WriteString(" | ")
			}
			val := ""
			if i < len(row) {
				val = row[i]
			}
			if len(val) > 80 {
				val = val[:77] + "..."
			}
			b.WriteString(safeVal(val))
		}
		b.WriteString(" |\n")
	}
	return b.String()
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
