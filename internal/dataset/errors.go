package dataset

import "fmt"

// ParseError reports malformed source data. Row is the 1-based data row;
// 0 means the header (a schema mismatch).
type ParseError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("dataset schema: column %q: %v", e.Column, e.Err)
	}
	return fmt.Sprintf("dataset row %d: column %q: value %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
