package sandbox

import (
	"fmt"

	"github.com/KaramelBytes/candlechat/internal/plot"
)

// Kind tags an Outcome.
type Kind int

const (
	Success Kind = iota
	Failure
)

func (k Kind) String() string {
	if k == Success {
		return "success"
	}
	return "failure"
}

// FailurePrefix starts every failure message.
const FailurePrefix = "⚠ Error executing code: "

// Outcome is the result of one execution. Result, Figure and ShowCode are
// meaningful for Success; Message for Failure. Output holds whatever the
// snippet printed in either case.
type Outcome struct {
	Kind     Kind
	Result   any
	Figure   *plot.Figure
	ShowCode bool
	Output   string
	Message  string
	Err      *ExecError
}

func failure(err *ExecError, output string) Outcome {
	return Outcome{Kind: Failure, ShowCode: true, Output: output, Message: FailurePrefix + err.Error(), Err: err}
}

// Stage names where an execution failed.
type Stage string

const (
	StageImport  Stage = "import"
	StageCompile Stage = "compile"
	StageRun     Stage = "run"
	StageTimeout Stage = "timeout"
)

// ExecError describes an execution fault.
type ExecError struct {
	Stage Stage
	Err   error
}

func (e *ExecError) Error() string {
	switch e.Stage {
	case StageTimeout:
		return fmt.Sprintf("timed out: %v", e.Err)
	case StageImport:
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }
