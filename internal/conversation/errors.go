package conversation

import (
	"errors"
	"fmt"
)

// DemoMessage is the assistant reply when generation is disabled.
const DemoMessage = "🔒 Gemini chatbot is disabled in demo mode."

// GenerationFailurePrefix starts the assistant text when the model call fails.
const GenerationFailurePrefix = "⚠ Error generating code: "

var (
	// ErrBusy is returned while a session is processing a turn.
	ErrBusy = errors.New("conversation: a turn is already being processed")
	// ErrSessionNotFound is returned by Manager for unknown ids.
	ErrSessionNotFound = errors.New("conversation: session not found")
)

// GenerationError wraps a failed or timed out model call.
type GenerationError struct {
	Provider string
	Model    string
	Err      error
	// Hint is advice for the user, possibly empty.
	Hint string
}

func (e *GenerationError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("generate: %v", e.Err)
	}
	return fmt.Sprintf("generate with %s/%s: %v", e.Provider, e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Message is the user-facing text recorded as the assistant turn.
func (e *GenerationError) Message() string {
	msg := GenerationFailurePrefix + e.Err.Error()
	if e.Hint != "" {
		msg += "\n" + e.Hint
	}
	return msg
}
