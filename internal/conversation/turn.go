// Package conversation owns the per-session turn log and the state machine
// that turns a question into exactly one assistant reply.
package conversation

import (
	"fmt"
	"time"
)

// Role says who authored a turn.
type Role int

const (
	User Role = iota
	Assistant
)

func (r Role) String() string {
	if r == Assistant {
		return "assistant"
	}
	return "user"
}

func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Role) UnmarshalText(b []byte) error {
	switch string(b) {
	case "user":
		*r = User
	case "assistant":
		*r = Assistant
	default:
		return fmt.Errorf("unknown role %q", b)
	}
	return nil
}

// Turn is one entry of the log. Turns are never modified once appended.
type Turn struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// State is where a session is in its cycle.
type State int

const (
	Empty State = iota
	AwaitingInput
	Processing
)

func (s State) String() string {
	switch s {
	case AwaitingInput:
		return "awaiting_input"
	case Processing:
		return "processing"
	default:
		return "empty"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
