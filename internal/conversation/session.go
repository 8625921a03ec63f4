package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/KaramelBytes/candlechat/internal/present"
	"github.com/KaramelBytes/candlechat/internal/sandbox"
)

// Session is one conversation. Only one turn is processed at a time; the
// pipeline runs outside the lock so Turns and State stay readable.
type Session struct {
	id       string
	pipeline *Pipeline
	now      func() time.Time
	created  time.Time

	mu    sync.Mutex
	state State
	log   []Turn
}

// NewSession returns an empty session using p for every turn.
func NewSession(id string, p *Pipeline) *Session {
	return &Session{id: id, pipeline: p, now: time.Now, created: time.Now()}
}

func (s *Session) ID() string           { return s.id }
func (s *Session) CreatedAt() time.Time { return s.created }

// State reports the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Turns returns a copy of the log in order.
func (s *Session) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Turn(nil), s.log...)
}

// Submit processes one question. Blank text is ignored and returns nil, nil.
// A second Submit while one is running returns ErrBusy. Otherwise exactly one
// user turn and one assistant turn are appended.
func (s *Session) Submit(ctx context.Context, text string) (*Reply, error) {
	question := strings.TrimSpace(text)
	if question == "" {
		return nil, nil
	}
	s.mu.Lock()
	if s.state == Processing {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.log = append(s.log, Turn{Role: User, Content: text, At: s.now()})
	s.state = Processing
	s.mu.Unlock()

	reply := s.run(ctx, question)

	s.mu.Lock()
	s.log = append(s.log, Turn{Role: Assistant, Content: reply.Display.Summary(), At: s.now()})
	s.state = AwaitingInput
	s.mu.Unlock()
	return reply, nil
}

// run never panics; an unexpected fault becomes a failure reply so the
// assistant turn is still recorded.
func (s *Session) run(ctx context.Context, question string) (reply *Reply) {
	defer func() {
		if r := recover(); r != nil {
			out := sandbox.Outcome{Kind: sandbox.Failure, Message: fmt.Sprintf("⚠ Internal error: %v", r), ShowCode: true}
			reply = &Reply{Outcome: out, Display: present.Present("", out)}
		}
	}()
	return s.pipeline.Run(ctx, s.id, question)
}

// Reset clears the log. It fails with ErrBusy while a turn is processing.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Processing {
		return ErrBusy
	}
	s.log = nil
	s.state = Empty
	return nil
}
