package model

import (
	"context"
	"sync"

	"github.com/hupe1980/agentkit/core"
	"github.com/hupe1980/agentkit/session"
)

// TurnRequest is everything a stateless chat API needs to produce the next
// assistant turn of a session.
type TurnRequest struct {
	Instructions string
	History      []session.Turn
	Prompt       string
	Options      core.GenerationOptions
}

// TurnFunc performs one request/response exchange with a provider.
type TurnFunc func(ctx context.Context, req TurnRequest) (string, error)

// ChatSession implements Session on top of a stateless chat API. It keeps
// the transcript, replays it on every turn and tracks the busy/closed state.
// One generation runs at a time; a concurrent Generate fails with
// core.ErrSessionBusy.
type ChatSession struct {
	transcript *session.Transcript
	turn       TurnFunc

	mu     sync.Mutex
	busy   bool
	closed bool
}

// NewChatSession creates an open session that delegates turns to fn.
func NewChatSession(instructions string, fn TurnFunc) *ChatSession {
	return &ChatSession{transcript: session.NewTranscript(instructions), turn: fn}
}

// Busy implements Session.
func (s *ChatSession) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Closed reports whether Close has succeeded.
func (s *ChatSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close implements Session.
func (s *ChatSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return core.ErrSessionBusy
	}
	s.closed = true
	return nil
}

// Generate implements Session.
func (s *ChatSession) Generate(ctx context.Context, prompt string, opts core.GenerationOptions) (string, error) {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return "", core.ErrSessionClosed
	case s.busy:
		s.mu.Unlock()
		return "", core.ErrSessionBusy
	}
	s.busy = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	out, err := s.turn(ctx, TurnRequest{
		Instructions: s.transcript.Instructions(),
		History:      s.transcript.Turns(),
		Prompt:       prompt,
		Options:      opts,
	})
	if err != nil {
		return "", err
	}

	s.transcript.Append(
		session.Turn{Role: session.RoleUser, Text: prompt},
		session.Turn{Role: session.RoleAssistant, Text: out},
	)

	return out, nil
}

// Transcript implements Session.
func (s *ChatSession) Transcript() []session.Turn { return s.transcript.Turns() }
