package session

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Conversation roles recorded in a Transcript.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single utterance in a backend session's conversation.
type Turn struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Transcript is the ordered conversation history of one backend session.
// It lives exactly as long as the session that owns it and is safe for
// concurrent access.
//
// Contract:
//   - Append keeps insertion order and stamps turns lacking a timestamp
//   - Turns returns a defensive copy to avoid external mutation
type Transcript struct {
	instructions string
	turns        []Turn
	created      time.Time
	updated      time.Time
	mu           sync.RWMutex
}

// NewTranscript creates an empty transcript for a session opened with the
// given instructions.
func NewTranscript(instructions string) *Transcript {
	now := time.Now()
	return &Transcript{instructions: instructions, created: now, updated: now}
}

// Instructions returns the instructions the session was opened with.
func (t *Transcript) Instructions() string { return t.instructions }

// Append adds turns to the end of the history.
func (t *Transcript) Append(turns ...Turn) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	for _, turn := range turns {
		if turn.At.IsZero() {
			turn.At = now
		}
		t.turns = append(t.turns, turn)
	}
	t.updated = now
}

// Turns returns a copy of the recorded history.
func (t *Transcript) Turns() []Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()

	turns := make([]Turn, len(t.turns))
	copy(turns, t.turns)
	return turns
}

// Len returns the number of recorded turns.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}

// Created returns the time the transcript was opened.
func (t *Transcript) Created() time.Time { return t.created }

// Updated returns the time of the last append (or creation).
func (t *Transcript) Updated() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.updated
}

// Format renders turns as "role: text" lines for log output.
func Format(turns []Turn) string {
	var b strings.Builder
	for i, turn := range turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %s", turn.Role, turn.Text)
	}
	return b.String()
}

// Loggable defers Format until a log handler emits the record.
type Loggable []Turn

// LogValue implements slog.LogValuer.
func (v Loggable) LogValue() slog.Value { return slog.StringValue(Format(v)) }
