package model

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/agentkit/core"
	"github.com/hupe1980/agentkit/session"
)

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "gemini", "mock", etc.
}

// Model is the inference backend a leaf agent wraps.
type Model interface {
	// CheckAvailability returns nil when the model can serve requests. The
	// error explains why it cannot; it is used for diagnostics only.
	CheckAvailability(ctx context.Context) error

	// OpenSession allocates exactly one stateful session configured with
	// the given instructions.
	OpenSession(ctx context.Context, instructions string) (Session, error)

	// Info returns information about the model implementation.
	Info() Info
}

// Session is a stateful handle to one backend inference context.
type Session interface {
	// Busy reports whether a generation is in flight.
	Busy() bool

	// Close releases the session. It is a no-op returning
	// core.ErrSessionBusy while a generation is in flight, and idempotent
	// otherwise.
	Close() error

	// Generate produces a single-turn response to prompt.
	Generate(ctx context.Context, prompt string, opts core.GenerationOptions) (string, error)

	// Transcript returns the conversation recorded so far.
	Transcript() []session.Turn
}

// MockModel is a lightweight in‑memory Model useful for tests & examples.
// Responses are looked up by prompt; unknown prompts are echoed as
// "Mock response to: <prompt>". A custom GenerateFunc replaces the lookup.
type MockModel struct {
	info        Info
	mu          sync.RWMutex
	responses   map[string]string
	unavailable error
	openErr     error
	generateFn  func(ctx context.Context, req TurnRequest) (string, error)
	opened      atomic.Int64
	generated   atomic.Int64
}

// NewMockModel constructs an available MockModel.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: "mock"},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// SetUnavailable makes CheckAvailability return err (nil restores availability).
func (m *MockModel) SetUnavailable(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable = err
}

// SetOpenError makes OpenSession fail with err (nil restores success).
func (m *MockModel) SetOpenError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErr = err
}

// SetGenerateFunc replaces the canned-response lookup.
func (m *MockModel) SetGenerateFunc(fn func(ctx context.Context, req TurnRequest) (string, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generateFn = fn
}

// OpenedSessions returns how many sessions were opened so far.
func (m *MockModel) OpenedSessions() int { return int(m.opened.Load()) }

// Generations returns how many generations completed or failed so far.
func (m *MockModel) Generations() int { return int(m.generated.Load()) }

// CheckAvailability implements Model.
func (m *MockModel) CheckAvailability(context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.unavailable
}

// OpenSession implements Model.
func (m *MockModel) OpenSession(_ context.Context, instructions string) (Session, error) {
	m.mu.RLock()
	err := m.openErr
	m.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	m.opened.Add(1)
	return NewChatSession(instructions, m.turn), nil
}

func (m *MockModel) turn(ctx context.Context, req TurnRequest) (string, error) {
	defer m.generated.Add(1)

	m.mu.RLock()
	fn := m.generateFn
	full, ok := m.responses[req.Prompt]
	m.mu.RUnlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !ok {
		full = fmt.Sprintf("Mock response to: %s", req.Prompt)
	}
	return full, nil
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
