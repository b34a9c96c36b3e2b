package agent

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/hupe1980/agentkit/core"
	"github.com/hupe1980/agentkit/metrics"
)

// MockAgent for testing composite agents
type MockAgent struct {
	mock.Mock
	name string
}

func NewMockAgent(name string) *MockAgent {
	return &MockAgent{name: name}
}

func (m *MockAgent) Name() string { return m.name }

func (m *MockAgent) Description() string { return "mock " + m.name }

func (m *MockAgent) IsRunning() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockAgent) IsAvailable(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *MockAgent) CreateSession(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockAgent) CloseSession() { m.Called() }

func (m *MockAgent) SessionCount() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockAgent) Ask(ctx context.Context, input string, opts core.GenerationOptions) ([]string, error) {
	args := m.Called(ctx, input, opts)
	out, _ := args.Get(0).([]string)
	return out, args.Error(1)
}

// stubAgent is a function-backed leaf with call instrumentation.
type stubAgent struct {
	name string
	fn   func(ctx context.Context, input string) ([]string, error)

	mu     sync.Mutex
	inputs []string

	calls       atomic.Int32
	closeCalls  atomic.Int32
	sessions    atomic.Int32
	neverIdle   bool
	unavailable bool
	running     atomic.Int32
}

func newStub(name string, fn func(ctx context.Context, input string) ([]string, error)) *stubAgent {
	return &stubAgent{name: name, fn: fn}
}

// constStub always returns out.
func constStub(name string, out ...string) *stubAgent {
	return newStub(name, func(context.Context, string) ([]string, error) { return out, nil })
}

// echoStub returns its input prefixed with prefix.
func echoStub(name, prefix string) *stubAgent {
	return newStub(name, func(_ context.Context, in string) ([]string, error) { return []string{prefix + in}, nil })
}

func (s *stubAgent) Name() string        { return s.name }
func (s *stubAgent) Description() string { return "stub " + s.name }
func (s *stubAgent) IsRunning() bool     { return s.neverIdle || s.running.Load() > 0 }

func (s *stubAgent) IsAvailable(context.Context) bool { return !s.unavailable }

func (s *stubAgent) CreateSession(context.Context) error {
	s.sessions.Store(1)
	return nil
}

func (s *stubAgent) CloseSession() {
	s.closeCalls.Add(1)
	if !s.IsRunning() {
		s.sessions.Store(0)
	}
}

func (s *stubAgent) SessionCount() int { return int(s.sessions.Load()) }

func (s *stubAgent) Ask(ctx context.Context, input string, _ core.GenerationOptions) ([]string, error) {
	s.running.Add(1)
	defer s.running.Add(-1)

	s.calls.Add(1)
	s.mu.Lock()
	s.inputs = append(s.inputs, input)
	s.mu.Unlock()

	return s.fn(ctx, input)
}

func (s *stubAgent) Inputs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.inputs...)
}

// countingRecorder counts gate backoffs and asks.
type countingRecorder struct {
	metrics.NoopRecorder
	backoffs atomic.Int32
	asks     atomic.Int32
	errs     atomic.Int32
}

func (r *countingRecorder) IncGateBackoff(string) { r.backoffs.Add(1) }

func (r *countingRecorder) ObserveAsk(_, _ string, _ time.Duration, err error) {
	r.asks.Add(1)
	if err != nil {
		r.errs.Add(1)
	}
}

var testEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestComposite_IsAvailableShortCircuits(t *testing.T) {
	first := NewMockAgent("first")
	second := NewMockAgent("second")
	first.On("IsAvailable", mock.Anything).Return(false)

	agent := NewSequentialAgent("seq", []core.Agent{first, second})

	assert.False(t, agent.IsAvailable(context.Background()))
	first.AssertExpectations(t)
	second.AssertNotCalled(t, "IsAvailable", mock.Anything)
}

func TestComposite_IsAvailableRecursive(t *testing.T) {
	leaf := constStub("leaf", "x")
	down := constStub("down", "y")
	down.unavailable = true

	inner := NewParallelAgent("inner", []core.Agent{leaf, down})
	outer := NewSequentialAgent("outer", []core.Agent{constStub("a", "z"), inner})

	assert.False(t, outer.IsAvailable(context.Background()))

	down.unavailable = false
	assert.True(t, outer.IsAvailable(context.Background()))
}

func TestComposite_CreateSessionStopsAtFirstError(t *testing.T) {
	boom := assert.AnError
	first := NewMockAgent("first")
	second := NewMockAgent("second")
	third := NewMockAgent("third")
	first.On("CreateSession", mock.Anything).Return(nil)
	second.On("CreateSession", mock.Anything).Return(boom)

	agent := NewParallelAgent("par", []core.Agent{first, second, third})
	err := agent.CreateSession(context.Background())

	var ce *core.ChildError
	assert.ErrorAs(t, err, &ce)
	assert.Equal(t, "par", ce.Parent)
	assert.Equal(t, "second", ce.Child)
	assert.ErrorIs(t, err, boom)
	third.AssertNotCalled(t, "CreateSession", mock.Anything)
}

func TestComposite_CloseSessionSkipsRunningChildren(t *testing.T) {
	idle := NewMockAgent("idle")
	busy := NewMockAgent("busy")
	idle.On("IsRunning").Return(false)
	idle.On("CloseSession").Return()
	busy.On("IsRunning").Return(true)

	agent := NewSequentialAgent("seq", []core.Agent{idle, busy})
	agent.CloseSession()

	idle.AssertCalled(t, "CloseSession")
	busy.AssertNotCalled(t, "CloseSession")
}

func TestComposite_SessionCountSumsDescendants(t *testing.T) {
	a, b, c := constStub("a"), constStub("b"), constStub("c")
	a.sessions.Store(1)
	c.sessions.Store(1)

	tree := NewSequentialAgent("root", []core.Agent{
		a,
		NewParallelAgent("par", []core.Agent{b, NewLoopAgent("loop", []core.Agent{c})}),
	})

	assert.Equal(t, 2, tree.SessionCount())

	b.sessions.Store(1)
	assert.Equal(t, 3, tree.SessionCount())
}

func TestComposite_SubAgentsIsACopy(t *testing.T) {
	a := constStub("a")
	agent := NewParallelAgent("par", []core.Agent{a})

	subs := agent.SubAgents()
	subs[0] = constStub("other")

	assert.Equal(t, "a", agent.SubAgents()[0].Name())
	assert.Equal(t, 1, core.CountLeaves(agent))
}

func TestBaseAgent_DefaultDescription(t *testing.T) {
	agent := NewSequentialAgent("seq", nil)
	assert.Equal(t, "Agent seq", agent.Description())

	agent = NewSequentialAgent("seq", nil, func(o *SequentialAgentOptions) { o.Description = "custom" })
	assert.Equal(t, "custom", agent.Description())
}
