package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/agentkit/core"
	"github.com/hupe1980/agentkit/internal/util"
	"github.com/hupe1980/agentkit/logging"
	"github.com/hupe1980/agentkit/metrics"
	"github.com/hupe1980/agentkit/model"
	"github.com/hupe1980/agentkit/session"
)

// ModelAgentOptions configures a ModelAgent instance.
//
// Use functional options with NewModelAgent to override defaults.
type ModelAgentOptions struct {
	Instruction Instruction
	Description string
	Logger      logging.Logger
	Metrics     metrics.Recorder
}

// ModelAgent is the leaf agent: it owns at most one backend session of the
// wrapped model and answers each Ask with a single generation.
//
// A per-agent mutex serializes the close decision with the idle to running
// transition, so CloseSession can never release a session that an Ask has
// already claimed. Concurrent Ask calls on the same agent share the session;
// the backend rejects the overlapping generation with core.ErrSessionBusy.
type ModelAgent struct {
	BaseAgent
	llm         model.Model
	instruction Instruction

	mu   sync.Mutex
	sess model.Session // nil when no session is live
}

// NewModelAgent creates a leaf agent backed by llm. An empty name is
// replaced by a generated lowercase UUID.
func NewModelAgent(name string, llm model.Model, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	opts := ModelAgentOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if name == "" {
		name = util.NewAgentName()
	}

	a := &ModelAgent{
		llm:         llm,
		instruction: opts.Instruction,
	}
	a.setup(name, opts.Description, opts.Logger, opts.Metrics)
	a.logger.Debug("agent initialized", "model", llm.Info().Name, "provider", llm.Info().Provider)

	return a
}

// Model returns the wrapped backend.
func (a *ModelAgent) Model() model.Model { return a.llm }

// IsAvailable probes the backend.
func (a *ModelAgent) IsAvailable(ctx context.Context) bool {
	if err := a.llm.CheckAvailability(ctx); err != nil {
		a.logger.Warn("model unavailable", "model", a.llm.Info().Name, "reason", err)
		return false
	}
	return true
}

// CreateSession opens the backend session unless one is already live.
func (a *ModelAgent) CreateSession(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	_, err := a.sessionLocked(ctx)
	return err
}

func (a *ModelAgent) sessionLocked(ctx context.Context) (model.Session, error) {
	if a.sess != nil {
		return a.sess, nil
	}

	instructions, err := a.instruction.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("agent %s: resolve instruction: %w", a.name, err)
	}

	s, err := a.llm.OpenSession(ctx, instructions)
	if err != nil {
		return nil, &core.BackendError{Agent: a.name, Op: core.OpOpenSession, Err: err}
	}

	a.sess = s
	a.logger.Info("session created")

	return s, nil
}

// CloseSession releases the session unless an Ask is in flight.
func (a *ModelAgent) CloseSession() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sess == nil {
		return
	}

	if a.IsRunning() {
		a.logger.Debug("close skipped, agent running")
		return
	}

	if err := a.sess.Close(); err != nil {
		if errors.Is(err, core.ErrSessionBusy) {
			a.logger.Debug("close skipped, session busy")
		} else {
			a.logger.Warn("session close failed", "error", err)
		}
		return
	}

	a.sess = nil
	a.logger.Info("session closed")
}

// SessionCount returns 1 while a session is live, 0 otherwise.
func (a *ModelAgent) SessionCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sess != nil {
		return 1
	}
	return 0
}

// Ask generates one response to input. An unavailable model yields an
// empty result and no error; backend failures come back as
// *core.BackendError.
func (a *ModelAgent) Ask(ctx context.Context, input string, opts core.GenerationOptions) (out []string, err error) {
	a.mu.Lock()
	done := a.enter(metrics.KindModel)
	a.mu.Unlock()
	defer func() { done(err) }()

	if !a.IsAvailable(ctx) {
		a.logger.Error("model unavailable, returning empty result")
		return nil, nil
	}

	a.mu.Lock()
	s, err := a.sessionLocked(ctx)
	a.mu.Unlock()
	if err != nil {
		return nil, err
	}

	resp, err := s.Generate(ctx, input, opts)
	if err != nil {
		return nil, &core.BackendError{Agent: a.name, Op: core.OpGenerate, Err: err}
	}

	a.logger.Info("transcript", "transcript", session.Loggable(s.Transcript()))

	return []string{resp}, nil
}
