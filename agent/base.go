package agent

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hupe1980/agentkit/core"
	"github.com/hupe1980/agentkit/logging"
	"github.com/hupe1980/agentkit/metrics"
)

// BaseAgent bundles identity, the running flag and the observability hooks
// shared by every agent kind. Embed it in concrete agent implementations.
// All exported methods are goroutine-safe.
type BaseAgent struct {
	name        string           // Human-readable name, used in logs only
	description string           // Detailed description of agent's purpose
	active      atomic.Int32     // Number of in-flight Ask calls
	logger      logging.Logger   // Logger scoped with the agent name
	metrics     metrics.Recorder // Never nil
}

// setup initializes the base in place. A blank description becomes "Agent <name>".
func (b *BaseAgent) setup(name, description string, logger logging.Logger, rec metrics.Recorder) {
	if description == "" {
		description = fmt.Sprintf("Agent %s", name)
	}
	b.name = name
	b.description = description
	b.logger = logging.With(logger, "agent", name)
	b.metrics = metrics.OrNoop(rec)
}

// Name returns the human-readable name for this agent.
func (b *BaseAgent) Name() string { return b.name }

// Description returns a detailed description of this agent's purpose.
func (b *BaseAgent) Description() string { return b.description }

// IsRunning reports whether an Ask call is in flight.
func (b *BaseAgent) IsRunning() bool { return b.active.Load() > 0 }

// enter marks the start of an Ask call. The returned func marks its end and
// records the call; it must run on every return path.
func (b *BaseAgent) enter(kind string) func(err error) {
	b.active.Add(1)
	start := time.Now()
	return func(err error) {
		b.active.Add(-1)
		b.metrics.ObserveAsk(kind, b.name, time.Since(start), err)
	}
}

// composite implements the parts of core.Composite that only depend on the
// child list: recursive availability, session creation, reclamation and
// accounting.
type composite struct {
	BaseAgent
	subAgents []core.Agent // Fixed at construction
}

func (c *composite) initComposite(name, description string, children []core.Agent, logger logging.Logger, rec metrics.Recorder) {
	c.setup(name, description, logger, rec)
	c.subAgents = append([]core.Agent(nil), children...)
}

// SubAgents returns a shallow copy of the child agents.
func (c *composite) SubAgents() []core.Agent {
	result := make([]core.Agent, len(c.subAgents))
	copy(result, c.subAgents)
	return result
}

// IsAvailable reports whether every descendant is available. The traversal
// is depth-first and stops at the first unavailable child.
func (c *composite) IsAvailable(ctx context.Context) bool {
	for _, child := range c.subAgents {
		if !child.IsAvailable(ctx) {
			c.logger.Warn("sub-agent unavailable", "child", child.Name())
			return false
		}
	}
	return true
}

// CreateSession creates sessions for all children, stopping at the first
// failure.
func (c *composite) CreateSession(ctx context.Context) error {
	for _, child := range c.subAgents {
		if err := child.CreateSession(ctx); err != nil {
			return &core.ChildError{Parent: c.name, Child: child.Name(), Err: err}
		}
	}
	return nil
}

// CloseSession closes the sessions of all idle children. Running children
// are skipped.
func (c *composite) CloseSession() {
	for _, child := range c.subAgents {
		if child.IsRunning() {
			c.logger.Debug("close skipped, sub-agent running", "child", child.Name())
			continue
		}
		child.CloseSession()
	}
}

// SessionCount returns the sum of the children's live sessions.
func (c *composite) SessionCount() int {
	n := 0
	for _, child := range c.subAgents {
		n += child.SessionCount()
	}
	return n
}
