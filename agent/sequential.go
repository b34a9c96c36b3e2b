package agent

import (
	"context"
	"time"

	"github.com/hupe1980/agentkit/core"
	"github.com/hupe1980/agentkit/internal/clock"
	"github.com/hupe1980/agentkit/logging"
	"github.com/hupe1980/agentkit/metrics"
)

// SequentialAgentOptions configures a SequentialAgent.
type SequentialAgentOptions struct {
	Description string
	// MaxSessions is the live session budget of the subtree.
	MaxSessions int
	// Backoff is the pause between two session gate checks.
	Backoff time.Duration
	Clock   clock.Clock
	Logger  logging.Logger
	Metrics metrics.Recorder
}

// SequentialAgent runs its children strictly in order, feeding the first
// response of each stage into the next one.
//
// Before every stage the session gate waits until the subtree holds at most
// MaxSessions live sessions, reclaiming idle ones in the meantime. A stage
// that returns nothing ends the pipeline with an empty result; later stages
// are never invoked.
type SequentialAgent struct {
	composite
	gate sessionGate
}

// NewSequentialAgent creates a new sequential execution coordinator.
//
// Defaults: MaxSessions 8, Backoff 1s, real clock.
func NewSequentialAgent(name string, children []core.Agent, optFns ...func(o *SequentialAgentOptions)) *SequentialAgent {
	opts := SequentialAgentOptions{
		MaxSessions: DefaultMaxSessions,
		Backoff:     DefaultBackoff,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &SequentialAgent{
		gate: newSessionGate(opts.MaxSessions, opts.Backoff, opts.Clock),
	}
	s.initComposite(name, opts.Description, children, opts.Logger, opts.Metrics)
	s.logger.Debug("agent initialized", "sub_agents", len(children), "max_sessions", s.gate.max)

	return s
}

// Ask implements core.Agent.
func (s *SequentialAgent) Ask(ctx context.Context, input string, opts core.GenerationOptions) (out []string, err error) {
	done := s.enter(metrics.KindSequential)
	defer func() { done(err) }()

	prompt := input
	last := len(s.subAgents) - 1

	for i, child := range s.subAgents {
		if err := s.gate.wait(ctx, &s.composite); err != nil {
			return nil, err
		}

		res, err := child.Ask(ctx, prompt, opts)
		if err != nil {
			return nil, &core.ChildError{Parent: s.name, Child: child.Name(), Err: err}
		}

		if i == last {
			return res, nil
		}

		if len(res) == 0 {
			s.logger.Info("stage returned no response, stopping pipeline", "stage", child.Name())
			return nil, nil
		}

		prompt = res[0]
	}

	return nil, nil
}
