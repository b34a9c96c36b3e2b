package agent

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agentkit/core"
	"github.com/hupe1980/agentkit/internal/clock"
	"github.com/hupe1980/agentkit/logging"
	"github.com/hupe1980/agentkit/metrics"
)

// ParallelAgentOptions configures a ParallelAgent.
type ParallelAgentOptions struct {
	Description string
	// MaxSessions is the live session budget of the subtree, checked once
	// before fan-out.
	MaxSessions int
	Backoff     time.Duration
	// Timeout bounds the whole fan-out. Zero means no timeout.
	Timeout time.Duration
	Clock   clock.Clock
	Logger  logging.Logger
	Metrics metrics.Recorder
}

// ParallelAgent broadcasts one input to all children concurrently and
// returns the concatenation of their results.
//
// Results are collected in completion order; each child's own ordering is
// kept. The first failing child cancels the context of its siblings and the
// whole call fails without a partial result.
type ParallelAgent struct {
	composite
	gate    sessionGate
	timeout time.Duration
}

// NewParallelAgent creates a new parallel execution coordinator.
func NewParallelAgent(name string, children []core.Agent, optFns ...func(o *ParallelAgentOptions)) *ParallelAgent {
	opts := ParallelAgentOptions{
		MaxSessions: DefaultMaxSessions,
		Backoff:     DefaultBackoff,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	p := &ParallelAgent{
		gate:    newSessionGate(opts.MaxSessions, opts.Backoff, opts.Clock),
		timeout: opts.Timeout,
	}
	p.initComposite(name, opts.Description, children, opts.Logger, opts.Metrics)
	p.logger.Debug("agent initialized", "sub_agents", len(children), "max_sessions", p.gate.max)

	return p
}

// Ask implements core.Agent.
func (p *ParallelAgent) Ask(ctx context.Context, input string, opts core.GenerationOptions) (out []string, err error) {
	done := p.enter(metrics.KindParallel)
	defer func() { done(err) }()

	if len(p.subAgents) == 0 {
		return nil, nil
	}

	if err := p.gate.wait(ctx, &p.composite); err != nil {
		return nil, err
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	var mu sync.Mutex
	results := make([]string, 0, len(p.subAgents))

	g, gctx := errgroup.WithContext(ctx)
	for _, child := range p.subAgents {
		g.Go(func() error {
			res, err := child.Ask(gctx, input, opts)
			if err != nil {
				return &core.ChildError{Parent: p.name, Child: child.Name(), Err: err}
			}

			mu.Lock()
			results = append(results, res...)
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
