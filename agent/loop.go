package agent

import (
	"context"
	"time"

	"github.com/hupe1980/agentkit/core"
	"github.com/hupe1980/agentkit/internal/clock"
	"github.com/hupe1980/agentkit/logging"
	"github.com/hupe1980/agentkit/metrics"
)

// LoopAgentOptions configures a LoopAgent.
type LoopAgentOptions struct {
	Description string
	// MaxIters is the number of pipeline runs. Zero returns an empty result
	// without invoking any child.
	MaxIters int
	// Interval is an optional pause between two iterations.
	Interval time.Duration
	// StopWhen, if set, ends the loop early once it returns true for an
	// iteration's result.
	StopWhen    func(result []string) bool
	MaxSessions int
	Backoff     time.Duration
	Clock       clock.Clock
	Logger      logging.Logger
	Metrics     metrics.Recorder
}

// LoopAgent repeats a sequential pipeline over its children, giving every
// iteration the original input and returning the last iteration's result.
// Earlier results are discarded.
type LoopAgent struct {
	composite
	pipeline *SequentialAgent
	maxIters int
	interval time.Duration
	stopWhen func([]string) bool
	clock    clock.Clock
}

// NewLoopAgent constructs a looping coordinator around children.
//
// Default configuration:
//   - 1 iteration
//   - No interval between iterations
//   - No early stop predicate
//   - MaxSessions 8, Backoff 1s for the wrapped pipeline
func NewLoopAgent(name string, children []core.Agent, optFns ...func(o *LoopAgentOptions)) *LoopAgent {
	opts := LoopAgentOptions{
		MaxIters:    1,
		MaxSessions: DefaultMaxSessions,
		Backoff:     DefaultBackoff,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}

	l := &LoopAgent{
		maxIters: opts.MaxIters,
		interval: opts.Interval,
		stopWhen: opts.StopWhen,
		clock:    opts.Clock,
	}
	l.initComposite(name, opts.Description, children, opts.Logger, opts.Metrics)

	// The pipeline shares the loop's name so child errors read as the loop's.
	l.pipeline = NewSequentialAgent(name, children, func(o *SequentialAgentOptions) {
		o.MaxSessions = opts.MaxSessions
		o.Backoff = opts.Backoff
		o.Clock = opts.Clock
		o.Logger = opts.Logger
		o.Metrics = gateOnly{metrics.OrNoop(opts.Metrics)}
	})

	l.logger.Debug("agent initialized", "sub_agents", len(children), "max_iters", l.maxIters)

	return l
}

// gateOnly forwards everything but ObserveAsk, which the loop records
// itself under the same name.
type gateOnly struct{ metrics.Recorder }

func (gateOnly) ObserveAsk(string, string, time.Duration, error) {}

// Ask implements core.Agent.
func (l *LoopAgent) Ask(ctx context.Context, input string, opts core.GenerationOptions) (out []string, err error) {
	done := l.enter(metrics.KindLoop)
	defer func() { done(err) }()

	for i := 0; i < l.maxIters; i++ {
		if i > 0 && l.interval > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-l.clock.After(l.interval):
			}
		}

		res, err := l.pipeline.Ask(ctx, input, opts)
		if err != nil {
			return nil, err
		}

		out = res
		l.logger.Debug("iteration completed", "iteration", i+1, "responses", len(res))

		if l.stopWhen != nil && l.stopWhen(res) {
			l.logger.Debug("stop condition met", "iteration", i+1)
			break
		}
	}

	return out, nil
}
