// Package agentkit provides a high-level façade over the runner and the agent
// tree it drives. Most applications interact with this package by:
//  1. Building an agent tree (agent.NewModelAgent plus the Sequential,
//     Parallel and Loop composites), by hand or from a config file
//  2. Wrapping the root with New()
//  3. Asking synchronously (Ask) or asynchronously (Invoke), then Close
//
// The façade delegates orchestration to runner.Runner while keeping setup and
// usage ergonomics concise.
package agentkit

import (
	"context"

	"github.com/hupe1980/agentkit/core"
	"github.com/hupe1980/agentkit/logging"
	"github.com/hupe1980/agentkit/metrics"
	"github.com/hupe1980/agentkit/runner"
)

// Options configures the AgentKit instance.
type Options struct {
	// MaxConcurrentInvocations limits the number of invocations that can
	// execute simultaneously. This provides backpressure in front of the
	// session budget of the tree.
	MaxConcurrentInvocations int

	// CheckAvailability rejects an invocation with runner.ErrUnavailable
	// when any agent of the tree is unavailable.
	CheckAvailability bool

	// CloseSessionsAfterRun reclaims idle sessions after every invocation.
	CloseSessionsAfterRun bool

	// GenerationOptions are used by Ask and Invoke.
	GenerationOptions core.GenerationOptions

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger

	// Metrics (defaults to a no-op recorder if nil)
	Metrics metrics.Recorder
}

// AgentKit is the high-level façade aggregating a root agent and its runner.
type AgentKit struct {
	opts   Options
	root   core.Agent
	runner *runner.Runner
}

// New creates a new AgentKit instance around root with optional overrides.
func New(root core.Agent, optFns ...func(o *Options)) *AgentKit {
	opts := Options{
		MaxConcurrentInvocations: 10,
		GenerationOptions:        core.DefaultGenerationOptions(),
		Logger:                   logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	r := runner.New(root, func(o *runner.Options) {
		o.MaxConcurrentInvocations = opts.MaxConcurrentInvocations
		o.CheckAvailability = opts.CheckAvailability
		o.CloseSessionsAfterRun = opts.CloseSessionsAfterRun
		o.Logger = opts.Logger
		o.Metrics = opts.Metrics
	})

	return &AgentKit{opts: opts, root: root, runner: r}
}

// Root returns the root agent.
func (k *AgentKit) Root() core.Agent { return k.root }

// Runner exposes the underlying runner.
func (k *AgentKit) Runner() *runner.Runner { return k.runner }

// Invoke starts an asynchronous invocation returning its ID and a channel
// that receives the single result.
func (k *AgentKit) Invoke(ctx context.Context, input string) (string, <-chan runner.Result, error) {
	return k.runner.Start(ctx, input, k.opts.GenerationOptions)
}

// Ask runs the tree on input with the configured generation options.
func (k *AgentKit) Ask(ctx context.Context, input string) ([]string, error) {
	return k.AskWithOptions(ctx, input, k.opts.GenerationOptions)
}

// AskWithOptions runs the tree on input with explicit generation options.
func (k *AgentKit) AskWithOptions(ctx context.Context, input string, opts core.GenerationOptions) ([]string, error) {
	_, out, err := k.runner.Run(ctx, input, opts)
	return out, err
}

// Cancel cancels an invocation started with Invoke.
func (k *AgentKit) Cancel(invocationID string) error { return k.runner.Cancel(invocationID) }

// Close waits for active invocations and releases every idle session.
func (k *AgentKit) Close() error { return k.runner.Close() }
