package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/hupe1980/agentkit/core"
	"github.com/hupe1980/agentkit/internal/util"
	"github.com/hupe1980/agentkit/logging"
	"github.com/hupe1980/agentkit/metrics"
)

var (
	// ErrUnavailable is returned when CheckAvailability is enabled and the
	// agent tree cannot serve a request.
	ErrUnavailable = errors.New("agent tree unavailable")

	// ErrClosed is returned by Start and Run after Close.
	ErrClosed = errors.New("runner closed")
)

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// MaxConcurrentInvocations limits concurrent agent invocations. Extra
	// invocations wait for a free slot.
	MaxConcurrentInvocations int
	// CheckAvailability probes the whole tree before each invocation.
	CheckAvailability bool
	// CloseSessionsAfterRun reclaims idle sessions once an invocation ends.
	CloseSessionsAfterRun bool
	// Logging services.
	Logger logging.Logger
	// Metrics receives the live session count after each invocation.
	Metrics metrics.Recorder
}

// Result is the outcome of one invocation.
type Result struct {
	Responses []string
	Err       error
}

// Runner invokes a root agent on behalf of an application: it bounds
// concurrency, assigns invocation IDs, supports cancellation and keeps the
// live session metric current. Public methods are safe for concurrent use.
type Runner struct {
	agent core.Agent

	checkAvailability     bool
	closeSessionsAfterRun bool
	logger                logging.Logger
	metrics               metrics.Recorder
	sem                   *semaphore.Weighted

	activeRuns map[string]context.CancelFunc
	closed     bool
	mu         sync.RWMutex
	wg         sync.WaitGroup
}

// New constructs a Runner with optional overrides.
func New(agent core.Agent, optFns ...func(o *Options)) *Runner {
	opts := Options{
		MaxConcurrentInvocations: 10,
		Logger:                   logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxConcurrentInvocations <= 0 {
		opts.MaxConcurrentInvocations = 1
	}

	return &Runner{
		agent:                 agent,
		checkAvailability:     opts.CheckAvailability,
		closeSessionsAfterRun: opts.CloseSessionsAfterRun,
		logger:                logging.With(opts.Logger, "root", agent.Name()),
		metrics:               metrics.OrNoop(opts.Metrics),
		sem:                   semaphore.NewWeighted(int64(opts.MaxConcurrentInvocations)),
		activeRuns:            make(map[string]context.CancelFunc),
	}
}

// Agent returns the root agent.
func (r *Runner) Agent() core.Agent { return r.agent }

// Start begins an asynchronous invocation. The returned channel receives
// exactly one Result and is then closed.
func (r *Runner) Start(ctx context.Context, input string, opts core.GenerationOptions) (string, <-chan Result, error) {
	runID := util.NewID()
	ctx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		cancel()
		return "", nil, ErrClosed
	}
	r.activeRuns[runID] = cancel
	r.wg.Add(1)
	r.mu.Unlock()

	resultCh := make(chan Result, 1)

	go func() {
		defer func() {
			cancel()
			r.mu.Lock()
			delete(r.activeRuns, runID)
			r.mu.Unlock()
			close(resultCh)
			r.wg.Done()
		}()

		out, err := r.invoke(ctx, runID, input, opts)
		resultCh <- Result{Responses: out, Err: err}
	}()

	return runID, resultCh, nil
}

// Run invokes the root agent and waits for the result.
func (r *Runner) Run(ctx context.Context, input string, opts core.GenerationOptions) (string, []string, error) {
	runID, resultCh, err := r.Start(ctx, input, opts)
	if err != nil {
		return "", nil, err
	}

	res := <-resultCh

	return runID, res.Responses, res.Err
}

// Cancel cancels a running invocation by ID.
func (r *Runner) Cancel(runID string) error {
	r.mu.RLock()
	cancel, exists := r.activeRuns[runID]
	r.mu.RUnlock()

	if !exists {
		return fmt.Errorf("run %s not found", runID)
	}

	cancel()

	return nil
}

// Active returns the number of invocations started and not yet finished.
func (r *Runner) Active() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.activeRuns)
}

// Close refuses further invocations, waits for the active ones to finish and
// closes every idle session of the tree. It is idempotent.
func (r *Runner) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.wg.Wait()

	r.agent.CloseSession()
	r.metrics.SetLiveSessions(r.agent.Name(), r.agent.SessionCount())

	return nil
}

func (r *Runner) invoke(ctx context.Context, runID, input string, opts core.GenerationOptions) ([]string, error) {
	logger := logging.With(r.logger, "run_id", runID)

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer r.sem.Release(1)

	defer func() {
		if r.closeSessionsAfterRun {
			r.agent.CloseSession()
		}
		r.metrics.SetLiveSessions(r.agent.Name(), r.agent.SessionCount())
	}()

	if r.checkAvailability && !r.agent.IsAvailable(ctx) {
		logger.Warn("invocation rejected, agent tree unavailable")
		return nil, ErrUnavailable
	}

	logger.Debug("invocation started")

	out, err := r.agent.Ask(ctx, input, opts)
	if err != nil {
		logger.Error("invocation failed", "error", err)
		return nil, err
	}

	logger.Debug("invocation completed", "responses", len(out))

	return out, nil
}
