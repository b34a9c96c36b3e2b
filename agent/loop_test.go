package agent

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentkit/core"
	"github.com/hupe1980/agentkit/internal/clock"
)

// counterStub answers with "<input>#<n>" where n counts its invocations.
func counterStub(name string) *stubAgent {
	var n atomic.Int32
	return newStub(name, func(_ context.Context, in string) ([]string, error) {
		return []string{fmt.Sprintf("%s#%d", in, n.Add(1))}, nil
	})
}

func TestLoopAgent_DefaultsToOneIteration(t *testing.T) {
	stage := counterStub("stage")
	loop := NewLoopAgent("loop", []core.Agent{stage})

	out, err := loop.Ask(context.Background(), "in", core.GenerationOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"in#1"}, out)
	assert.EqualValues(t, 1, stage.calls.Load())
}

func TestLoopAgent_OneIterationMatchesSequential(t *testing.T) {
	loopOut, err := NewLoopAgent("loop", []core.Agent{echoStub("a", "a:"), echoStub("b", "b:")}).
		Ask(context.Background(), "x", core.GenerationOptions{})
	require.NoError(t, err)

	seqOut, err := NewSequentialAgent("seq", []core.Agent{echoStub("a", "a:"), echoStub("b", "b:")}).
		Ask(context.Background(), "x", core.GenerationOptions{})
	require.NoError(t, err)

	assert.Equal(t, seqOut, loopOut)
}

func TestLoopAgent_ReturnsLastIterationOnly(t *testing.T) {
	first := counterStub("first")
	second := echoStub("second", ">")

	loop := NewLoopAgent("loop", []core.Agent{first, second}, func(o *LoopAgentOptions) {
		o.MaxIters = 3
	})

	out, err := loop.Ask(context.Background(), "q", core.GenerationOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{">q#3"}, out)

	// every iteration starts from the original input
	assert.Equal(t, []string{"q", "q", "q"}, first.Inputs())
	assert.Equal(t, []string{"q#1", "q#2", "q#3"}, second.Inputs())
}

func TestLoopAgent_ZeroIterations(t *testing.T) {
	stage := counterStub("stage")
	loop := NewLoopAgent("loop", []core.Agent{stage}, func(o *LoopAgentOptions) {
		o.MaxIters = 0
	})

	out, err := loop.Ask(context.Background(), "q", core.GenerationOptions{})
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.EqualValues(t, 0, stage.calls.Load())
}

func TestLoopAgent_StopWhen(t *testing.T) {
	stage := counterStub("stage")
	loop := NewLoopAgent("loop", []core.Agent{stage}, func(o *LoopAgentOptions) {
		o.MaxIters = 10
		o.StopWhen = func(res []string) bool { return len(res) > 0 && res[0] == "q#2" }
	})

	out, err := loop.Ask(context.Background(), "q", core.GenerationOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"q#2"}, out)
	assert.EqualValues(t, 2, stage.calls.Load())
}

func TestLoopAgent_ErrorStopsLoop(t *testing.T) {
	var n atomic.Int32
	stage := newStub("stage", func(context.Context, string) ([]string, error) {
		if n.Add(1) == 2 {
			return nil, assert.AnError
		}
		return []string{"ok"}, nil
	})

	loop := NewLoopAgent("loop", []core.Agent{stage}, func(o *LoopAgentOptions) { o.MaxIters = 5 })

	out, err := loop.Ask(context.Background(), "q", core.GenerationOptions{})
	assert.Nil(t, out)
	assert.ErrorIs(t, err, assert.AnError)

	var ce *core.ChildError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "loop", ce.Parent)
	assert.EqualValues(t, 2, stage.calls.Load())
	assert.False(t, loop.IsRunning())
}

func TestLoopAgent_IntervalUsesClock(t *testing.T) {
	clk := clock.Fake(testEpoch)
	stage := counterStub("stage")

	loop := NewLoopAgent("loop", []core.Agent{stage}, func(o *LoopAgentOptions) {
		o.MaxIters = 2
		o.Interval = time.Minute
		o.Clock = clk
	})

	done := make(chan []string, 1)
	go func() {
		out, err := loop.Ask(context.Background(), "q", core.GenerationOptions{})
		assert.NoError(t, err)
		done <- out
	}()

	clk.WaitForTimers(1)
	assert.EqualValues(t, 1, stage.calls.Load())
	assert.True(t, loop.IsRunning())

	clk.Advance(time.Minute)
	assert.Equal(t, []string{"q#2"}, <-done)
}

func TestLoopAgent_GateBackoffsAreRecorded(t *testing.T) {
	clk := clock.Fake(testEpoch)
	rec := &countingRecorder{}

	hog := echoStub("hog", "")
	hog.neverIdle = true
	hog.sessions.Store(1)

	loop := NewLoopAgent("loop", []core.Agent{hog}, func(o *LoopAgentOptions) {
		o.MaxSessions = 0
		o.Backoff = time.Second
		o.Clock = clk
		o.Metrics = rec
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := loop.Ask(ctx, "in", core.GenerationOptions{})
		errCh <- err
	}()

	const rounds = 3
	for i := 1; i <= rounds; i++ {
		clk.WaitForTimers(1)
		assert.EqualValues(t, i, rec.backoffs.Load())
		clk.Advance(time.Second)
	}

	clk.WaitForTimers(1)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("loop gate did not observe cancellation")
	}

	assert.EqualValues(t, rounds+1, rec.backoffs.Load())
	// Only the loop's own ask is observed, not the wrapped pipeline's.
	assert.EqualValues(t, 1, rec.asks.Load())
	assert.EqualValues(t, 0, hog.calls.Load())
}

func TestLoopAgent_SubAgentsAreUserChildren(t *testing.T) {
	a, b := constStub("a"), constStub("b")
	loop := NewLoopAgent("loop", []core.Agent{a, b})

	assert.Equal(t, []core.Agent{a, b}, loop.SubAgents())
	assert.Equal(t, 2, core.CountLeaves(loop))
}
