package runner

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentkit/agent"
	"github.com/hupe1980/agentkit/core"
	"github.com/hupe1980/agentkit/metrics"
	"github.com/hupe1980/agentkit/model"
)

type gaugeRecorder struct {
	metrics.NoopRecorder
	last atomic.Int32
}

func (g *gaugeRecorder) SetLiveSessions(_ string, n int) { g.last.Store(int32(n)) }

func newPipeline(llm model.Model) core.Agent {
	return agent.NewSequentialAgent("pipeline", []core.Agent{
		agent.NewModelAgent("first", llm),
		agent.NewModelAgent("second", llm),
	})
}

func TestRunner_Run(t *testing.T) {
	llm := model.NewMockModel("m")
	llm.AddResponse("hello", "world")
	rec := &gaugeRecorder{}

	r := New(newPipeline(llm), func(o *Options) { o.Metrics = rec })

	id, out, err := r.Run(context.Background(), "hello", core.DefaultGenerationOptions())
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, []string{"Mock response to: world"}, out)
	assert.EqualValues(t, 2, rec.last.Load())
	assert.Equal(t, 0, r.Active())
}

func TestRunner_CloseSessionsAfterRun(t *testing.T) {
	root := newPipeline(model.NewMockModel("m"))
	rec := &gaugeRecorder{}

	r := New(root, func(o *Options) {
		o.CloseSessionsAfterRun = true
		o.Metrics = rec
	})

	_, _, err := r.Run(context.Background(), "q", core.GenerationOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, root.SessionCount())
	assert.EqualValues(t, 0, rec.last.Load())
}

func TestRunner_CheckAvailability(t *testing.T) {
	llm := model.NewMockModel("m")
	llm.SetUnavailable(assert.AnError)

	r := New(newPipeline(llm), func(o *Options) { o.CheckAvailability = true })

	_, out, err := r.Run(context.Background(), "q", core.GenerationOptions{})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Nil(t, out)
	assert.Equal(t, 0, llm.OpenedSessions())
}

func TestRunner_UnavailableWithoutCheckIsEmpty(t *testing.T) {
	llm := model.NewMockModel("m")
	llm.SetUnavailable(assert.AnError)

	_, out, err := New(newPipeline(llm)).Run(context.Background(), "q", core.GenerationOptions{})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRunner_Cancel(t *testing.T) {
	llm := model.NewMockModel("m")
	started := make(chan struct{})
	llm.SetGenerateFunc(func(ctx context.Context, _ model.TurnRequest) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	})

	r := New(agent.NewModelAgent("leaf", llm))

	id, resultCh, err := r.Start(context.Background(), "q", core.GenerationOptions{})
	require.NoError(t, err)

	<-started
	require.NoError(t, r.Cancel(id))

	res := <-resultCh
	assert.ErrorIs(t, res.Err, context.Canceled)

	_, ok := <-resultCh
	assert.False(t, ok)

	assert.Error(t, r.Cancel("unknown"))
}

func TestRunner_LimitsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	release := make(chan struct{})

	llm := model.NewMockModel("m")
	llm.SetGenerateFunc(func(context.Context, model.TurnRequest) (string, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		inFlight.Add(-1)
		return "ok", nil
	})

	leaves := make([]core.Agent, 0, 4)
	for i := 0; i < 4; i++ {
		leaves = append(leaves, agent.NewModelAgent("", llm))
	}

	r := New(agent.NewParallelAgent("root", leaves), func(o *Options) { o.MaxConcurrentInvocations = 1 })

	var chans []<-chan Result
	for i := 0; i < 3; i++ {
		_, ch, err := r.Start(context.Background(), "q", core.GenerationOptions{})
		require.NoError(t, err)
		chans = append(chans, ch)
	}

	assert.Eventually(t, func() bool { return inFlight.Load() == 4 }, time.Second, 5*time.Millisecond)
	close(release)

	for _, ch := range chans {
		res := <-ch
		require.NoError(t, res.Err)
		assert.Len(t, res.Responses, 4)
	}

	assert.EqualValues(t, 4, peak.Load())
}

func TestRunner_Close(t *testing.T) {
	root := newPipeline(model.NewMockModel("m"))
	r := New(root)

	_, _, err := r.Run(context.Background(), "q", core.GenerationOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, root.SessionCount())

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.Equal(t, 0, root.SessionCount())

	_, _, err = r.Run(context.Background(), "q", core.GenerationOptions{})
	assert.ErrorIs(t, err, ErrClosed)
}
