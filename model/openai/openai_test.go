package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentkit/agent"
	"github.com/hupe1980/agentkit/core"
	"github.com/hupe1980/agentkit/model"
	"github.com/hupe1980/agentkit/session"
)

func TestBuildMessages(t *testing.T) {
	req := model.TurnRequest{
		Instructions: "sys",
		History: []session.Turn{
			{Role: session.RoleUser, Text: "q1"},
			{Role: session.RoleAssistant, Text: "a1"},
		},
		Prompt: "q2",
	}

	msgs := buildMessages(req)
	require.Len(t, msgs, 4)
	assert.NotNil(t, msgs[0].OfSystem)
	assert.NotNil(t, msgs[1].OfUser)
	assert.NotNil(t, msgs[2].OfAssistant)
	assert.NotNil(t, msgs[3].OfUser)
}

func TestBuildMessages_NoInstructions(t *testing.T) {
	msgs := buildMessages(model.TurnRequest{Prompt: "hi"})
	require.Len(t, msgs, 1)
	assert.NotNil(t, msgs[0].OfUser)
}

func TestBuildParams_MaxTokensOverride(t *testing.T) {
	opts := defaultOptions(func(o *Options) { o.Model = "gpt-test" })

	p := buildParams(opts, model.TurnRequest{Prompt: "x", Options: core.GenerationOptions{Temperature: 0.5}})
	assert.Equal(t, "gpt-test", p.Model)
	assert.Equal(t, openai.Int(4096), p.MaxCompletionTokens)
	assert.Equal(t, openai.Float(0.5), p.Temperature)

	p = buildParams(opts, model.TurnRequest{Prompt: "x", Options: core.GenerationOptions{MaxTokens: 64}})
	assert.Equal(t, openai.Int(64), p.MaxCompletionTokens)
}

func TestInfo(t *testing.T) {
	m := NewModelFromClient(nil, func(o *Options) { o.Model = "gpt-test" })
	assert.Equal(t, model.Info{Name: "gpt-test", Provider: "openai"}, m.Info())
}

// compatServer fakes an OpenAI-compatible endpoint. With retrieve false it
// answers GET /models/{model} with 404, as some self-hosted servers do.
func compatServer(t *testing.T, retrieve bool) (*httptest.Server, *atomic.Int32, *atomic.Int32) {
	t.Helper()

	var probes, chats atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasPrefix(r.URL.Path, "/models/"):
			probes.Add(1)
			if !retrieve {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"error":{"message":"not found","type":"invalid_request_error"}}`))
				return
			}
			_, _ = w.Write([]byte(`{"id":"gpt-4o-mini","object":"model","created":0,"owned_by":"local"}`))
		case r.URL.Path == "/chat/completions":
			chats.Add(1)
			_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":0,"model":"gpt-4o-mini",` +
				`"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Fuji"}}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	return srv, &probes, &chats
}

func TestModel_ProbesBeforeEveryAsk(t *testing.T) {
	srv, probes, chats := compatServer(t, true)

	llm := NewModel(func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = srv.URL + "/"
	})
	leaf := agent.NewModelAgent("leaf", llm)

	for i := 0; i < 2; i++ {
		out, err := leaf.Ask(context.Background(), "q", core.GenerationOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"Fuji"}, out)
	}

	assert.EqualValues(t, 2, probes.Load())
	assert.EqualValues(t, 2, chats.Load())
}

func TestModel_ServerWithoutRetrieveModelIsUnavailable(t *testing.T) {
	srv, probes, chats := compatServer(t, false)

	llm := NewModel(func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = srv.URL + "/"
	})
	assert.Error(t, llm.CheckAvailability(context.Background()))

	leaf := agent.NewModelAgent("leaf", llm)
	out, err := leaf.Ask(context.Background(), "q", core.GenerationOptions{})
	require.NoError(t, err)
	assert.Empty(t, out)

	assert.EqualValues(t, 2, probes.Load())
	assert.EqualValues(t, 0, chats.Load())
}
