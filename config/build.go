package config

import (
	"context"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/agentkit/agent"
	"github.com/hupe1980/agentkit/core"
	"github.com/hupe1980/agentkit/logging"
	"github.com/hupe1980/agentkit/metrics"
	"github.com/hupe1980/agentkit/model"
	"github.com/hupe1980/agentkit/model/anthropic"
	"github.com/hupe1980/agentkit/model/gemini"
	"github.com/hupe1980/agentkit/model/openai"
)

// ProviderFactory creates the backend for a named provider.
type ProviderFactory func(ctx context.Context, name string, p ProviderConfig) (model.Model, error)

// BuildOptions configures Build.
type BuildOptions struct {
	// Factory creates backends. Defaults to DefaultProviderFactory.
	Factory ProviderFactory
	Logger  logging.Logger
	Metrics metrics.Recorder
}

// DefaultProviderFactory creates openai, anthropic, gemini and mock models.
func DefaultProviderFactory(ctx context.Context, name string, p ProviderConfig) (model.Model, error) {
	switch p.Type {
	case ProviderOpenAI:
		return openai.NewModel(func(o *openai.Options) {
			if p.Model != "" {
				o.Model = p.Model
			}
			if p.MaxTokens > 0 {
				o.MaxCompletionTokens = int64(p.MaxTokens)
			}
			o.APIKey = p.APIKey
			o.BaseURL = p.BaseURL
		}), nil
	case ProviderAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			if p.Model != "" {
				o.Model = anthropicsdk.Model(p.Model)
			}
			if p.MaxTokens > 0 {
				o.MaxTokens = int64(p.MaxTokens)
			}
			o.APIKey = p.APIKey
		}), nil
	case ProviderGemini:
		return gemini.NewModel(ctx, func(o *gemini.Options) {
			if p.Model != "" {
				o.Model = p.Model
			}
			if p.MaxTokens > 0 {
				o.MaxOutputTokens = int32(p.MaxTokens)
			}
			o.APIKey = p.APIKey
		})
	case ProviderMock:
		m := model.NewMockModel(name)
		for prompt, response := range p.Responses {
			m.AddResponse(prompt, response)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("provider %q: unknown type %q", name, p.Type)
	}
}

// Build validates cfg and constructs its agent tree. Leaves that name the
// same provider share one backend.
func Build(ctx context.Context, cfg *Config, optFns ...func(o *BuildOptions)) (core.Agent, error) {
	opts := BuildOptions{Factory: DefaultProviderFactory}
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	b := &builder{
		cfg:    cfg,
		opts:   opts,
		models: make(map[string]model.Model),
	}

	return b.build(ctx, &cfg.Pipeline)
}

type builder struct {
	cfg    *Config
	opts   BuildOptions
	models map[string]model.Model
}

func (b *builder) backend(ctx context.Context, name string) (model.Model, error) {
	if m, ok := b.models[name]; ok {
		return m, nil
	}

	m, err := b.opts.Factory(ctx, name, b.cfg.Providers[name])
	if err != nil {
		return nil, err
	}

	b.models[name] = m

	return m, nil
}

func (b *builder) build(ctx context.Context, a *AgentConfig) (core.Agent, error) {
	if a.Type == TypeModel {
		llm, err := b.backend(ctx, a.Provider)
		if err != nil {
			return nil, err
		}

		return agent.NewModelAgent(a.Name, llm, func(o *agent.ModelAgentOptions) {
			o.Instruction = agent.NewInstructionFromTemplate(a.Instructions, a.Vars)
			o.Description = a.Description
			o.Logger = b.opts.Logger
			o.Metrics = b.opts.Metrics
		}), nil
	}

	children := make([]core.Agent, 0, len(a.Agents))
	for i := range a.Agents {
		child, err := b.build(ctx, &a.Agents[i])
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	maxSessions := IntValue(a.MaxSessions, IntValue(b.cfg.Defaults.MaxSessions, agent.DefaultMaxSessions))
	backoff := a.Backoff.Duration()
	if backoff == 0 {
		backoff = b.cfg.Defaults.Backoff.Duration()
	}

	switch a.Type {
	case TypeSequential:
		return agent.NewSequentialAgent(a.Name, children, func(o *agent.SequentialAgentOptions) {
			o.Description = a.Description
			o.MaxSessions = maxSessions
			o.Backoff = backoff
			o.Logger = b.opts.Logger
			o.Metrics = b.opts.Metrics
		}), nil
	case TypeParallel:
		return agent.NewParallelAgent(a.Name, children, func(o *agent.ParallelAgentOptions) {
			o.Description = a.Description
			o.MaxSessions = maxSessions
			o.Backoff = backoff
			o.Timeout = a.Timeout.Duration()
			o.Logger = b.opts.Logger
			o.Metrics = b.opts.Metrics
		}), nil
	case TypeLoop:
		return agent.NewLoopAgent(a.Name, children, func(o *agent.LoopAgentOptions) {
			o.Description = a.Description
			o.MaxIters = IntValue(a.MaxIters, 1)
			o.Interval = a.Interval.Duration()
			o.MaxSessions = maxSessions
			o.Backoff = backoff
			o.Logger = b.opts.Logger
			o.Metrics = b.opts.Metrics
		}), nil
	default:
		return nil, fmt.Errorf("agent %q: unknown type %q", a.Name, a.Type)
	}
}
