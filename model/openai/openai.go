// Package openai provides an implementation of model.Model using the OpenAI
// Chat Completions API. Sessions replay their transcript on every turn.
package openai

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hupe1980/agentkit/model"
	"github.com/hupe1980/agentkit/session"
)

// Options configure the OpenAI model adapter.
type Options struct {
	Model  string
	APIKey string
	// BaseURL points at an OpenAI-compatible server. CheckAvailability
	// retrieves the model before every ask, so the server must implement
	// GET /models/{model}.
	BaseURL             string
	MaxCompletionTokens int64
}

// Model wraps the OpenAI Chat Completions API behind the generic model.Model interface.
type Model struct {
	client *openai.Client
	opts   Options
}

// NewModel creates a new OpenAI model using the official client. Client
// side retries are disabled; a failed call surfaces as a backend error.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := defaultOptions(optFns...)

	clientOpts := []option.RequestOption{option.WithMaxRetries(0)}
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}

	client := openai.NewClient(clientOpts...)
	return &Model{client: &client, opts: opts}
}

// NewModelFromClient creates a new OpenAI model from an existing client
func NewModelFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	return &Model{client: client, opts: defaultOptions(optFns...)}
}

func defaultOptions(optFns ...func(o *Options)) Options {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

// CheckAvailability retrieves the configured model; any error means the
// model cannot serve requests right now.
func (m *Model) CheckAvailability(ctx context.Context) error {
	_, err := m.client.Models.Get(ctx, m.opts.Model)
	return err
}

// OpenSession implements model.Model.
func (m *Model) OpenSession(_ context.Context, instructions string) (model.Session, error) {
	return model.NewChatSession(instructions, m.turn), nil
}

func (m *Model) turn(ctx context.Context, req model.TurnRequest) (string, error) {
	resp, err := m.client.Chat.Completions.New(ctx, buildParams(m.opts, req))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// buildMessages converts a turn request into OpenAI chat messages:
// instructions as the system message, then the transcript, then the prompt.
func buildMessages(req model.TurnRequest) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+2)
	if req.Instructions != "" {
		messages = append(messages, openai.SystemMessage(req.Instructions))
	}
	for _, t := range req.History {
		switch t.Role {
		case session.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(t.Text))
		default:
			messages = append(messages, openai.UserMessage(t.Text))
		}
	}
	return append(messages, openai.UserMessage(req.Prompt))
}

// buildParams assembles the OpenAI request parameters.
func buildParams(opts Options, req model.TurnRequest) openai.ChatCompletionNewParams {
	maxTokens := opts.MaxCompletionTokens
	if req.Options.MaxTokens > 0 {
		maxTokens = int64(req.Options.MaxTokens)
	}
	return openai.ChatCompletionNewParams{
		Messages:            buildMessages(req),
		Model:               opts.Model,
		Temperature:         openai.Float(req.Options.Temperature),
		MaxCompletionTokens: openai.Int(maxTokens),
	}
}

// Info returns metadata describing this OpenAI model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:     m.opts.Model,
		Provider: "openai",
	}
}
