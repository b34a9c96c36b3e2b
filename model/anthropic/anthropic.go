// Package anthropic provides a model wrapper for the Anthropic Claude API.
package anthropic

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/agentkit/model"
	"github.com/hupe1980/agentkit/session"
)

// Options configures the Anthropic model adapter (model id, max tokens,
// API key).
type Options struct {
	Model     anthropic.Model
	MaxTokens int64
	APIKey    string
}

// Model wraps the Anthropic Messages API behind the generic model.Model interface.
type Model struct {
	client *anthropic.Client
	opts   Options
}

// NewModel creates a new Anthropic model using the official client with
// client side retries disabled.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := defaultOptions(optFns...)

	clientOpts := []option.RequestOption{option.WithMaxRetries(0)}
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Model{
		client: &client,
		opts:   opts,
	}
}

// NewModelFromClient creates a new Anthropic model from an existing client
func NewModelFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Model {
	return &Model{
		client: client,
		opts:   defaultOptions(optFns...),
	}
}

func defaultOptions(optFns ...func(o *Options)) Options {
	opts := Options{
		Model:     anthropic.ModelClaude3_5Sonnet20241022,
		MaxTokens: 4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return opts
}

// CheckAvailability implements model.Model.
func (m *Model) CheckAvailability(ctx context.Context) error {
	_, err := m.client.Models.Get(ctx, string(m.opts.Model), anthropic.ModelGetParams{})
	return err
}

// OpenSession implements model.Model.
func (m *Model) OpenSession(_ context.Context, instructions string) (model.Session, error) {
	return model.NewChatSession(instructions, m.turn), nil
}

func (m *Model) turn(ctx context.Context, req model.TurnRequest) (string, error) {
	resp, err := m.client.Messages.New(ctx, m.buildParams(req))
	if err != nil {
		return "", err
	}

	if len(resp.Content) == 0 {
		return "", errors.New("empty response from Anthropic")
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}

	return sb.String(), nil
}

func (m *Model) buildParams(req model.TurnRequest) anthropic.MessageNewParams {
	maxTokens := m.opts.MaxTokens
	if req.Options.MaxTokens > 0 {
		maxTokens = int64(req.Options.MaxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:       m.opts.Model,
		Messages:    buildMessages(req),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(req.Options.Temperature),
	}

	// System instructions travel outside the message list
	if req.Instructions != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.Instructions}}
	}

	return params
}

// buildMessages converts the session transcript plus the new prompt to
// Anthropic message format.
func buildMessages(req model.TurnRequest) []anthropic.MessageParam {
	messages := make([]anthropic.MessageParam, 0, len(req.History)+1)

	for _, t := range req.History {
		if t.Text == "" {
			continue
		}

		switch t.Role {
		case session.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(t.Text)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(t.Text)))
		}
	}

	return append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)))
}

// Info returns metadata describing this Anthropic model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:     string(m.opts.Model),
		Provider: "anthropic",
	}
}
