// Package gemini provides an implementation of model.Model using the Google
// Gen AI SDK (Gemini API).
package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/hupe1980/agentkit/model"
	"github.com/hupe1980/agentkit/session"
)

// Options configures the Gemini model adapter.
type Options struct {
	Model           string
	APIKey          string
	MaxOutputTokens int32
}

// Model wraps the Gemini generate content API behind model.Model.
type Model struct {
	client *genai.Client
	opts   Options
}

// NewModel creates a new Gemini model. An API key is required.
func NewModel(ctx context.Context, optFns ...func(o *Options)) (*Model, error) {
	opts := defaultOptions(optFns...)
	if opts.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Model{client: client, opts: opts}, nil
}

// NewModelFromClient creates a new Gemini model from an existing client.
func NewModelFromClient(client *genai.Client, optFns ...func(o *Options)) *Model {
	return &Model{client: client, opts: defaultOptions(optFns...)}
}

func defaultOptions(optFns ...func(o *Options)) Options {
	opts := Options{
		Model:           "gemini-2.0-flash",
		MaxOutputTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

// CheckAvailability implements model.Model.
func (m *Model) CheckAvailability(ctx context.Context) error {
	_, err := m.client.Models.Get(ctx, m.opts.Model, nil)
	return err
}

// OpenSession implements model.Model.
func (m *Model) OpenSession(_ context.Context, instructions string) (model.Session, error) {
	return model.NewChatSession(instructions, m.turn), nil
}

func (m *Model) turn(ctx context.Context, req model.TurnRequest) (string, error) {
	resp, err := m.client.Models.GenerateContent(ctx, m.opts.Model, buildContents(req), buildConfig(m.opts, req))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("empty response from Gemini")
	}
	return resp.Text(), nil
}

// buildContents maps the transcript and prompt to Gemini contents. The
// assistant role is called "model" by the API.
func buildContents(req model.TurnRequest) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, t := range req.History {
		role := "user"
		if t.Role == session.RoleAssistant {
			role = "model"
		}
		contents = append(contents, textContent(t.Text, role))
	}
	return append(contents, textContent(req.Prompt, "user"))
}

func textContent(text, role string) *genai.Content {
	return &genai.Content{
		Parts: []*genai.Part{{Text: text}},
		Role:  role,
	}
}

func buildConfig(opts Options, req model.TurnRequest) *genai.GenerateContentConfig {
	maxTokens := opts.MaxOutputTokens
	if req.Options.MaxTokens > 0 {
		maxTokens = int32(req.Options.MaxTokens)
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Options.Temperature)),
		MaxOutputTokens: maxTokens,
	}
	if req.Instructions != "" {
		config.SystemInstruction = textContent(req.Instructions, "user")
	}
	return config
}

// Info returns metadata describing this Gemini model implementation.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: "gemini"}
}
