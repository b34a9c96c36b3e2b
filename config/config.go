package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agentkit/core"
	"github.com/hupe1980/agentkit/internal/util"
)

// Agent types.
const (
	TypeModel      = "model"
	TypeSequential = "sequential"
	TypeParallel   = "parallel"
	TypeLoop       = "loop"
)

// Provider types.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderMock      = "mock"
)

// Config is a pipeline definition: backend providers plus one agent tree.
type Config struct {
	Defaults  Defaults                  `yaml:"defaults"`
	Providers map[string]ProviderConfig `yaml:"providers"`
	Pipeline  AgentConfig               `yaml:"pipeline"`
}

// Defaults apply wherever an agent does not set its own value.
type Defaults struct {
	Temperature float64  `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens,omitempty"`
	MaxSessions *int     `yaml:"max_sessions,omitempty"`
	Backoff     Duration `yaml:"backoff,omitempty"`
}

// ProviderConfig describes one inference backend.
type ProviderConfig struct {
	Type      string `yaml:"type"`
	Model     string `yaml:"model,omitempty"`
	APIKey    string `yaml:"api_key,omitempty"`
	BaseURL   string `yaml:"base_url,omitempty"`
	MaxTokens int    `yaml:"max_tokens,omitempty"`
	// Responses are canned prompt → completion pairs for the mock provider.
	Responses map[string]string `yaml:"responses,omitempty"`
}

// AgentConfig describes one node of the agent tree.
type AgentConfig struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Description string `yaml:"description,omitempty"`

	// model agents
	Provider     string         `yaml:"provider,omitempty"`
	Instructions string         `yaml:"instructions,omitempty"`
	Vars         map[string]any `yaml:"vars,omitempty"`

	// composites
	MaxSessions *int     `yaml:"max_sessions,omitempty"`
	Backoff     Duration `yaml:"backoff,omitempty"`
	Timeout     Duration `yaml:"timeout,omitempty"`
	MaxIters    *int     `yaml:"max_iters,omitempty"`
	Interval    Duration `yaml:"interval,omitempty"`

	Agents []AgentConfig `yaml:"agents,omitempty"`
}

// IsComposite reports whether the node arranges other agents.
func (a *AgentConfig) IsComposite() bool {
	switch a.Type {
	case TypeSequential, TypeParallel, TypeLoop:
		return true
	}
	return false
}

// Load reads, expands and parses the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return Parse(data)
}

// Parse expands environment references in data and decodes it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(ExpandEnvVars(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.SetDefaults()

	return &cfg, nil
}

// SetDefaults fills in implied values: a node with a provider and no type
// is a model agent, a provider without an API key uses the conventional
// environment variable.
func (c *Config) SetDefaults() {
	for name, p := range c.Providers {
		if p.APIKey == "" {
			p.APIKey = ProviderAPIKey(p.Type)
		}
		if p.MaxTokens == 0 {
			p.MaxTokens = c.Defaults.MaxTokens
		}
		c.Providers[name] = p
	}

	setAgentDefaults(&c.Pipeline)
}

func setAgentDefaults(a *AgentConfig) {
	if a.Type == "" && a.Provider != "" {
		a.Type = TypeModel
	}
	for i := range a.Agents {
		setAgentDefaults(&a.Agents[i])
	}
}

// GenerationOptions returns the options every leaf receives.
func (c *Config) GenerationOptions() core.GenerationOptions {
	return core.GenerationOptions{
		Temperature: c.Defaults.Temperature,
		MaxTokens:   c.Defaults.MaxTokens,
	}
}

// Validate reports every problem found in the configuration.
func (c *Config) Validate() error {
	var errs []error

	if c.Defaults.MaxSessions != nil && *c.Defaults.MaxSessions < 0 {
		errs = append(errs, errors.New("defaults: max_sessions must not be negative"))
	}

	for name, p := range c.Providers {
		switch p.Type {
		case ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderMock:
		default:
			errs = append(errs, fmt.Errorf("provider %q: unknown type %q", name, p.Type))
		}
	}

	seen := make(map[string]bool)
	c.validateAgent(&c.Pipeline, "pipeline", seen, &errs)

	return errors.Join(errs...)
}

func (c *Config) validateAgent(a *AgentConfig, path string, seen map[string]bool, errs *[]error) {
	if a.Name != "" {
		path = a.Name
		if seen[a.Name] {
			*errs = append(*errs, fmt.Errorf("agent %q: duplicate name", a.Name))
		}
		seen[a.Name] = true
	}

	switch {
	case a.Type == TypeModel:
		if a.Provider == "" {
			*errs = append(*errs, fmt.Errorf("agent %q: model agent requires a provider", path))
		} else if _, ok := c.Providers[a.Provider]; !ok {
			*errs = append(*errs, fmt.Errorf("agent %q: unknown provider %q", path, a.Provider))
		}
		if len(a.Agents) > 0 {
			*errs = append(*errs, fmt.Errorf("agent %q: model agent cannot have sub-agents", path))
		}
		if _, err := util.ParseTemplate(a.Instructions); err != nil {
			*errs = append(*errs, fmt.Errorf("agent %q: invalid instructions: %w", path, err))
		}
	case a.IsComposite():
		if a.Provider != "" {
			*errs = append(*errs, fmt.Errorf("agent %q: %s agent cannot have a provider", path, a.Type))
		}
		if a.MaxSessions != nil && *a.MaxSessions < 0 {
			*errs = append(*errs, fmt.Errorf("agent %q: max_sessions must not be negative", path))
		}
		if a.MaxIters != nil && *a.MaxIters < 0 {
			*errs = append(*errs, fmt.Errorf("agent %q: max_iters must not be negative", path))
		}
	case a.Type == "":
		*errs = append(*errs, fmt.Errorf("agent %q: missing type", path))
	default:
		*errs = append(*errs, fmt.Errorf("agent %q: unknown type %q", path, a.Type))
	}

	for i := range a.Agents {
		c.validateAgent(&a.Agents[i], fmt.Sprintf("%s.agents[%d]", path, i), seen, errs)
	}
}
