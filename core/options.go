package core

// GenerationOptions configures a single generation call. The same value is
// passed unchanged through every level of composition down to each leaf.
type GenerationOptions struct {
	// Temperature controls sampling randomness.
	Temperature float64 `json:"temperature" yaml:"temperature"`
	// MaxTokens caps the response length. 0 leaves the backend default.
	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

// DefaultGenerationOptions returns deterministic defaults (temperature 0).
func DefaultGenerationOptions() GenerationOptions {
	return GenerationOptions{Temperature: 0}
}
