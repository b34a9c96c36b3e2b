// Package logging provides a minimal logging interface and adapters for AgentKit.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that agents and the runner use for lifecycle events. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging (json, text or tint console output)
//   - With for attaching per-agent attributes
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "console", false)
//	leaf := agent.NewModelAgent("extract", llm, func(o *agent.ModelAgentOptions) { o.Logger = logger })
//
// The design intentionally keeps the interface minimal to avoid vendor lock-in
// while supporting structured logging where available.
package logging
