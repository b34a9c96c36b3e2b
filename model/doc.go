// Package model defines the provider‑agnostic inference backend contract
// wrapped by leaf agents, plus helpers shared by concrete providers.
//
// Core goals:
//   - One small Model interface: availability probe, session open, metadata
//   - Stateful Session handles with an explicit busy / closed state machine
//   - ChatSession adapts stateless chat completion APIs by replaying the
//     session transcript on every turn
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (openai, anthropic, gemini) live in sub-packages and implement
// Model so higher layers (agents, config) remain decoupled from vendor SDKs.
package model
