// Package runner implements the invocation layer for AgentKit.
//
// The Runner sits between an application and the root of an agent tree. It
// does not change what the tree computes; it decides when and how often the
// tree is asked.
//
// # Responsibilities (abridged)
//   - Invocation orchestration (async Start + sync Run)
//   - Concurrency limiting via a weighted semaphore
//   - Invocation lifecycle management & cancellation
//   - Optional upfront availability check and post-run session reclamation
//   - Live session reporting to a metrics.Recorder
//
// The runner adds no retries; backend failures reach the caller unchanged.
package runner
