// Package agent contains the agent implementations of AgentKit: the
// model-backed leaf and the three composites that arrange other agents.
//
//  1. Shared identity / running-flag plumbing (BaseAgent)
//  2. Coordination patterns (SequentialAgent, ParallelAgent, LoopAgent)
//  3. The inference-backed leaf (ModelAgent)
//
// Every agent implements core.Agent, so composites nest to any depth.
// Composites hold no session of their own; they account for, create and
// reclaim the sessions of their descendants. Sequential and Parallel
// composites gate dispatch on a live-session budget: while the subtree is
// over budget they close idle sessions and back off before checking again.
//
// Persistence, model specifics and metrics back-ends live in their
// respective packages to avoid cyclic deps.
package agent
