package core

import "context"

// Agent defines the contract every agent in AgentKit implements, whether it is
// a leaf backed by a model session or a composite arranging other agents.
//
// A composite exposes exactly the same contract as a leaf, so trees can be
// nested to arbitrary depth. Implementations must:
//   - Report IsRunning as true strictly while an Ask call is in flight and
//     reset it on every return path (success, short-circuit, or failure)
//   - Never force-close a session whose owner reports itself as running
//   - Compute SessionCount on demand so it always reflects current state
//   - Respect context cancellation on blocking operations
type Agent interface {
	// Name returns the identifier used in logs. It never drives routing.
	Name() string

	// Description returns a human-readable summary of the agent's purpose.
	Description() string

	// IsRunning reports whether an Ask call is currently in flight.
	IsRunning() bool

	// IsAvailable reports whether the agent (and, for composites, every
	// descendant) can currently serve a request.
	IsAvailable(ctx context.Context) bool

	// CreateSession idempotently ensures the underlying session(s) exist.
	CreateSession(ctx context.Context) error

	// CloseSession idempotently releases sessions that are not in use.
	// Busy sessions are skipped, never interrupted.
	CloseSession()

	// SessionCount returns the number of live backend sessions held by the
	// agent or, for composites, by all of its descendants.
	SessionCount() int

	// Ask runs the agent on input and returns its responses. An empty result
	// without an error is a valid outcome (unavailable backend, a pipeline
	// stage that produced nothing, zero iterations or zero sub-agents).
	Ask(ctx context.Context, input string, opts GenerationOptions) ([]string, error)
}

// Composite is implemented by agents that arrange other agents. The returned
// slice is fixed at construction time.
type Composite interface {
	Agent
	SubAgents() []Agent
}

// Walk performs a depth-first, pre-order traversal of the tree rooted at a.
// depth is 0 for the root. Returning false from fn skips the visited agent's
// subtree.
func Walk(a Agent, fn func(a Agent, depth int) bool) {
	walk(a, 0, fn)
}

func walk(a Agent, depth int, fn func(Agent, int) bool) {
	if a == nil || !fn(a, depth) {
		return
	}

	c, ok := a.(Composite)
	if !ok {
		return
	}

	for _, child := range c.SubAgents() {
		walk(child, depth+1, fn)
	}
}

// CountLeaves returns the number of non-composite agents in the tree.
func CountLeaves(a Agent) int {
	n := 0
	Walk(a, func(a Agent, _ int) bool {
		if _, ok := a.(Composite); !ok {
			n++
		}
		return true
	})
	return n
}
