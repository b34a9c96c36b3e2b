// Package core provides the foundational contracts shared by every other
// AgentKit package:
//
//   - Agent / Composite (the capability set of leaves and composites)
//   - GenerationOptions (configuration threaded to every leaf invocation)
//   - BackendError / ChildError and the session sentinel errors
//   - Walk (depth-first traversal of an agent tree)
//
// The package deliberately holds no implementations of agents, models or
// storage so that higher level packages can depend on it without cycles.
package core
