package util

import (
	"strings"

	"github.com/google/uuid"
)

// NewID generates a new unique identifier (UUID v4).
func NewID() string { return uuid.NewString() }

// NewAgentName returns a lowercased UUID used when an agent is constructed
// without a name.
func NewAgentName() string { return strings.ToLower(uuid.NewString()) }
