package agent

import (
	"context"
	"time"

	"github.com/hupe1980/agentkit/internal/clock"
)

const (
	// DefaultMaxSessions is the session budget of a composite subtree.
	DefaultMaxSessions = 8

	// DefaultBackoff is the pause between two session gate checks.
	DefaultBackoff = time.Second
)

// sessionGate blocks dispatch while the owner's subtree holds more live
// sessions than allowed.
type sessionGate struct {
	max     int
	backoff time.Duration
	clock   clock.Clock
}

func newSessionGate(maxSessions int, backoff time.Duration, clk clock.Clock) sessionGate {
	if maxSessions < 0 {
		maxSessions = 0
	}
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	if clk == nil {
		clk = clock.Real()
	}
	return sessionGate{max: maxSessions, backoff: backoff, clock: clk}
}

// wait returns once c.SessionCount() is within budget. Each round reclaims
// idle sessions, then sleeps for the backoff before checking again. It
// returns ctx.Err() if ctx ends first.
func (g sessionGate) wait(ctx context.Context, c *composite) error {
	for {
		n := c.SessionCount()
		if n <= g.max {
			return nil
		}

		c.CloseSession()
		c.logger.Warn("session cap exceeded, backing off", "sessions", n, "max", g.max, "backoff", g.backoff)
		c.metrics.IncGateBackoff(c.name)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-g.clock.After(g.backoff):
		}
	}
}
