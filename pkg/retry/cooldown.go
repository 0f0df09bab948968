package retry

import (
	"context"
	"sync"
	"time"
)

// Cooldown is a pause shared by everything that talks to one rate-limited
// account. A throttled caller extends it; every caller waits it out before
// the next request.
type Cooldown struct {
	clock Clock
	mu    sync.Mutex
	until time.Time
}

func NewCooldown(clock Clock) *Cooldown {
	return &Cooldown{clock: clock}
}

// Extend pushes the end of the pause to at least now+d.
func (c *Cooldown) Extend(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if until := c.clock.Now().Add(d); until.After(c.until) {
		c.until = until
	}
}

// Remaining is how long callers still have to wait.
func (c *Cooldown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d := c.until.Sub(c.clock.Now()); d > 0 {
		return d
	}
	return 0
}

// Wait blocks until the pause is over or ctx is done.
func (c *Cooldown) Wait(ctx context.Context) error {
	for {
		d := c.Remaining()
		if d <= 0 {
			return ctx.Err()
		}
		if err := c.clock.Sleep(ctx, d); err != nil {
			return err
		}
	}
}
