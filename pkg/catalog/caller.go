package catalog

import (
	"context"

	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/retry"
	"go.uber.org/zap"
)

// DefaultMaxRateLimitRetries is how many times a throttled call is repeated
// before it is given up.
const DefaultMaxRateLimitRetries = 5

// Caller runs catalog calls. Transient failures are retried under Transient;
// rate limits wait out the server's Retry-After on the shared cooldown and
// are counted separately, against MaxRateLimitRetries.
type Caller struct {
	Transient           retry.Policy
	MaxRateLimitRetries int
	Cooldown            *retry.Cooldown
	Clock               retry.Clock
	Log                 *zap.Logger
}

func (c *Caller) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return c.Transient.Do(ctx, c.Clock, IsTransient, func(ctx context.Context) error {
		return c.throttled(ctx, fn)
	})
}

func (c *Caller) throttled(ctx context.Context, fn func(ctx context.Context) error) error {
	for retries := 0; ; retries++ {
		if err := c.Cooldown.Wait(ctx); err != nil {
			return err
		}

		err := fn(ctx)
		rl, ok := AsRateLimit(err)
		if !ok || retries >= c.MaxRateLimitRetries {
			return err
		}

		c.Log.Warn("rate limited by catalog, backing off",
			zap.Duration("retry_after", rl.RetryAfter),
			zap.Int("retry", retries+1),
			zap.Int("max_retries", c.MaxRateLimitRetries))
		c.Cooldown.Extend(rl.RetryAfter)
	}
}

// Once waits out any shared cooldown and calls fn exactly once. It is used
// for calls that must not be repeated, such as creating a playlist.
func (c *Caller) Once(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := c.Cooldown.Wait(ctx); err != nil {
		return err
	}
	return fn(ctx)
}
