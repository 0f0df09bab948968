package retry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return ctx.Err()
}

var errFlaky = errors.New("flaky")

func isFlaky(err error) bool { return errors.Is(err, errFlaky) }

func TestPolicyDoRetriesUntilSuccess(t *testing.T) {
	clock := &fakeClock{}
	calls := 0

	err := Fixed(5, 2*time.Second).Do(context.Background(), clock, isFlaky, func(context.Context) error {
		calls++
		if calls < 3 {
			return errFlaky
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, clock.sleeps)
}

func TestPolicyDoStopsAfterMaxAttempts(t *testing.T) {
	clock := &fakeClock{}
	calls := 0

	err := Fixed(3, time.Second).Do(context.Background(), clock, isFlaky, func(context.Context) error {
		calls++
		return errFlaky
	})

	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 3, calls)
	assert.Len(t, clock.sleeps, 2)
}

func TestPolicyDoDoesNotRetryPermanentErrors(t *testing.T) {
	clock := &fakeClock{}
	permanent := errors.New("permanent")
	calls := 0

	err := Fixed(5, time.Second).Do(context.Background(), clock, isFlaky, func(context.Context) error {
		calls++
		return permanent
	})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
	assert.Empty(t, clock.sleeps)
}

func TestPolicyDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Fixed(5, time.Second).Do(ctx, &fakeClock{}, isFlaky, func(context.Context) error {
		calls++
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestExponentialBackoff(t *testing.T) {
	p := Exponential(6, 500*time.Millisecond, 3*time.Second)

	assert.Equal(t, 500*time.Millisecond, p.Delay(1))
	assert.Equal(t, time.Second, p.Delay(2))
	assert.Equal(t, 2*time.Second, p.Delay(3))
	assert.Equal(t, 3*time.Second, p.Delay(4))
	assert.Equal(t, 3*time.Second, p.Delay(5))
	assert.Zero(t, Policy{}.Delay(1))
}

func TestCooldown(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	c := NewCooldown(clock)

	require.NoError(t, c.Wait(context.Background()))
	assert.Empty(t, clock.sleeps)

	c.Extend(3 * time.Second)
	c.Extend(time.Second)
	assert.Equal(t, 3*time.Second, c.Remaining())

	require.NoError(t, c.Wait(context.Background()))
	assert.Equal(t, []time.Duration{3 * time.Second}, clock.sleeps)
	assert.Zero(t, c.Remaining())
}

func TestRealClockSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RealClock().Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
