package infra

import (
	"context"
	"sync"
	"testing"
	"time"

	"waitlist-service/middleware/ratelimit/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestWindowStore_SixthAttemptDenied(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := NewWindowStore(5, time.Hour, WithWindowClock(clock.Now))
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		dec, err := s.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		require.Truef(t, dec.Allowed, "attempt %d should be allowed", i)
		assert.Equal(t, 5-i, dec.Remaining)
	}

	dec, err := s.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, dec.Allowed, "6th attempt within the window must be denied")
	assert.Equal(t, clock.Now().Add(time.Hour), dec.ResetAt)

	// outra chave tem janela própria
	dec, err = s.Allow(ctx, "5.6.7.8")
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
}

func TestWindowStore_DeniedAttemptsDoNotExtendWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := NewWindowStore(1, time.Hour, WithWindowClock(clock.Now))
	ctx := context.Background()

	first, _ := s.Allow(ctx, "k")
	require.True(t, first.Allowed)

	clock.Advance(30 * time.Minute)
	denied, _ := s.Allow(ctx, "k")
	require.False(t, denied.Allowed)
	assert.Equal(t, first.ResetAt, denied.ResetAt)
}

func TestWindowStore_ResetsAfterWindowExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := NewWindowStore(5, time.Hour, WithWindowClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, _ = s.Allow(ctx, domain.Key("k"))
	}

	clock.Advance(time.Hour + time.Millisecond)
	dec, err := s.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, dec.Allowed, "counter should reset after the window expires")
	assert.Equal(t, 4, dec.Remaining)
}

func TestWindowStore_CleanupRemovesExpiredWindows(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := NewWindowStore(5, time.Minute, WithWindowClock(clock.Now), WithWindowCleanupEvery(0))
	ctx := context.Background()

	_, _ = s.Allow(ctx, "a")
	clock.Advance(30 * time.Second)
	_, _ = s.Allow(ctx, "b")
	clock.Advance(45 * time.Second)

	s.Cleanup()
	assert.Equal(t, 1, s.Len(), "only the window for b is still open")
}

func TestWindowStore_ConcurrentAttemptsNeverExceedLimit(t *testing.T) {
	s := NewWindowStore(5, time.Hour)
	ctx := context.Background()

	var mu sync.Mutex
	allowed := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dec, _ := s.Allow(ctx, "k")
			if dec.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 5, allowed)
}
