package cache

import (
	"sync"
	"testing"
	"time"

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
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestTTLCache_Expiry(t *testing.T) {
	clock := newClock()
	c, err := New[string, string](10, 5*time.Minute, WithClock(clock.Now))
	require.NoError(t, err)

	c.Set("k", "v")
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)

	clock.Advance(4*time.Minute + 59*time.Second)
	_, ok = c.Get("k")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestTTLCache_SetWithTTL(t *testing.T) {
	clock := newClock()
	c, err := New[string, int](10, time.Hour, WithClock(clock.Now))
	require.NoError(t, err)

	c.SetWithTTL("short", 1, time.Second)
	c.Set("long", 2)
	clock.Advance(2 * time.Second)

	_, ok := c.Get("short")
	assert.False(t, ok)
	v, ok := c.Get("long")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	c.SetWithTTL("long", 3, 0)
	_, ok = c.Get("long")
	assert.False(t, ok)
}

func TestTTLCache_BoundedSize(t *testing.T) {
	c, err := New[int, int](2, time.Hour)
	require.NoError(t, err)

	c.Set(1, 1)
	c.Set(2, 2)
	_, _ = c.Get(1)
	c.Set(3, 3)

	_, ok := c.Get(2)
	assert.False(t, ok, "least recently used entry evicted")
	_, ok = c.Get(1)
	assert.True(t, ok)
	_, ok = c.Get(3)
	assert.True(t, ok)
}

func TestTTLCache_DeleteAndPurge(t *testing.T) {
	c, err := New[string, string](10, time.Hour)
	require.NoError(t, err)

	c.Set("a", "1")
	c.Set("b", "2")
	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestTTLCache_PurgeExpired(t *testing.T) {
	clock := newClock()
	c, err := New[string, string](10, time.Minute, WithClock(clock.Now))
	require.NoError(t, err)

	c.Set("old", "x")
	clock.Advance(30 * time.Second)
	c.Set("new", "y")
	clock.Advance(45 * time.Second)

	assert.Equal(t, 1, c.PurgeExpired())
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("new")
	assert.True(t, ok)
}

func TestNew_InvalidSize(t *testing.T) {
	_, err := New[string, string](0, time.Minute)
	require.Error(t, err)
}

func TestSweeper(t *testing.T) {
	clock := newClock()
	c, err := New[string, string](10, time.Minute, WithClock(clock.Now))
	require.NoError(t, err)
	c.Set("a", "1")

	s := NewSweeper(nil)
	require.NoError(t, s.Register("secrets", "@every 1m", c))
	require.Error(t, s.Register("bad", "not a schedule", c))

	clock.Advance(2 * time.Minute)
	s.SweepAll()
	assert.Equal(t, 0, c.Len())

	s.Start()
	s.Stop()
}
