package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(maxSize int, ttl time.Duration) (*LRUCache[bool], *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := NewLRUCache[bool](maxSize, ttl)
	c.now = clock.now
	return c, clock
}

func TestLRUCache_GetSet(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)

	_, ok := c.Get("family:1:user:2")
	assert.False(t, ok)

	c.Set("family:1:user:2", true)
	v, ok := c.Get("family:1:user:2")
	assert.True(t, ok)
	assert.True(t, v)

	c.Set("family:1:user:2", false)
	v, _ = c.Get("family:1:user:2")
	assert.False(t, v)
	assert.Equal(t, 1, c.Size())
}

func TestLRUCache_Expiry(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)
	c.Set("a", true)
	c.Set("b", true)

	clock.advance(30 * time.Second)
	c.Set("c", true)

	clock.advance(45 * time.Second)
	_, ok := c.Get("a")
	assert.False(t, ok, "a expired")
	assert.Equal(t, 1, c.CleanExpired(), "only b is left to clean")

	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(2, time.Hour)
	c.Set("a", true)
	c.Set("b", true)
	c.Get("a")
	c.Set("c", true)

	_, okA := c.Get("a")
	_, okB := c.Get("b")
	assert.True(t, okA)
	assert.False(t, okB)
	assert.Equal(t, 2, c.Size())
}

func TestLRUCache_DeletePrefix(t *testing.T) {
	c, _ := newTestCache(10, time.Hour)
	c.Set("family:1:user:1", true)
	c.Set("family:1:user:2", true)
	c.Set("family:10:user:1", true)

	assert.Equal(t, 2, c.DeletePrefix("family:1:"))
	_, ok := c.Get("family:10:user:1")
	assert.True(t, ok)

	c.Delete("family:10:user:1")
	assert.Equal(t, 0, c.Size())
}

func TestJanitor(t *testing.T) {
	c, clock := newTestCache(10, time.Millisecond)
	c.Set("a", true)
	clock.advance(time.Second)

	j := NewJanitor(c)
	j.Start(5 * time.Millisecond)
	assert.Eventually(t, func() bool { return c.Size() == 0 }, time.Second, 5*time.Millisecond)
	j.Stop()
}
