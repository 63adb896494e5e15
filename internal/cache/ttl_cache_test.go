package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCache_Expiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTTLCacheWithClock[string, int](func() time.Time { return now })

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, 0)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	v, ok = c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestTTLCache_NilSafe(t *testing.T) {
	var c *TTLCache[string, int]
	c.Set("a", 1, time.Minute)
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestNoopCache(t *testing.T) {
	var c Cache[string, int] = NoopCache[string, int]{}
	c.Set("a", 1, time.Minute)
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "org|item-1", Key(" ORG ", "", "Item-1"))
}
