package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetSet(t *testing.T) {
	c := New(time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("stats", map[string]int{"pools": 3})
	v, ok := c.Get("stats")
	assert.True(t, ok)
	assert.Equal(t, map[string]int{"pools": 3}, v)
}

func TestExpiredEntryIsMissAndEvicted(t *testing.T) {
	c := New(time.Minute)
	base := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return base }

	c.Set("quote", "cached")
	assert.Equal(t, 1, c.Len())

	c.now = func() time.Time { return base.Add(2 * time.Minute) }

	_, ok := c.Get("quote")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry evicted on read")
}

func TestSetWithTTL(t *testing.T) {
	c := New(time.Minute)
	base := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return base }

	c.SetWithTTL("short", 1, time.Second)
	c.SetWithTTL("long", 2, time.Hour)

	c.now = func() time.Time { return base.Add(time.Minute) }

	_, ok := c.Get("short")
	assert.False(t, ok)

	v, ok := c.Get("long")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestSetOverwritesAndRefreshes(t *testing.T) {
	c := New(time.Minute)
	base := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return base }

	c.Set("k", "old")
	c.now = func() time.Time { return base.Add(50 * time.Second) }
	c.Set("k", "new")

	c.now = func() time.Time { return base.Add(100 * time.Second) }
	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "new", v)
}
