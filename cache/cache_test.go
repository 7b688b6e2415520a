package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCacheGetAfterSetWithinTTL(t *testing.T) {
	c := New[int](50*time.Millisecond, 10, 0)
	c.Set("a", 42)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestTTLCacheExpiry(t *testing.T) {
	c := New[int](10*time.Millisecond, 10, 0)
	c.Set("a", 1)
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("a")
	assert.False(t, ok, "entry must not be served past its expiresAt")
}

func TestTTLCacheEvictsOldestAtCapacity(t *testing.T) {
	c := New[int](time.Hour, 2, 0)
	c.Set("a", 1)
	time.Sleep(time.Millisecond)
	c.Set("b", 2)
	time.Sleep(time.Millisecond)
	c.Set("c", 3)

	size, _ := c.Stats(10)
	assert.Equal(t, 2, size)
	_, ok := c.Get("a")
	assert.False(t, ok, "oldest entry should have been evicted")
}

func TestNormalizeURLIdenticalOnReadAndWrite(t *testing.T) {
	a := NormalizeURL("https://example.com/path/?q=1")
	b := NormalizeURL("https://example.com/path?q=1")
	assert.Equal(t, a, b)
}

func TestNormalizeURLFallsBackOnParseFailure(t *testing.T) {
	raw := "://not a url"
	assert.Equal(t, raw, NormalizeURL(raw))
}
