package cache

import (
	"testing"
	"time"
)

func TestLRUBasic(t *testing.T) {
	c := NewLRUCache[string, int](Config{MaxSize: 2})

	if _, ok := c.Get("a"); ok {
		t.Error("empty cache should miss")
	}

	c.Put("a", 1)
	c.Put("b", 2)

	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v", v, ok)
	}

	// "b" is now least recently used; inserting "c" evicts it.
	c.Put("c", 3)
	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should survive eviction")
	}

	stats := c.Stats()
	if stats.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", stats.Evictions)
	}
	if stats.Size != 2 {
		t.Errorf("Size = %d, want 2", stats.Size)
	}
}

func TestLRUUpdate(t *testing.T) {
	c := NewLRUCache[string, int](Config{MaxSize: 2})
	c.Put("a", 1)
	c.Put("a", 10)
	if v, _ := c.Get("a"); v != 10 {
		t.Errorf("Get after update = %d, want 10", v)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestLRURemoveAndClear(t *testing.T) {
	c := NewLRUCache[string, int](Config{MaxSize: 10})
	c.Put("a", 1)
	c.Put("b", 2)

	c.Remove("a")
	if _, ok := c.Get("a"); ok {
		t.Error("removed entry should miss")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", c.Len())
	}
}

func TestLRUTTL(t *testing.T) {
	c := NewLRUCache[string, int](Config{MaxSize: 10, TTL: time.Millisecond})
	c.Put("a", 1)
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get("a"); ok {
		t.Error("expired entry should miss")
	}
}

func TestScoreCache(t *testing.T) {
	c := NewDefaultScoreCache()
	c.Put("hash1", 0.5)

	if v, ok := c.Get("hash1"); !ok || v != 0.5 {
		t.Errorf("Get = %v, %v", v, ok)
	}
	if _, ok := c.Get("hash2"); ok {
		t.Error("unknown hash should miss")
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
	if c.Stats().Hits != 1 || c.Stats().Misses != 1 {
		t.Errorf("Stats = %+v", c.Stats())
	}
}
