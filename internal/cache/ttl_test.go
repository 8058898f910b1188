// internal/cache/ttl_test.go
//
// TTL expiry and LRU pressure behaviour.
package cache

import (
	"testing"
	"time"
)

func TestSetGet(t *testing.T) {
	c := New(4)
	c.Set("a", 1, time.Minute)

	v, ok := c.Get("a")
	if !ok || v.(int) != 1 {
		t.Fatalf("Get(a) = %v, %v; want 1, true", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatal("unknown key reported as hit")
	}
}

func TestExpiry(t *testing.T) {
	c := New(4)
	c.Set("a", 1, 10*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get("a"); ok {
		t.Fatal("expired entry still served")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry not removed on access, len = %d", c.Len())
	}
}

func TestLRUEviction(t *testing.T) {
	c := New(2)
	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)

	// Touch "a" so "b" becomes the LRU victim.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be present")
	}
	c.Set("c", 3, time.Minute)

	if _, ok := c.Get("b"); ok {
		t.Fatal("LRU entry b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("recently used entry a should survive")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatal("new entry c should be present")
	}
}

func TestUpdateDoesNotGrow(t *testing.T) {
	c := New(2)
	c.Set("a", 1, time.Minute)
	c.Set("a", 2, time.Minute)

	if c.Len() != 1 {
		t.Fatalf("len = %d after updating one key, want 1", c.Len())
	}
	v, _ := c.Get("a")
	if v.(int) != 2 {
		t.Fatalf("Get(a) = %v, want updated value 2", v)
	}
}

func TestDelete(t *testing.T) {
	c := New(2)
	c.Set("a", 1, time.Minute)
	c.Delete("a")
	c.Delete("never-existed")

	if _, ok := c.Get("a"); ok {
		t.Fatal("deleted entry still served")
	}
}

func TestNewPanicsOnZeroCapacity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("New(0) should panic")
		}
	}()
	New(0)
}
