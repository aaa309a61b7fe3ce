package embedding

import "testing"

func TestEmbedCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newEmbedCache(2)
	if _, ok := c.Get("email input"); ok {
		t.Fatal("expected a miss on an empty cache")
	}

	c.Set("email input", []float32{1, 0})
	c.Set("password input", []float32{0, 1})

	// Touch the first entry so the second becomes the eviction candidate.
	if v, ok := c.Get("email input"); !ok || v[0] != 1 {
		t.Fatalf("Get(email input) = %v, %v", v, ok)
	}

	c.Set("submit button", []float32{1, 1})
	if _, ok := c.Get("password input"); ok {
		t.Error("least recently used entry should have been evicted")
	}
	if _, ok := c.Get("email input"); !ok {
		t.Error("recently used entry should survive eviction")
	}
	if _, ok := c.Get("submit button"); !ok {
		t.Error("newest entry should be present")
	}
}

func TestEmbedCache_SetReplacesExisting(t *testing.T) {
	c := newEmbedCache(2)
	c.Set("email input", []float32{1})
	c.Set("email input", []float32{2})
	v, ok := c.Get("email input")
	if !ok || v[0] != 2 {
		t.Errorf("Get after replace = %v, %v, want [2]", v, ok)
	}
}
