package tiles

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestStoreRoundTrip tests basic put/get behavior and file naming.
func TestStoreRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir(), time.Hour, false)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	data := []byte("tile-bytes")
	if err := store.Put("osm", 554, 858, 11, data); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok := store.Get("osm", 554, 858, 11)
	if !ok {
		t.Fatal("Expected cache hit")
	}
	if string(got) != "tile-bytes" {
		t.Errorf("Unexpected cached data: %q", got)
	}

	// File name encodes provider, zoom, x, y
	expected := filepath.Join(store.Dir(), "osm_11_554_858.png")
	if _, err := os.Stat(expected); err != nil {
		t.Errorf("Expected cache file %s: %v", expected, err)
	}

	// Different provider is a miss
	if _, ok := store.Get("carto", 554, 858, 11); ok {
		t.Error("Expected miss for different provider")
	}
}

// TestStoreTTL tests that expired tiles are treated as misses.
func TestStoreTTL(t *testing.T) {
	store, err := NewStore(t.TempDir(), 50*time.Millisecond, false)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := store.Put("osm", 1, 2, 3, []byte("x")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, ok := store.Get("osm", 1, 2, 3); !ok {
		t.Fatal("Expected fresh tile to hit")
	}

	time.Sleep(80 * time.Millisecond)
	if _, ok := store.Get("osm", 1, 2, 3); ok {
		t.Error("Expected expired tile to miss")
	}
}

// TestStoreFallbackDir tests fallback to the temp dir when the
// requested cache directory is unusable.
func TestStoreFallbackDir(t *testing.T) {
	// A path under /dev/null can never be created
	store, err := NewStore("/dev/null/tiles", time.Hour, false)
	if err != nil {
		t.Fatalf("Expected temp dir fallback, got error: %v", err)
	}
	if store.Dir() == "/dev/null/tiles" {
		t.Error("Expected store to fall back to a different directory")
	}
	if err := store.Put("osm", 1, 1, 1, []byte("x")); err != nil {
		t.Errorf("Expected fallback dir to be writable: %v", err)
	}
}

// TestStoreErrorCounter tests the consecutive error counter and the
// disable threshold.
func TestStoreErrorCounter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	store, err := NewStore(dir, time.Hour, true)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	// Break the cache directory: replace it with a regular file so
	// writes fail
	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("Failed to remove dir: %v", err)
	}
	if err := os.WriteFile(dir, []byte(""), 0644); err != nil {
		t.Fatalf("Failed to create blocking file: %v", err)
	}

	for i := 0; i < maxCacheErrors; i++ {
		if store.Disabled() {
			t.Fatalf("Store disabled after only %d errors", i)
		}
		if err := store.Put("osm", i, 0, 0, []byte("x")); err == nil {
			t.Fatal("Expected Put to fail with broken directory")
		}
	}

	if !store.Disabled() {
		t.Errorf("Expected store disabled after %d consecutive errors, count=%d", maxCacheErrors, store.ErrorCount())
	}

	// Restore the directory: one successful write resets the counter
	if err := os.Remove(dir); err != nil {
		t.Fatalf("Failed to remove blocking file: %v", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to recreate dir: %v", err)
	}
	if err := store.Put("osm", 0, 0, 0, []byte("x")); err != nil {
		t.Fatalf("Expected Put to succeed after restore: %v", err)
	}
	if store.Disabled() {
		t.Error("Expected successful write to reset the error counter")
	}
}

// TestStoreDisableRequiresOptIn tests that errors alone never disable
// the store unless configured.
func TestStoreDisableRequiresOptIn(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	store, err := NewStore(dir, time.Hour, false)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	os.RemoveAll(dir)
	os.WriteFile(dir, []byte(""), 0644)

	for i := 0; i < maxCacheErrors+2; i++ {
		store.Put("osm", i, 0, 0, []byte("x"))
	}
	if store.Disabled() {
		t.Error("Expected store to stay enabled without disable_on_cache_error")
	}
}
