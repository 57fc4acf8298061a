package tiles

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// maxCacheErrors is the consecutive write failure count after which the
// store reports itself unusable (when configured to do so).
const maxCacheErrors = 5

// Store is the on-disk tile cache.
//
// Tiles are stored as individual files named
// {provider}_{zoom}_{x}_{y}.png and expire by file modification time.
// Distinct keys may be read and written concurrently; the only shared
// state is the consecutive error counter.
type Store struct {
	dir string
	ttl time.Duration

	// disableOnError makes Disabled() report true after maxCacheErrors
	// consecutive write failures
	disableOnError bool

	mu       sync.Mutex
	errCount int
}

// NewStore opens a tile cache rooted at dir. An empty dir selects a
// directory under the user cache dir. The directory is probed for write
// access at startup; if it is not writable the store falls back to a
// directory under the system temp dir so tile fetching keeps working on
// read-only installs.
func NewStore(dir string, ttl time.Duration, disableOnError bool) (*Store, error) {
	if dir == "" {
		if userCache, err := os.UserCacheDir(); err == nil {
			dir = filepath.Join(userCache, "skygrid", "map_tiles")
		} else {
			dir = filepath.Join(os.TempDir(), "skygrid_map_tiles")
		}
	}

	if err := probeWritable(dir); err != nil {
		// Fall back to the system temp dir
		fallback := filepath.Join(os.TempDir(), "skygrid_map_tiles")
		if fbErr := probeWritable(fallback); fbErr != nil {
			return nil, fmt.Errorf("tile cache unusable: %s: %v; fallback %s: %w", dir, err, fallback, fbErr)
		}
		dir = fallback
	}

	return &Store{
		dir:            dir,
		ttl:            ttl,
		disableOnError: disableOnError,
	}, nil
}

// probeWritable creates dir and verifies a file can be written in it.
func probeWritable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	probe := filepath.Join(dir, ".writetest")
	if err := os.WriteFile(probe, []byte("test"), 0644); err != nil {
		return err
	}
	return os.Remove(probe)
}

// Dir returns the resolved cache directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the cache file path for a tile.
func (s *Store) Path(provider string, x, y, zoom int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%d_%d_%d.png", provider, zoom, x, y))
}

// Get returns the cached tile bytes if present and not expired.
func (s *Store) Get(provider string, x, y, zoom int) ([]byte, bool) {
	path := s.Path(provider, x, y, zoom)

	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	if time.Since(info.ModTime()) >= s.ttl {
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Put persists a tile. A successful write resets the consecutive error
// counter; a failure increments it. Callers keep serving the in-memory
// bytes either way, so a Put failure is reported but not fatal.
func (s *Store) Put(provider string, x, y, zoom int, data []byte) error {
	path := s.Path(provider, x, y, zoom)

	err := os.WriteFile(path, data, 0644)

	s.mu.Lock()
	if err != nil {
		s.errCount++
	} else {
		s.errCount = 0
	}
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to cache tile: %w", err)
	}
	return nil
}

// ErrorCount returns the current consecutive write failure count.
func (s *Store) ErrorCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errCount
}

// Disabled reports whether repeated cache failures have crossed the
// disable threshold. Always false unless disable-on-error is configured.
func (s *Store) Disabled() bool {
	if !s.disableOnError {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errCount >= maxCacheErrors
}
