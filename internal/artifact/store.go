// Package artifact provides the ephemeral in-process store that hands a
// generated CSV artifact from the harvest pipeline to a later download
// request.
package artifact

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/scholarcsv/scholar-harvest-service/internal/domain"
)

const (
	// DefaultTTL is how long an artifact remains retrievable after it is
	// stored. Entries are evicted afterwards; the retention window is
	// deliberately explicit rather than tied to the process lifetime.
	DefaultTTL = time.Hour

	// DefaultSweepInterval is how often the janitor scans for expired entries.
	DefaultSweepInterval = time.Minute
)

// entry is one stored artifact. Entries are written once and never mutated.
type entry struct {
	content  string
	storedAt time.Time
}

// Store maps derived filenames to CSV text. It is the only state shared
// across harvest runs; filenames embed the query slug and harvest date, so
// each run writes its own key. Readers never observe a partially written
// entry because inserts happen under the write lock.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry

	ttl    time.Duration
	stop   chan struct{}
	done   chan struct{}
	logger zerolog.Logger

	now func() time.Time
}

// NewStore creates a store with the given retention TTL and starts the
// eviction janitor. Close must be called to stop the janitor.
// Zero values select DefaultTTL and DefaultSweepInterval.
func NewStore(ttl, sweepInterval time.Duration, logger zerolog.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}

	s := &Store{
		entries: make(map[string]entry),
		ttl:     ttl,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		logger:  logger.With().Str("component", "artifact-store").Logger(),
		now:     time.Now,
	}

	go s.janitor(sweepInterval)
	return s
}

// Put stores the CSV content under the given filename. Storing the same
// filename twice overwrites, which is harmless because filenames embed the
// harvest date and a query slug.
func (s *Store) Put(filename, content string) {
	s.mu.Lock()
	s.entries[filename] = entry{content: content, storedAt: s.now()}
	s.mu.Unlock()

	s.logger.Debug().
		Str("filename", filename).
		Int("bytes", len(content)).
		Msg("artifact stored")
}

// Get returns the CSV content for the filename, or a NotFoundError when the
// key is absent or its retention window has passed. Expired entries are
// reported as missing even before the janitor removes them.
func (s *Store) Get(filename string) (string, error) {
	s.mu.RLock()
	e, ok := s.entries[filename]
	s.mu.RUnlock()

	if !ok || s.now().Sub(e.storedAt) > s.ttl {
		return "", domain.NewNotFoundError("artifact", filename)
	}
	return e.content, nil
}

// Len returns the number of stored entries, including any not yet swept.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the eviction janitor and waits for it to exit.
func (s *Store) Close() {
	close(s.stop)
	<-s.done
}

// janitor periodically removes expired entries.
func (s *Store) janitor(interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep removes every entry whose retention window has passed.
func (s *Store) sweep() {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	removed := 0
	for name, e := range s.entries {
		if e.storedAt.Before(cutoff) {
			delete(s.entries, name)
			removed++
		}
	}
	s.mu.Unlock()

	if removed > 0 {
		s.logger.Debug().Int("removed", removed).Msg("expired artifacts evicted")
	}
}
