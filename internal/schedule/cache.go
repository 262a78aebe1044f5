package schedule

import (
	"log"
	"os"
	"sync"
	"time"
)

// Source serves the parsed event set behind a small cache. The cache is
// refreshed when it is older than the TTL or when the calendar file's mtime
// changes (an admin replaced the upload). On a failed reload the last good
// event set keeps serving and the error is reported alongside it.
type Source struct {
	path string
	ttl  time.Duration

	mu         sync.Mutex
	events     []Event
	computedAt time.Time
	mtime      time.Time
	loaded     bool
}

// NewSource creates a cached event source for the calendar at path.
func NewSource(path string, ttl time.Duration) *Source {
	return &Source{path: path, ttl: ttl}
}

// Events returns the current event set, reloading if the cache is stale.
func (s *Source) Events(now time.Time) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mtime := s.fileMTime()
	if s.loaded && now.Sub(s.computedAt) < s.ttl && mtime.Equal(s.mtime) {
		return s.events, nil
	}

	events, err := LoadICS(s.path)
	if err != nil {
		log.Printf("Error reloading schedule %s: %v", s.path, err)
		return s.events, err
	}

	s.events = events
	s.computedAt = now
	s.mtime = mtime
	s.loaded = true
	return s.events, nil
}

// Resolve loads (or reuses) the event set and resolves the signal for now.
// A reload failure degrades to the last good set rather than failing the
// caller.
func (s *Source) Resolve(now time.Time) Signal {
	events, err := s.Events(now)
	if err != nil {
		log.Printf("Warning: schedule resolution using stale events: %v", err)
	}
	return Resolve(events, now)
}

func (s *Source) fileMTime() time.Time {
	info, err := os.Stat(s.path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
