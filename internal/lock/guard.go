// Package lock provides cross-process advisory mutual exclusion for the
// shared-state stores. The prober, the claim evaluator, and the HTTP server
// may run as separate processes against the same database, so in-process
// mutexes are not enough; every read-modify-write span over shared state
// acquires the relevant named key for its full duration.
package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// ErrLockTimeout is returned when a key cannot be acquired within the
// configured bound. Callers must fail rather than stack up behind a holder.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// Well-known lock keys. Queue keys are per station type via QueueKey.
const (
	KeyOccupancy = "occupancy"
	KeyOverrides = "overrides"
	KeyClaims    = "claims"
	KeySchedule  = "schedule"
)

// QueueKey returns the lock key scoping one station type's queue.
func QueueKey(stationType string) string {
	return "queue-" + stationType
}

const retryDelay = 50 * time.Millisecond

// Guard hands out scoped, bounded-wait advisory locks backed by lock files.
type Guard struct {
	dir     string
	timeout time.Duration
}

// NewGuard creates a guard writing its lock files under dir.
func NewGuard(dir string, timeout time.Duration) (*Guard, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock dir %s: %w", dir, err)
	}
	return &Guard{dir: dir, timeout: timeout}, nil
}

// Do runs fn while holding every given key, acquired in argument order and
// released in reverse. Callers that need multiple keys must pass them in one
// call with a globally consistent order; nested Do calls on the same key
// deadlock by design of advisory file locks.
func (g *Guard) Do(ctx context.Context, fn func() error, keys ...string) error {
	locks := make([]*flock.Flock, 0, len(keys))
	defer func() {
		for i := len(locks) - 1; i >= 0; i-- {
			locks[i].Unlock()
		}
	}()

	for _, key := range keys {
		fl := flock.New(g.lockPath(key))
		acquireCtx, cancel := context.WithTimeout(ctx, g.timeout)
		locked, err := fl.TryLockContext(acquireCtx, retryDelay)
		cancel()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("failed to acquire lock %q: %w", key, err)
		}
		if !locked {
			return fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}
		locks = append(locks, fl)
	}

	return fn()
}

func (g *Guard) lockPath(key string) string {
	// Keys are internal constants, but keep the file name shell-safe anyway.
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, key)
	return filepath.Join(g.dir, safe+".lock")
}
