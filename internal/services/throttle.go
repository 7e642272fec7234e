package services

import (
	"strings"
	"sync"
	"time"
)

// Throttle key scopes
const (
	ScopeIP   = "ip"
	ScopeUser = "user"
)

// IPKey builds the throttle key for a client address
func IPKey(addr string) string {
	return ScopeIP + ":" + addr
}

// UserKey builds the throttle key for an account, normalizing the email
func UserKey(email string) string {
	return ScopeUser + ":" + strings.ToLower(strings.TrimSpace(email))
}

type attemptRecord struct {
	failures    []time.Time
	lockedUntil time.Time
}

// AttemptThrottle counts failed attempts per key inside a sliding window and
// locks a key once the count reaches the configured maximum. Safe for concurrent use.
type AttemptThrottle struct {
	mu      sync.Mutex
	records map[string]*attemptRecord
}

func NewAttemptThrottle() *AttemptThrottle {
	return &AttemptThrottle{records: make(map[string]*attemptRecord)}
}

// IsLocked reports whether key has a lockout that has not yet expired at now
func (t *AttemptThrottle) IsLocked(key string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[key]
	return ok && now.Before(rec.lockedUntil)
}

// RecordFailure drops failures older than now-window, appends now and starts a
// lockout of the given length when maxAttempts is reached. Returns true when
// this call set the lockout.
func (t *AttemptThrottle) RecordFailure(key string, now time.Time, window time.Duration, maxAttempts int, lockout time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[key]
	if !ok {
		rec = &attemptRecord{}
		t.records[key] = rec
	}

	rec.failures = append(pruneBefore(rec.failures, now.Add(-window)), now)

	if len(rec.failures) >= maxAttempts {
		rec.lockedUntil = now.Add(lockout)
		return true
	}
	return false
}

// Reset forgets the failure history and lockout of key
func (t *AttemptThrottle) Reset(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.records, key)
}

// Prune removes keys with no failure inside the window and no active lockout.
// Returns the number of keys removed.
func (t *AttemptThrottle) Prune(now time.Time, window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := now.Add(-window)
	removed := 0
	for key, rec := range t.records {
		rec.failures = pruneBefore(rec.failures, cutoff)
		if len(rec.failures) == 0 && !now.Before(rec.lockedUntil) {
			delete(t.records, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked keys
func (t *AttemptThrottle) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.records)
}

// pruneBefore drops timestamps older than cutoff, reusing the backing array
func pruneBefore(failures []time.Time, cutoff time.Time) []time.Time {
	kept := failures[:0]
	for _, ts := range failures {
		if !ts.Before(cutoff) {
			kept = append(kept, ts)
		}
	}
	return kept
}
