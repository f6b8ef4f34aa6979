// Package ratelimit provides in-memory request throttling and login lockout
// tracking, keyed by an identifier such as an email address. State is
// process-lifetime only and guarded by a mutex for concurrent request
// handling.
package ratelimit

import (
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

type lockout struct {
	failures    int
	lastFailure time.Time
	lockedUntil time.Time
}

// stale reports whether the entry carries no active lock and its failures
// are old enough to forget. Keeps the map from growing without bound on
// attacker-chosen keys, and stops failures spread over months from ever
// adding up to a lockout.
func (lo *lockout) stale(now time.Time, lockoutWindow time.Duration) bool {
	return !now.Before(lo.lockedUntil) && now.Sub(lo.lastFailure) > lockoutWindow
}

type Config struct {
	MaxRequests int           // per window, for Allow
	Window      time.Duration //
	MaxFailures int           // before lockout
	Lockout     time.Duration //
}

type Limiter struct {
	mu       sync.Mutex
	cfg      Config
	windows  map[string]*window
	lockouts map[string]*lockout
	now      func() time.Time
}

func New(cfg Config) *Limiter {
	return &Limiter{
		cfg:      cfg,
		windows:  make(map[string]*window),
		lockouts: make(map[string]*lockout),
		now:      time.Now,
	}
}

// Allow records a request for key and reports whether it is within
// MaxRequests per Window. Windows are sliding-start: a new window begins on
// the first request after the previous one expired, so bursts at window
// boundaries can admit up to twice the cap. Known behavior, not a bug.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		l.windows[key] = &window{count: 1, resetAt: now.Add(l.cfg.Window)}
		l.pruneLocked(now)
		return true
	}
	w.count++
	return w.count <= l.cfg.MaxRequests
}

// RecordFailure increments the failure counter for key; reaching MaxFailures
// starts a lockout.
func (l *Limiter) RecordFailure(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	lo, ok := l.lockouts[key]
	if !ok {
		lo = &lockout{}
		l.lockouts[key] = lo
	}
	if now.Before(lo.lockedUntil) {
		return
	}
	if lo.stale(now, l.cfg.Lockout) {
		lo.failures = 0
	}
	lo.failures++
	lo.lastFailure = now
	if lo.failures >= l.cfg.MaxFailures {
		lo.lockedUntil = now.Add(l.cfg.Lockout)
		lo.failures = 0
	}
}

// CheckLock reports whether key is locked out and for how much longer.
func (l *Limiter) CheckLock(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lo, ok := l.lockouts[key]
	if !ok {
		return false, 0
	}
	remaining := lo.lockedUntil.Sub(l.now())
	if remaining <= 0 {
		return false, 0
	}
	return true, remaining
}

// Reset clears both rate-limit and lockout state for key; called on
// successful login or completed password reset.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.windows, key)
	delete(l.lockouts, key)
}

// pruneLocked drops expired entries. Called opportunistically under the
// lock; there is no background timer.
func (l *Limiter) pruneLocked(now time.Time) {
	for key, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, key)
		}
	}
	for key, lo := range l.lockouts {
		if lo.stale(now, l.cfg.Lockout) {
			delete(l.lockouts, key)
		}
	}
}
