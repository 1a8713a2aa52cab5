// Package ratelimit implements an in-memory sliding-window admission gate.
//
// Window state is ephemeral and resets on process restart; the limiter is
// abuse mitigation, not a security boundary.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter admits at most max requests per key within the trailing window.
// Only admitted requests count toward the window, so a burst of rejected
// callbacks does not extend the lockout.
type Limiter struct {
	max    int
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	keys map[string][]time.Time
}

// New creates a Limiter admitting max requests per window.
func New(max int, window time.Duration) *Limiter {
	return &Limiter{
		max:    max,
		window: window,
		now:    time.Now,
		keys:   make(map[string][]time.Time),
	}
}

// NewWithClock creates a Limiter with an injected clock for tests.
func NewWithClock(max int, window time.Duration, now func() time.Time) *Limiter {
	l := New(max, window)
	l.now = now
	return l
}

// Key builds the admission key for a token value and source address.
func Key(token, sourceIP string) string {
	return token + "|" + sourceIP
}

// Admit reports whether a request for key may proceed. A request is admitted
// while strictly fewer than max admissions lie within the trailing window;
// the check and the append happen under one lock, so concurrent callers can
// never push a key past max.
func (l *Limiter) Admit(key string) bool {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	stamps := l.keys[key]
	kept := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.max {
		l.keys[key] = kept
		return false
	}

	l.keys[key] = append(kept, now)
	return true
}

// Sweep drops keys whose admissions have all aged out of the window. Called
// periodically so idle keys do not accumulate.
func (l *Limiter) Sweep() {
	cutoff := l.now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, stamps := range l.keys {
		live := false
		for _, ts := range stamps {
			if ts.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(l.keys, key)
		}
	}
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}
