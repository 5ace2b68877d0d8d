// Package rate is a fixed-window limiter for the console's own endpoints.
// Outbound backend traffic is throttled separately in the gateway.
package rate

import (
	"sync"
	"time"
)

type window struct {
	count int
	start time.Time
}

type Limiter struct {
	mu      sync.Mutex
	windows map[string]window
	lastGC  time.Time
	now     func() time.Time
}

func NewLimiter() *Limiter {
	return &Limiter{windows: map[string]window{}, lastGC: time.Now().UTC(), now: func() time.Time { return time.Now().UTC() }}
}

// Allow counts one hit for key. When the window is full it reports false and
// how long until the window reopens.
func (l *Limiter) Allow(key string, limit int, span time.Duration) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if now.Sub(l.lastGC) > time.Minute {
		for k, w := range l.windows {
			if now.Sub(w.start) > 3*span {
				delete(l.windows, k)
			}
		}
		l.lastGC = now
	}
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= span {
		l.windows[key] = window{count: 1, start: now}
		return true, 0
	}
	if w.count >= limit {
		return false, w.start.Add(span).Sub(now)
	}
	w.count++
	l.windows[key] = w
	return true, 0
}

// Reset forgets key, e.g. after a successful sign-in.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}
