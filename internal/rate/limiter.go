// Package rate implementa rate limiting fixed-window para los endpoints
// de autenticación. Backend redis cuando hay cluster; memoria para
// single-node y tests.
package rate

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"
)

type Result struct {
	Allowed     bool
	Remaining   int64
	RetryAfter  time.Duration
	WindowTTL   time.Duration
	CurrentHits int64
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// NopLimiter permite todo. Default cuando el limiting está apagado.
type NopLimiter struct{}

func (NopLimiter) Allow(context.Context, string) (Result, error) {
	return Result{Allowed: true, Remaining: math.MaxInt64}, nil
}

// ─────────────── Memory (fixed window) ───────────────

type memWindow struct {
	start time.Time
	hits  int64
}

// MemoryLimiter: fixed window en memoria. Solo vale para un proceso.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*memWindow
	max     int64
	window  time.Duration
	now     func() time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*memWindow),
		max:     int64(max),
		window:  window,
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	key = strings.ReplaceAll(key, " ", "_")
	now := l.now().UTC()
	winStart := now.Truncate(l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || w.start.Before(winStart) {
		w = &memWindow{start: winStart}
		l.windows[key] = w
		// barrido oportunista de ventanas viejas
		if len(l.windows) > 4096 {
			for k, old := range l.windows {
				if old.start.Before(winStart) {
					delete(l.windows, k)
				}
			}
		}
	}
	w.hits++

	remaining := l.max - w.hits
	if remaining < 0 {
		remaining = 0
	}
	res := Result{
		Allowed:     w.hits <= l.max,
		Remaining:   remaining,
		CurrentHits: w.hits,
		WindowTTL:   w.start.Add(l.window).Sub(now),
	}
	if !res.Allowed {
		res.RetryAfter = res.WindowTTL
	}
	return res, nil
}
