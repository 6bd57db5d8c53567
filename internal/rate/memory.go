package rate

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter: ventana fija en memoria para dev/tests o single-node.
// Mismo contrato que RedisLimiter; el mutex hace atómico el
// check-and-increment frente a callers concurrentes.
type MemoryLimiter struct {
	mu        sync.Mutex
	max       int64
	window    time.Duration
	entries   map[string]*memWindow
	lastSweep time.Time

	// Now es inyectable para tests.
	Now func() time.Time
}

type memWindow struct {
	count     int64
	windowEnd time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		max:     int64(max),
		window:  window,
		entries: make(map[string]*memWindow),
		Now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.Now()
	l.sweepLocked(now)

	w, ok := l.entries[key]
	if !ok || !now.Before(w.windowEnd) {
		// ventana nueva
		w = &memWindow{count: 0, windowEnd: now.Add(l.window)}
		l.entries[key] = w
	}

	w.count++

	res := Result{
		Allowed:     w.count <= l.max,
		CurrentHits: w.count,
		WindowTTL:   w.windowEnd.Sub(now),
	}
	res.Remaining = l.max - w.count
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	if !res.Allowed {
		res.RetryAfter = w.windowEnd.Sub(now)
		if res.RetryAfter <= 0 {
			res.RetryAfter = time.Second
		}
	}
	return res, nil
}

// sweepLocked purga ventanas vencidas, como máximo una vez por window, para
// que las keys de un solo uso no acumulen entradas sin límite. En Redis el
// EXPIRE hace este trabajo solo. Requiere el mutex tomado.
func (l *MemoryLimiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now
	for key, w := range l.entries {
		if !now.Before(w.windowEnd) {
			delete(l.entries, key)
		}
	}
}

var _ Limiter = (*MemoryLimiter)(nil)
