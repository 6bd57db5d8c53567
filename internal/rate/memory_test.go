package rate

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryLimiter_LimitWithinWindow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	l := NewMemoryLimiter(3, 10*time.Minute)
	base := time.Now()
	l.Now = func() time.Time { return base }

	// limit requests dentro de la ventana pasan
	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "user@example.com")
		if err != nil {
			t.Fatal(err)
		}
		if !res.Allowed {
			t.Fatalf("request %d debería pasar", i+1)
		}
	}

	// limit+1 falla con retry_after positivo
	res, err := l.Allow(ctx, "user@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed {
		t.Fatal("request limit+1 debería bloquearse")
	}
	if res.RetryAfter <= 0 {
		t.Fatalf("retry_after debe ser positivo, got %v", res.RetryAfter)
	}
}

func TestMemoryLimiter_WindowReset(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	l := NewMemoryLimiter(1, time.Minute)
	base := time.Now()
	l.Now = func() time.Time { return base }

	if res, _ := l.Allow(ctx, "k"); !res.Allowed {
		t.Fatal("first should pass")
	}
	if res, _ := l.Allow(ctx, "k"); res.Allowed {
		t.Fatal("second should block")
	}

	// pasada la ventana, vuelve a permitir
	l.Now = func() time.Time { return base.Add(61 * time.Second) }
	if res, _ := l.Allow(ctx, "k"); !res.Allowed {
		t.Fatal("should pass after window elapsed")
	}
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	l := NewMemoryLimiter(1, time.Minute)
	if res, _ := l.Allow(ctx, "a"); !res.Allowed {
		t.Fatal("a should pass")
	}
	if res, _ := l.Allow(ctx, "b"); !res.Allowed {
		t.Fatal("b should pass (clave distinta)")
	}
}

func TestMemoryLimiter_SweepsStaleKeys(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	l := NewMemoryLimiter(3, time.Minute)
	base := time.Now()
	l.Now = func() time.Time { return base }

	// muchas keys de un solo uso (IPs distintas, p. ej.)
	for i := 0; i < 50; i++ {
		if _, err := l.Allow(ctx, fmt.Sprintf("ip-%d", i)); err != nil {
			t.Fatal(err)
		}
	}

	// pasadas dos ventanas, el próximo Allow barre todo lo vencido
	l.Now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := l.Allow(ctx, "fresh"); err != nil {
		t.Fatal(err)
	}

	l.mu.Lock()
	n := len(l.entries)
	l.mu.Unlock()
	if n != 1 {
		t.Fatalf("stale entries deben purgarse, quedaron %d", n)
	}
}

func TestMemoryLimiter_ConcurrentIncrement(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	const limit = 10
	const callers = 50
	l := NewMemoryLimiter(limit, time.Minute)

	var wg sync.WaitGroup
	allowed := make(chan bool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := l.Allow(ctx, "shared")
			if err != nil {
				t.Error(err)
				return
			}
			allowed <- res.Allowed
		}()
	}
	wg.Wait()
	close(allowed)

	n := 0
	for ok := range allowed {
		if ok {
			n++
		}
	}
	// sin lost updates: exactamente limit pasan
	if n != limit {
		t.Fatalf("want %d allowed, got %d", limit, n)
	}
}
