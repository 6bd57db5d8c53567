// Package rate implementa el throttle del resend de verificación.
//
// Algoritmo: ventana fija (INCR + EXPIRE en Redis, contador con deadline en
// memoria). La clave es el email de la cuenta en minúsculas si se conoce, o
// la IP del cliente si no.
package rate

import (
	"context"
	"time"
)

// Result contiene el veredicto del limiter para una clave.
type Result struct {
	Allowed     bool
	Remaining   int64
	RetryAfter  time.Duration // > 0 solo cuando !Allowed
	WindowTTL   time.Duration
	CurrentHits int64
}

// Limiter decide si una acción para la clave dada está permitida e
// incrementa el contador de forma atómica (check-and-increment).
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}
