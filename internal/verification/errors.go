package verification

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidToken indica que el secreto no matchea ningún token vigente.
	// También cubre tokens reemplazados por una re-emisión posterior: el
	// secreto viejo deja de existir en el store.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpired indica que el token existe pero pasó su TTL sin consumirse.
	ErrExpired = errors.New("token expired")

	// ErrAlreadyConsumed indica que el token ya fue usado (one-time use).
	ErrAlreadyConsumed = errors.New("token already consumed")

	// ErrThrottleExceeded indica que el caller superó el límite de resends.
	ErrThrottleExceeded = errors.New("throttle exceeded")
)

// ThrottleError envuelve ErrThrottleExceeded con el tiempo de espera hasta
// que la ventana se libere. Los handlers lo traducen a Retry-After.
type ThrottleError struct {
	RetryAfter time.Duration
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("throttle exceeded, retry after %s", e.RetryAfter)
}

func (e *ThrottleError) Unwrap() error { return ErrThrottleExceeded }

// IsInvalidToken verifica si el error es ErrInvalidToken.
func IsInvalidToken(err error) bool { return errors.Is(err, ErrInvalidToken) }

// IsExpired verifica si el error es ErrExpired.
func IsExpired(err error) bool { return errors.Is(err, ErrExpired) }

// IsAlreadyConsumed verifica si el error es ErrAlreadyConsumed.
func IsAlreadyConsumed(err error) bool { return errors.Is(err, ErrAlreadyConsumed) }

// IsThrottleExceeded verifica si el error es ErrThrottleExceeded.
func IsThrottleExceeded(err error) bool { return errors.Is(err, ErrThrottleExceeded) }

// RetryAfterFrom extrae el retry-after de un error de throttle; cero si no
// aplica.
func RetryAfterFrom(err error) time.Duration {
	var te *ThrottleError
	if errors.As(err, &te) {
		return te.RetryAfter
	}
	return 0
}
