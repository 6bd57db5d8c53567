package repository

import (
	"context"
	"time"
)

// TokenPurpose indica la acción que autoriza un token.
type TokenPurpose string

const (
	PurposeEmailVerification TokenPurpose = "email_verification"
	PurposePasswordReset     TokenPurpose = "password_reset"
)

// Valid reporta si el purpose es uno de los conocidos.
func (p TokenPurpose) Valid() bool {
	return p == PurposeEmailVerification || p == PurposePasswordReset
}

// Token representa una credencial de un solo uso y tiempo acotado que prueba
// el control de un pedido de verificación de email o reset de password.
//
// El secreto crudo nunca se persiste: solo su digest SHA-256 (SecretHash).
// Un token es usable sii ConsumedAt == nil y now < ExpiresAt.
type Token struct {
	ID         string
	AccountID  string
	Purpose    TokenPurpose
	SecretHash string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
}

// Usable reporta si el token puede consumirse en el instante dado.
func (t *Token) Usable(now time.Time) bool {
	return t.ConsumedAt == nil && now.Before(t.ExpiresAt)
}

// TokenStore define las operaciones de persistencia de tokens.
//
// Todas las mutaciones deben ser durables antes de retornar: un token recién
// emitido no puede perderse en silencio.
type TokenStore interface {
	// Put persiste un token, invalidando atómicamente cualquier token vivo
	// previo del mismo (account_id, purpose). El invariante de
	// a-lo-sumo-un-token-vivo se garantiza acá, no en el caller.
	Put(ctx context.Context, t *Token) error

	// Get retorna el token actual para (account_id, purpose).
	// Retorna ErrNotFound si no existe.
	Get(ctx context.Context, accountID string, purpose TokenPurpose) (*Token, error)

	// FindBySecret busca un token por el hash de su secreto.
	// Retorna ErrNotFound si no existe.
	FindBySecret(ctx context.Context, secretHash string) (*Token, error)

	// Consume marca el token como consumido (one-time use) de forma atómica:
	// el check de consumed_at y el set son una sola operación (CAS), nunca
	// check-then-write. Exactamente un caller concurrente gana.
	//
	// El purpose se valida antes del CAS: un intento con el purpose
	// equivocado no quema el token ni revela su estado.
	//
	// Retorna el token consumido, o:
	//   - ErrNotFound si el hash no matchea ningún token del purpose dado
	//   - ErrTokenExpired si el token existe pero pasó su TTL
	//   - ErrTokenConsumed si otro caller lo consumió antes
	Consume(ctx context.Context, secretHash string, purpose TokenPurpose) (*Token, error)

	// DeleteExpired elimina tokens expirados o consumidos (cleanup job).
	// Retorna el número de tokens eliminados.
	DeleteExpired(ctx context.Context) (int, error)
}
