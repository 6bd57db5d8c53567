// Package verification implementa el ciclo de vida de los tokens de un solo
// uso: emisión, consumo atómico y los flujos de negocio que los rodean
// (verificación de email, reset de password, resend con throttle, baja de
// cuenta con notificación).
package verification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/shopjohn/internal/domain/repository"
	"github.com/dropDatabas3/shopjohn/internal/security/tokens"
)

// secretBytes son los bytes de entropía del secreto crudo (256 bits).
const secretBytes = 32

// Issuer emite tokens de verificación. El secreto crudo se retorna una sola
// vez para incrustarlo en el link del mail; solo su digest se persiste.
type Issuer struct {
	Store repository.TokenStore

	// VerifyTTL y ResetTTL son las vigencias por propósito.
	VerifyTTL time.Duration
	ResetTTL  time.Duration

	// Now permite inyectar el reloj en tests. Nil usa time.Now.
	Now func() time.Time
}

// Issue genera un token nuevo para (accountID, purpose) y lo persiste,
// invalidando cualquier token vivo previo del mismo par. Retorna el registro
// persistido y el secreto crudo, que no vuelve a estar disponible.
func (i *Issuer) Issue(ctx context.Context, accountID string, purpose repository.TokenPurpose) (*repository.Token, string, error) {
	if !purpose.Valid() {
		return nil, "", fmt.Errorf("%w: unknown purpose %q", repository.ErrInvalidInput, purpose)
	}

	raw, err := tokens.GenerateOpaqueToken(secretBytes)
	if err != nil {
		return nil, "", fmt.Errorf("generate secret: %w", err)
	}

	now := i.now()
	tok := &repository.Token{
		ID:         uuid.NewString(),
		AccountID:  accountID,
		Purpose:    purpose,
		SecretHash: tokens.SHA256Hex(raw),
		CreatedAt:  now,
		ExpiresAt:  now.Add(i.ttl(purpose)),
	}

	if err := i.Store.Put(ctx, tok); err != nil {
		return nil, "", fmt.Errorf("persist token: %w", err)
	}
	return tok, raw, nil
}

// TTL retorna la vigencia configurada para el propósito dado.
func (i *Issuer) TTL(purpose repository.TokenPurpose) time.Duration {
	return i.ttl(purpose)
}

func (i *Issuer) ttl(purpose repository.TokenPurpose) time.Duration {
	if purpose == repository.PurposePasswordReset {
		return i.ResetTTL
	}
	return i.VerifyTTL
}

func (i *Issuer) now() time.Time {
	if i.Now != nil {
		return i.Now()
	}
	return time.Now().UTC()
}
