package repository

import (
	"context"
	"time"
)

// Account es la vista mínima de una cuenta que necesita este subsistema.
// La fuente de verdad de cuentas vive afuera; acá solo leemos
// account_id → email y escribimos el flag de verificación.
type Account struct {
	ID            string
	Email         string
	FullName      string
	EmailVerified bool
	CreatedAt     time.Time
}

// AccountDirectory define el acceso al directorio de cuentas.
type AccountDirectory interface {
	// GetByID retorna la cuenta por su ID. ErrNotFound si no existe.
	GetByID(ctx context.Context, accountID string) (*Account, error)

	// GetByEmail retorna la cuenta por email (case-insensitive).
	// ErrNotFound si no existe.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// SetEmailVerified escribe el flag de verificación.
	SetEmailVerified(ctx context.Context, accountID string, verified bool) error

	// UpdatePasswordHash reemplaza el hash de password de la cuenta.
	UpdatePasswordHash(ctx context.Context, accountID, phc string) error

	// Delete elimina la cuenta de forma permanente.
	Delete(ctx context.Context, accountID string) error
}
