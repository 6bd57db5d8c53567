package pg

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/shopjohn/internal/domain/repository"
)

// AccountDirectory implementa repository.AccountDirectory sobre la tabla accounts.
// Este subsistema solo lee id/email y escribe verified/password_hash/delete;
// el alta de cuentas la hace el servicio de registro.
type AccountDirectory struct {
	pool *pgxpool.Pool
}

func NewAccountDirectory(pool *pgxpool.Pool) *AccountDirectory {
	return &AccountDirectory{pool: pool}
}

func (d *AccountDirectory) GetByID(ctx context.Context, accountID string) (*repository.Account, error) {
	row := d.pool.QueryRow(ctx,
		`SELECT id, email, full_name, email_verified, created_at
		 FROM accounts WHERE id = $1`,
		accountID)
	return scanAccount(row)
}

func (d *AccountDirectory) GetByEmail(ctx context.Context, email string) (*repository.Account, error) {
	row := d.pool.QueryRow(ctx,
		`SELECT id, email, full_name, email_verified, created_at
		 FROM accounts WHERE lower(email) = lower($1)`,
		strings.TrimSpace(email))
	return scanAccount(row)
}

func (d *AccountDirectory) SetEmailVerified(ctx context.Context, accountID string, verified bool) error {
	tag, err := d.pool.Exec(ctx,
		`UPDATE accounts SET email_verified = $2 WHERE id = $1`,
		accountID, verified)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (d *AccountDirectory) UpdatePasswordHash(ctx context.Context, accountID, phc string) error {
	tag, err := d.pool.Exec(ctx,
		`UPDATE accounts SET password_hash = $2 WHERE id = $1`,
		accountID, phc)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (d *AccountDirectory) Delete(ctx context.Context, accountID string) error {
	// Los tokens de la cuenta caen por FK ON DELETE CASCADE.
	tag, err := d.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, accountID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanAccount(row rowScanner) (*repository.Account, error) {
	var a repository.Account
	var fullName *string
	err := row.Scan(&a.ID, &a.Email, &fullName, &a.EmailVerified, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if fullName != nil {
		a.FullName = *fullName
	}
	return &a, nil
}

var _ repository.AccountDirectory = (*AccountDirectory)(nil)
