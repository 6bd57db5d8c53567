package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/shopjohn/internal/domain/repository"
)

// TokenStore implementa repository.TokenStore sobre la tabla verification_token.
//
// La atomicidad del consume se apoya en el UPDATE condicional de Postgres:
// `SET consumed_at = now() WHERE consumed_at IS NULL AND expires_at > now()`
// es un compare-and-swap a nivel fila, así que de N consumes concurrentes
// exactamente uno ve RETURNING.
type TokenStore struct {
	pool *pgxpool.Pool
}

func NewTokenStore(pool *pgxpool.Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

func (s *TokenStore) Put(ctx context.Context, t *repository.Token) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Invalidar el token vivo previo: borrado duro, así el secreto viejo
	// deja de existir y un consume posterior falla not-found.
	_, err = tx.Exec(ctx,
		`DELETE FROM verification_token
		 WHERE account_id = $1 AND purpose = $2 AND consumed_at IS NULL`,
		t.AccountID, string(t.Purpose))
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO verification_token (id, account_id, purpose, secret_hash, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.AccountID, string(t.Purpose), t.SecretHash, t.CreatedAt, t.ExpiresAt)
	if err != nil {
		return err
	}

	// Commit antes de retornar: un token emitido no puede perderse.
	return tx.Commit(ctx)
}

func (s *TokenStore) Get(ctx context.Context, accountID string, purpose repository.TokenPurpose) (*repository.Token, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, account_id, purpose, secret_hash, created_at, expires_at, consumed_at
		 FROM verification_token
		 WHERE account_id = $1 AND purpose = $2 AND consumed_at IS NULL
		 ORDER BY created_at DESC
		 LIMIT 1`,
		accountID, string(purpose))
	return scanToken(row)
}

func (s *TokenStore) FindBySecret(ctx context.Context, secretHash string) (*repository.Token, error) {
	// Lookup por digest SHA-256 indexado. Comparar digests de un secreto de
	// 256 bits por igualdad de índice no filtra timing útil: el atacante no
	// controla la relación entre su input y el digest almacenado.
	row := s.pool.QueryRow(ctx,
		`SELECT id, account_id, purpose, secret_hash, created_at, expires_at, consumed_at
		 FROM verification_token
		 WHERE secret_hash = $1`,
		secretHash)
	return scanToken(row)
}

func (s *TokenStore) Consume(ctx context.Context, secretHash string, purpose repository.TokenPurpose) (*repository.Token, error) {
	// El purpose es condición del CAS: un token del flujo equivocado no se
	// quema ni se distingue de uno inexistente.
	row := s.pool.QueryRow(ctx,
		`UPDATE verification_token
		 SET consumed_at = now()
		 WHERE secret_hash = $1 AND purpose = $2 AND consumed_at IS NULL AND expires_at > now()
		 RETURNING id, account_id, purpose, secret_hash, created_at, expires_at, consumed_at`,
		secretHash, string(purpose))

	t, err := scanToken(row)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	// El CAS no matcheó: distinguir por qué.
	var rowPurpose string
	var consumed bool
	var expired bool
	err = s.pool.QueryRow(ctx,
		`SELECT purpose, consumed_at IS NOT NULL, expires_at <= now()
		 FROM verification_token WHERE secret_hash = $1`,
		secretHash).Scan(&rowPurpose, &consumed, &expired)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if rowPurpose != string(purpose) {
		return nil, repository.ErrNotFound
	}
	if consumed {
		return nil, repository.ErrTokenConsumed
	}
	if expired {
		return nil, repository.ErrTokenExpired
	}
	// carrera rarísima: el token volvió a ser usable entre UPDATE y SELECT
	return nil, repository.ErrNotFound
}

func (s *TokenStore) DeleteExpired(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM verification_token
		 WHERE expires_at < now() OR consumed_at IS NOT NULL`)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanToken(row rowScanner) (*repository.Token, error) {
	var t repository.Token
	var purpose string
	err := row.Scan(&t.ID, &t.AccountID, &purpose, &t.SecretHash,
		&t.CreatedAt, &t.ExpiresAt, &t.ConsumedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.Purpose = repository.TokenPurpose(purpose)
	return &t, nil
}

var _ repository.TokenStore = (*TokenStore)(nil)
