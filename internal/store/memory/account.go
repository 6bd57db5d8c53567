package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dropDatabas3/shopjohn/internal/domain/repository"
)

// AccountDirectory es un directorio de cuentas en memoria.
// Sirve como stub del servicio de cuentas externo en dev/tests.
type AccountDirectory struct {
	mu       sync.RWMutex
	byID     map[string]*repository.Account
	byEmail  map[string]string // email lowercase -> id
	pwHashes map[string]string
}

func NewAccountDirectory() *AccountDirectory {
	return &AccountDirectory{
		byID:     make(map[string]*repository.Account),
		byEmail:  make(map[string]string),
		pwHashes: make(map[string]string),
	}
}

// Seed agrega una cuenta (helper para dev/tests).
func (d *AccountDirectory) Seed(a repository.Account) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	cp := a
	d.byID[a.ID] = &cp
	d.byEmail[strings.ToLower(a.Email)] = a.ID
}

// PasswordHash retorna el hash seteado por UpdatePasswordHash (para asserts).
func (d *AccountDirectory) PasswordHash(accountID string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.pwHashes[accountID]
}

func (d *AccountDirectory) GetByID(ctx context.Context, accountID string) (*repository.Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.byID[accountID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (d *AccountDirectory) GetByEmail(ctx context.Context, email string) (*repository.Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *d.byID[id]
	return &cp, nil
}

func (d *AccountDirectory) SetEmailVerified(ctx context.Context, accountID string, verified bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.byID[accountID]
	if !ok {
		return repository.ErrNotFound
	}
	a.EmailVerified = verified
	return nil
}

func (d *AccountDirectory) UpdatePasswordHash(ctx context.Context, accountID, phc string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.byID[accountID]; !ok {
		return repository.ErrNotFound
	}
	d.pwHashes[accountID] = phc
	return nil
}

func (d *AccountDirectory) Delete(ctx context.Context, accountID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.byID[accountID]
	if !ok {
		return repository.ErrNotFound
	}
	delete(d.byEmail, strings.ToLower(a.Email))
	delete(d.byID, accountID)
	delete(d.pwHashes, accountID)
	return nil
}

var _ repository.AccountDirectory = (*AccountDirectory)(nil)
