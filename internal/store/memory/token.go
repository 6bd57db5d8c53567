// Package memory implementa los stores en memoria para desarrollo y tests.
// No es durable: un restart pierde todo. Para producción usar store/pg.
package memory

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/dropDatabas3/shopjohn/internal/domain/repository"
	"github.com/dropDatabas3/shopjohn/internal/security/tokens"
)

// TokenStore guarda tokens en memoria.
//
// El índice por hash de secreto vive en un go-cache con TTL: los tokens
// expirados se auto-evictan solos (higiene), pero la validez de un token
// SIEMPRE se decide contra ExpiresAt/ConsumedAt, nunca contra la evicción.
// Todas las mutaciones pasan por el mutex: el check-and-set de Consume es
// atómico respecto de otros callers.
type TokenStore struct {
	mu sync.Mutex

	// byHash: secretHash -> *repository.Token (con TTL de evicción)
	byHash *gocache.Cache

	// live: accountID|purpose -> secretHash del token vivo actual
	live map[string]string

	// Now es inyectable para tests que viajan en el tiempo.
	Now func() time.Time
}

func NewTokenStore() *TokenStore {
	return &TokenStore{
		byHash: gocache.New(gocache.NoExpiration, 5*time.Minute),
		live:   make(map[string]string),
		Now:    time.Now,
	}
}

func liveKey(accountID string, purpose repository.TokenPurpose) string {
	return accountID + "|" + string(purpose)
}

func (s *TokenStore) Put(ctx context.Context, t *repository.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Invalidar el token vivo previo del mismo (account, purpose):
	// deja de ser el current y su entrada por hash se elimina, así un
	// consume posterior del secreto viejo falla con not-found.
	key := liveKey(t.AccountID, t.Purpose)
	if prevHash, ok := s.live[key]; ok {
		s.byHash.Delete(prevHash)
	}

	cp := *t
	ttl := t.ExpiresAt.Sub(s.Now())
	if ttl <= 0 {
		ttl = time.Minute // ya nació expirado; igual lo guardamos un rato
	}
	s.byHash.Set(t.SecretHash, &cp, ttl)
	s.live[key] = t.SecretHash
	return nil
}

func (s *TokenStore) Get(ctx context.Context, accountID string, purpose repository.TokenPurpose) (*repository.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash, ok := s.live[liveKey(accountID, purpose)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	v, ok := s.byHash.Get(hash)
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *(v.(*repository.Token))
	return &cp, nil
}

func (s *TokenStore) FindBySecret(ctx context.Context, secretHash string) (*repository.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.findLocked(secretHash)
	if t == nil {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// findLocked compara el hash buscado contra cada entrada en tiempo constante.
// Requiere el mutex tomado.
func (s *TokenStore) findLocked(secretHash string) *repository.Token {
	for _, item := range s.byHash.Items() {
		t := item.Object.(*repository.Token)
		if tokens.ConstantTimeEquals(t.SecretHash, secretHash) {
			return t
		}
	}
	return nil
}

func (s *TokenStore) Consume(ctx context.Context, secretHash string, purpose repository.TokenPurpose) (*repository.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.findLocked(secretHash)
	if t == nil {
		return nil, repository.ErrNotFound
	}
	// Purpose equivocado: se trata como inexistente, antes del CAS, así el
	// token sigue usable por el flujo correcto.
	if t.Purpose != purpose {
		return nil, repository.ErrNotFound
	}

	now := s.Now()
	if !now.Before(t.ExpiresAt) {
		return nil, repository.ErrTokenExpired
	}
	if t.ConsumedAt != nil {
		return nil, repository.ErrTokenConsumed
	}

	// check-and-set bajo el mismo lock: exactamente un caller gana
	consumed := now
	t.ConsumedAt = &consumed

	cp := *t
	return &cp, nil
}

func (s *TokenStore) DeleteExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	n := 0
	for hash, item := range s.byHash.Items() {
		t := item.Object.(*repository.Token)
		if t.ConsumedAt != nil || !now.Before(t.ExpiresAt) {
			s.byHash.Delete(hash)
			if cur, ok := s.live[liveKey(t.AccountID, t.Purpose)]; ok && cur == hash {
				delete(s.live, liveKey(t.AccountID, t.Purpose))
			}
			n++
		}
	}
	return n, nil
}

var _ repository.TokenStore = (*TokenStore)(nil)
