// Package jwt valida los access tokens HS256 que emite el servicio de login.
// Este subsistema solo verifica; la emisión vive en el servicio de cuentas.
package jwt

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenInvalid indica firma inválida, issuer desconocido o claims rotas.
	ErrTokenInvalid = errors.New("jwt: invalid token")

	// ErrTokenExpired indica un token vencido.
	ErrTokenExpired = errors.New("jwt: token expired")
)

// Verifier valida tokens Bearer firmados con HS256.
type Verifier struct {
	Secret []byte
	Issuer string
}

func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{Secret: []byte(secret), Issuer: issuer}
}

// Parse valida firma, issuer y expiración, y retorna las claims.
func (v *Verifier) Parse(raw string) (jwtlib.MapClaims, error) {
	claims := jwtlib.MapClaims{}
	_, err := jwtlib.ParseWithClaims(raw, claims, func(t *jwtlib.Token) (any, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.Secret, nil
	}, jwtlib.WithIssuer(v.Issuer), jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	return claims, nil
}

// Subject extrae la claim sub; vacío si no está.
func Subject(claims jwtlib.MapClaims) string {
	sub, _ := claims["sub"].(string)
	return sub
}

// Sign emite un token HS256 con sub e issuer dados. Lo usan los tests y la
// tool de smoke local; producción firma en el servicio de cuentas.
func (v *Verifier) Sign(sub string, ttl time.Duration) (string, error) {
	now := time.Now()
	tok := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"iss": v.Issuer,
		"sub": sub,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	})
	return tok.SignedString(v.Secret)
}
