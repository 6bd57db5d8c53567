package middlewares

import (
	"net/http"
	"strings"

	"github.com/dropDatabas3/shopjohn/internal/http/httpx"
	jwtx "github.com/dropDatabas3/shopjohn/internal/jwt"
)

// RequireAuth valida Authorization: Bearer <JWT HS256> y guarda el account id
// (claim sub) en el contexto. Sin token válido responde 401.
func RequireAuth(verifier *jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ah := strings.TrimSpace(r.Header.Get("Authorization"))
			if ah == "" || !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token", error_description="missing bearer token"`)
				httpx.WriteError(w, "unauthorized", "missing bearer token", http.StatusUnauthorized)
				return
			}
			raw := strings.TrimSpace(ah[len("Bearer "):])

			claims, err := verifier.Parse(raw)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
				httpx.WriteError(w, "invalid_token", "invalid or expired token", http.StatusUnauthorized)
				return
			}
			sub := jwtx.Subject(claims)
			if sub == "" {
				httpx.WriteError(w, "invalid_token", "token without subject", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAccountID(r.Context(), sub)))
		})
	}
}
