package middlewares

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/dataledger/internal/http/errors"
)

// ScopeClusterAdmin habilita las rutas /v1/cluster/*.
const ScopeClusterAdmin = "cluster:admin"

// RequireOpsToken valida Authorization: Bearer <JWT> firmado HS256 con secret
// y exige que el claim scope (separado por espacios) incluya scope.
func RequireOpsToken(secret []byte, scope string) Middleware {
	keyfunc := func(*jwt.Token) (any, error) { return secret, nil }
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ah := strings.TrimSpace(r.Header.Get("Authorization"))
			if ah == "" || !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
				w.Header().Set("WWW-Authenticate", `Bearer realm="ops", error="invalid_token", error_description="missing bearer token"`)
				errors.WriteError(w, errors.ErrTokenMissing)
				return
			}
			raw := strings.TrimSpace(ah[len("Bearer "):])

			tk, err := jwt.Parse(raw, keyfunc, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="ops", error="invalid_token"`)
				errors.WriteError(w, errors.ErrTokenInvalid.WithDetail(err.Error()))
				return
			}
			claims, _ := tk.Claims.(jwt.MapClaims)
			if !hasScope(claims, scope) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="ops", error="insufficient_scope", scope="`+scope+`"`)
				errors.WriteError(w, errors.ErrInsufficientScopes.WithDetail("required scope "+scope))
				return
			}

			ctx := r.Context()
			if sub, _ := claims.GetSubject(); sub != "" {
				ctx = setOperator(ctx, sub)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func hasScope(c jwt.MapClaims, want string) bool {
	raw, _ := c["scope"].(string)
	for _, s := range strings.Fields(raw) {
		if s == want {
			return true
		}
	}
	return false
}
