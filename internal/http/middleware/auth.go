package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/alcaldiadigital/intranet/internal/auth"
	"github.com/alcaldiadigital/intranet/internal/repo"
)

type contextKey string

const (
	ContextKeySubject contextKey = "subject"
	ContextKeyRol     contextKey = "rol"
)

// Auth valida el JWT de acceso e inyecta los claims en el contexto.
func Auth(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, "AUTH", "token ausente")
				return
			}

			claims, err := jwtManager.ParseAndValidate(parts[1])
			if err != nil {
				writeError(w, http.StatusUnauthorized, "AUTH", "token inválido")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySubject, claims.Subject)
			ctx = context.WithValue(ctx, ContextKeyRol, claims.Rol)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSubject recupera el subject del contexto.
func GetSubject(ctx context.Context) string {
	val, _ := ctx.Value(ContextKeySubject).(string)
	return val
}

// GetRol recupera el rol del contexto.
func GetRol(ctx context.Context) string {
	val, _ := ctx.Value(ContextKeyRol).(string)
	return val
}

// RequireRoles permite el paso solo a los roles indicados.
func RequireRoles(roles ...repo.Rol) func(http.Handler) http.Handler {
	permitidos := make(map[string]struct{}, len(roles))
	for _, rol := range roles {
		permitidos[string(rol)] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rol := strings.ToUpper(strings.TrimSpace(GetRol(r.Context())))
			if _, ok := permitidos[rol]; !ok {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "acceso restringido")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": nil,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
