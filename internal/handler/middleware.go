package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/viniciusroberto/pluggy-lead-pulse/internal/domain"
	"github.com/viniciusroberto/pluggy-lead-pulse/internal/service"
)

type contextKey string

const userIDKey contextKey = "userID"

// JWTAuthMiddleware validates the Supabase access token (HS256, project
// secret) and injects the subject into context.
func JWTAuthMiddleware(jwtSecret string, logger *zap.Logger) func(http.Handler) http.Handler {
	secret := []byte(jwtSecret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("auth: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "Token de autenticação não fornecido")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("auth: invalid token format",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "Formato de token inválido")
				return
			}

			token, err := jwt.Parse(parts[1], func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				logger.Warn("auth: invalid or expired token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				writeError(w, http.StatusUnauthorized, "Token inválido ou expirado")
				return
			}

			sub, err := token.Claims.GetSubject()
			if err != nil || sub == "" {
				writeError(w, http.StatusUnauthorized, "Token sem identidade")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext extracts the authenticated user ID from context.
func UserIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey).(string)
	return v
}

// RequireAccess consults the guard's decision before letting a request
// through. While the guard is still initializing the client gets a 503
// with Retry-After rather than a misleading 401.
func RequireAccess(guard *service.AccessGuard, requireAdmin bool, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := guard.Decision(requireAdmin)

			switch decision {
			case domain.AccessAllow:
				next.ServeHTTP(w, r)

			case domain.AccessLoading:
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusServiceUnavailable, "Verificando sessão, tente novamente")

			case domain.AccessRedirectLogin:
				writeError(w, http.StatusUnauthorized, "Sessão não encontrada, faça login")

			case domain.AccessDenyNoProfile:
				writeError(w, http.StatusForbidden, "Perfil não encontrado. Contate o administrador.")

			case domain.AccessDenyInactive:
				writeError(w, http.StatusForbidden, "Usuário desativado. Contate o administrador para reativação.")

			case domain.AccessDenyNotAdmin:
				writeError(w, http.StatusForbidden, "Acesso restrito a administradores")

			case domain.AccessErrorRetry:
				status := guard.Status(requireAdmin)
				logger.Warn("guard: blocking request in error state",
					zap.String("path", r.URL.Path),
					zap.Int("attempts", status.Attempts),
				)
				w.Header().Set("Retry-After", "2")
				writeError(w, http.StatusServiceUnavailable, status.Message)

			default:
				writeError(w, http.StatusUnauthorized, "Sessão não encontrada, faça login")
			}
		})
	}
}
