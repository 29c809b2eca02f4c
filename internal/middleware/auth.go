package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"keyshelf/internal/domain"
)

// PrincipalResolver maps verified identity claims to a stored principal,
// provisioning it on first sight.
type PrincipalResolver interface {
	ResolveOrProvision(ctx context.Context, req domain.ResolveOrProvisionRequest) (*domain.Principal, error)
}

// Authenticate verifies the Bearer token, resolves the principal, and stores it
// in the request context. Requests without a valid token get 401.
func Authenticate(validator JWTValidator, resolver PrincipalResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized: provide a valid Bearer token")
				return
			}
			tokenStr := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

			claims, err := validator.Validate(r.Context(), tokenStr)
			if err != nil {
				logger.DebugContext(r.Context(), "token rejected",
					"request_id", RequestIDFromContext(r.Context()), "error", err)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized: provide a valid Bearer token")
				return
			}

			p, err := resolver.ResolveOrProvision(r.Context(), claims.ProvisionRequest())
			if err != nil {
				var valErr *domain.ValidationError
				var conflictErr *domain.ConflictError
				switch {
				case errors.As(err, &valErr):
					writeJSONError(w, http.StatusUnauthorized, "unauthorized: "+valErr.Message)
				case errors.As(err, &conflictErr):
					writeJSONError(w, http.StatusConflict, conflictErr.Message)
				default:
					logger.ErrorContext(r.Context(), "resolve principal",
						"request_id", RequestIDFromContext(r.Context()), "error", err)
					writeJSONError(w, http.StatusInternalServerError, "internal error")
				}
				return
			}

			ctx := domain.WithPrincipal(r.Context(), domain.ContextPrincipal{ID: p.ID, Email: p.Email})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    status,
		"message": msg,
	})
}
