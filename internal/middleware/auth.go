package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/vendingmachine/backend/internal/models"
	"go.uber.org/zap"
)

// Resolver is the interface that wraps bearer token resolution.
type Resolver interface {
	// Method Resolve validates an access token and returns the calling user with their active session.
	//
	// If the token is invalid or expired, or the user is unknown or disabled, an error matching models.ErrAuthentication will be returned together with "nil" value.
	Resolve(ctx context.Context, token string) (*models.Principal, error)
}

// AuthMiddleware validates the bearer token and stores the resolved principal in the request context.
// In debug mode unexpected resolver errors are echoed to the client.
func AuthMiddleware(resolver Resolver, logger *zap.Logger, debug bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				unauthorized(w, "Not authenticated")
				return
			}

			principal, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				if errors.Is(err, models.ErrAuthentication) {
					unauthorized(w, err.Error())
					return
				}
				logger.Error("failed to resolve access token",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.Error(err),
				)
				detail := "Internal server error"
				if debug {
					detail = err.Error()
				}
				writeDetail(w, http.StatusInternalServerError, detail)
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCapability rejects callers whose role is not allowed by the capability.
// It must be mounted after AuthMiddleware.
func RequireCapability(capability models.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := GetPrincipal(r.Context())
			if !ok {
				unauthorized(w, "Not authenticated")
				return
			}

			if err := models.Authorize(principal.User.Role, capability); err != nil {
				writeDetail(w, http.StatusForbidden, err.Error())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetPrincipal retrieves the authenticated caller from context
func GetPrincipal(ctx context.Context) (*models.Principal, bool) {
	principal, ok := ctx.Value(principalKey).(*models.Principal)
	return principal, ok && principal != nil
}

// WithPrincipal returns a copy of ctx carrying the principal
func WithPrincipal(ctx context.Context, principal *models.Principal) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header
func bearerToken(r *http.Request) string {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return ""
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeDetail(w, http.StatusUnauthorized, detail)
}

// writeDetail writes a {"detail": ...} error body
func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
