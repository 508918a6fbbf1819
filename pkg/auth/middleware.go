package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/bosun-marine/bosun-engine/pkg/models"
)

// Middleware provides HTTP authentication middleware.
// It is thin and delegates authentication logic to AuthService.
type Middleware struct {
	authService AuthService
	logger      *zap.Logger
}

// NewMiddleware creates a new auth middleware with the given AuthService.
func NewMiddleware(authService AuthService, logger *zap.Logger) *Middleware {
	return &Middleware{
		authService: authService,
		logger:      logger,
	}
}

// RequireAuth validates the JWT and requires a yacht and role claim.
// Sets claims, token and the engine caller in context for downstream handlers.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuthWithPathValidation("")(next)
}

// RequireAuthWithPathValidation validates the JWT and matches the URL path
// yacht ID to the token. Use for endpoints like /api/yachts/{yid}/... where
// the URL carries the tenant. An empty pathParamName skips the match.
func (m *Middleware) RequireAuthWithPathValidation(pathParamName string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, token, err := m.authService.ValidateRequest(r)
			if err != nil {
				m.unauthorized(w, "Authentication required")
				return
			}

			if err := m.authService.RequireYachtID(claims); err != nil {
				m.badRequest(w, "Missing yacht or role in token")
				return
			}

			if pathParamName != "" {
				if err := m.authService.ValidateYachtIDMatch(claims, r.PathValue(pathParamName)); err != nil {
					m.forbidden(w, "Yacht ID mismatch between token and URL")
					return
				}
			}

			caller, err := CallerFromClaims(claims)
			if err != nil {
				m.logger.Warn("Rejected token with malformed caller claims",
					zap.String("path", r.URL.Path),
					zap.Error(err))
				m.badRequest(w, "Malformed caller claims in token")
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			ctx = context.WithValue(ctx, TokenKey, token)
			ctx = models.WithCaller(ctx, caller)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireRole allows the request through only when the authenticated role
// is one of roles. It must run after RequireAuth.
func RequireRole(roles ...string) func(http.HandlerFunc) http.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if !allowed[GetRoleFromContext(r.Context())] {
				writeJSONError(w, http.StatusForbidden, "forbidden", "Role is not permitted to access this resource")
				return
			}
			next(w, r)
		}
	}
}

func (m *Middleware) unauthorized(w http.ResponseWriter, message string) {
	writeJSONError(w, http.StatusUnauthorized, "unauthorized", message)
}

func (m *Middleware) badRequest(w http.ResponseWriter, message string) {
	writeJSONError(w, http.StatusBadRequest, "bad_request", message)
}

func (m *Middleware) forbidden(w http.ResponseWriter, message string) {
	writeJSONError(w, http.StatusForbidden, "forbidden", message)
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}
