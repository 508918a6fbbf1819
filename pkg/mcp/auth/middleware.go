// Package mcpauth provides MCP-specific authentication middleware.
// It wraps the core auth service with RFC 6750 Bearer token error responses.
package mcpauth

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/bosun-marine/bosun-engine/pkg/auth"
	"github.com/bosun-marine/bosun-engine/pkg/models"
)

// Middleware provides MCP-specific authentication middleware.
// Unlike the general auth middleware, this returns RFC 6750 WWW-Authenticate
// headers for OAuth 2.0 Bearer token authentication errors.
type Middleware struct {
	authService auth.AuthService
	logger      *zap.Logger
}

// NewMiddleware creates a new MCP auth middleware.
func NewMiddleware(authService auth.AuthService, logger *zap.Logger) *Middleware {
	return &Middleware{
		authService: authService,
		logger:      logger,
	}
}

// RequireAuth validates the JWT and requires the yacht ID in the URL path
// to match the token. The pathParamName is the name used in r.PathValue().
// On success the claims, raw token and engine caller are in the context.
func (m *Middleware) RequireAuth(pathParamName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, token, err := m.authService.ValidateRequest(r)
			if err != nil {
				m.logger.Debug("MCP auth failed: invalid or missing token",
					zap.String("path", r.URL.Path),
					zap.Error(err))
				m.writeWWWAuthenticate(w, http.StatusUnauthorized, "invalid_token", "The access token is invalid or expired")
				return
			}

			if err := m.authService.RequireYachtID(claims); err != nil {
				m.logger.Debug("MCP auth failed: missing yacht or role",
					zap.String("path", r.URL.Path))
				m.writeWWWAuthenticate(w, http.StatusUnauthorized, "invalid_token", "The access token is missing required yacht scope")
				return
			}

			urlYachtID := r.PathValue(pathParamName)
			if urlYachtID == "" {
				m.logger.Error("MCP auth failed: missing yacht ID in URL path",
					zap.String("path", r.URL.Path),
					zap.String("path_param", pathParamName))
				m.writeWWWAuthenticate(w, http.StatusBadRequest, "invalid_request", "Missing yacht ID in URL")
				return
			}

			if err := m.authService.ValidateYachtIDMatch(claims, urlYachtID); err != nil {
				m.writeWWWAuthenticate(w, http.StatusForbidden, "insufficient_scope", "The access token does not have access to this yacht")
				return
			}

			caller, err := auth.CallerFromClaims(claims)
			if err != nil {
				m.logger.Warn("MCP auth failed: malformed caller claims", zap.Error(err))
				m.writeWWWAuthenticate(w, http.StatusUnauthorized, "invalid_token", "The access token carries malformed caller claims")
				return
			}

			ctx := context.WithValue(r.Context(), auth.ClaimsKey, claims)
			ctx = context.WithValue(ctx, auth.TokenKey, token)
			ctx = models.WithCaller(ctx, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeWWWAuthenticate writes an RFC 6750 Bearer token error response.
// See: https://datatracker.ietf.org/doc/html/rfc6750#section-3
func (m *Middleware) writeWWWAuthenticate(w http.ResponseWriter, status int, errorCode, description string) {
	headerValue := `Bearer error="` + errorCode + `", error_description="` + description + `"`
	w.Header().Set("WWW-Authenticate", headerValue)
	w.WriteHeader(status)
}
