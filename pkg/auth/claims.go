// Package auth turns an already-issued JWT into a caller context.
// Tokens are issued by the fleet identity service; this package only
// verifies them against its JWKS endpoints and never mints credentials.
package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bosun-marine/bosun-engine/pkg/models"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsKey is the context key for storing JWT claims.
	ClaimsKey contextKey = "claims"
	// TokenKey is the context key for storing the raw JWT token string.
	TokenKey contextKey = "token"
)

// Claims represents the JWT claims issued by the identity service.
// It embeds RegisteredClaims for standard JWT fields (sub, iss, exp, etc.)
// and adds the yacht the user is currently signed in to and their role aboard.
type Claims struct {
	jwt.RegisteredClaims
	YachtID string `json:"yid,omitempty"`   // Yacht UUID (tenant)
	Role    string `json:"role,omitempty"`  // crew, hod, captain or manager
	Email   string `json:"email,omitempty"` // User email address
}

// GetClaims retrieves JWT claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// GetToken retrieves the raw JWT token string from the request context.
// Returns empty string and false if token is not present.
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}

// CallerFromClaims builds the engine caller from verified claims.
// The subject and yacht id must be UUIDs and the role must be known.
func CallerFromClaims(claims *Claims) (models.Caller, error) {
	if claims == nil {
		return models.Caller{}, fmt.Errorf("authentication required: no claims")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return models.Caller{}, fmt.Errorf("invalid user ID in JWT claims: %w", err)
	}
	yachtID, err := uuid.Parse(claims.YachtID)
	if err != nil {
		return models.Caller{}, fmt.Errorf("invalid yacht ID in JWT claims: %w", err)
	}
	if !models.IsValidRole(claims.Role) {
		return models.Caller{}, ErrInvalidRole
	}
	return models.Caller{UserID: userID, Role: claims.Role, YachtID: yachtID}, nil
}
