package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// GetUserIDFromContext extracts the user ID from JWT claims in the context.
// Returns empty string if not authenticated or claims are missing.
func GetUserIDFromContext(ctx context.Context) string {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return ""
	}
	return claims.Subject
}

// GetYachtIDFromContext extracts the yacht ID from JWT claims in the context.
// Returns uuid.Nil if not authenticated or the claim is missing or malformed.
func GetYachtIDFromContext(ctx context.Context) uuid.UUID {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil || claims.YachtID == "" {
		return uuid.Nil
	}

	yachtID, err := uuid.Parse(claims.YachtID)
	if err != nil {
		return uuid.Nil
	}
	return yachtID
}

// GetRoleFromContext returns the role claim, or empty string.
func GetRoleFromContext(ctx context.Context) string {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return ""
	}
	return claims.Role
}

// RequireYachtIDFromContext extracts the yacht ID from context and returns an error if not found.
func RequireYachtIDFromContext(ctx context.Context) (uuid.UUID, error) {
	yachtID := GetYachtIDFromContext(ctx)
	if yachtID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("yacht ID not found in context")
	}
	return yachtID, nil
}
