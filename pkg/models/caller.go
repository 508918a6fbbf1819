package models

import (
	"context"

	"github.com/google/uuid"
)

// Caller is the already-authenticated identity invoking an action.
// It is resolved from JWT claims by the transport layer; the engine never
// parses credentials itself.
type Caller struct {
	UserID  uuid.UUID
	Role    string
	YachtID uuid.UUID
}

type callerKey struct{}

// WithCaller returns a new context with the caller attached.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// GetCaller retrieves the caller from the context.
func GetCaller(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}
