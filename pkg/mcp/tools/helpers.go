package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bosun-marine/bosun-engine/pkg/models"
)

// TenantScoper opens a yacht-scoped database context for a tool call.
type TenantScoper interface {
	WithTenantScope(ctx context.Context, yachtID uuid.UUID) (context.Context, func(), error)
}

// trimString removes leading and trailing whitespace from a string.
func trimString(s string) string {
	return strings.TrimSpace(s)
}

// getOptionalString extracts an optional string argument from the request.
func getOptionalString(req mcp.CallToolRequest, key string) string {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return ""
	}
	val, _ := args[key].(string)
	return val
}

// getOptionalObject extracts an optional object argument from the request.
func getOptionalObject(req mcp.CallToolRequest, key string) map[string]any {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return nil
	}
	val, _ := args[key].(map[string]any)
	return val
}

// callerScope returns the authenticated caller and, when scoper is set, a
// context bound to the caller's yacht. cleanup is always safe to call.
func callerScope(ctx context.Context, scoper TenantScoper) (models.Caller, context.Context, func(), error) {
	caller, ok := models.GetCaller(ctx)
	if !ok {
		return models.Caller{}, nil, nil, fmt.Errorf("authentication required")
	}
	if scoper == nil {
		return caller, ctx, func() {}, nil
	}
	tenantCtx, cleanup, err := scoper.WithTenantScope(ctx, caller.YachtID)
	if err != nil {
		return models.Caller{}, nil, nil, fmt.Errorf("failed to acquire database connection: %w", err)
	}
	return caller, tenantCtx, cleanup, nil
}
