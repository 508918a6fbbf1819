package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/bosun-marine/bosun-engine/pkg/apperrors"
	"github.com/bosun-marine/bosun-engine/pkg/catalog"
	"github.com/bosun-marine/bosun-engine/pkg/models"
	"github.com/bosun-marine/bosun-engine/pkg/repositories"
	"github.com/bosun-marine/bosun-engine/pkg/services"
)

// ActionToolDeps contains the dependencies for the action tools.
type ActionToolDeps struct {
	Dispatcher  services.Dispatcher
	Catalog     *catalog.Catalog
	Ownership   services.OwnershipValidator
	Suggestions services.SuggestionService
	// TenantScope is optional; without it tools run on the incoming context.
	TenantScope TenantScoper
	Logger      *zap.Logger
}

// RegisterActionTools adds execute_action, suggest_actions and list_actions.
func RegisterActionTools(s *server.MCPServer, deps *ActionToolDeps) {
	registerExecuteActionTool(s, deps)
	registerSuggestActionsTool(s, deps)
	registerListActionsTool(s, deps)
}

func registerExecuteActionTool(s *server.MCPServer, deps *ActionToolDeps) {
	tool := mcp.NewTool(
		"execute_action",
		mcp.WithDescription(
			"Execute a registered maintenance action on behalf of the signed-in crew member. "+
				"Use list_actions to discover action ids and their payload fields, or suggest_actions "+
				"to get pre-filled actions for a search result. SIGNED actions need a signature object "+
				"in the payload. Errors come back with a machine-readable code such as FORBIDDEN or INVALID_TRANSITION.",
		),
		mcp.WithString(
			"action_id",
			mcp.Required(),
			mcp.Description("Catalog id of the action, e.g. 'start_work_order'"),
		),
		mcp.WithObject(
			"payload",
			mcp.Description("Action fields as key-value pairs matching the action's field definitions"),
		),
		mcp.WithString(
			"idempotency_key",
			mcp.Description("Optional key; retrying with the same key returns the first result instead of repeating the action"),
		),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		actionID, err := req.RequireString("action_id")
		if err != nil {
			return nil, err
		}

		caller, tenantCtx, cleanup, err := callerScope(ctx, deps.TenantScope)
		if err != nil {
			return nil, err
		}
		defer cleanup()

		result, err := deps.Dispatcher.Execute(tenantCtx, caller, &models.ActionRequest{
			ActionID:       trimString(actionID),
			Payload:        getOptionalObject(req, "payload"),
			IdempotencyKey: getOptionalString(req, "idempotency_key"),
		})
		if err != nil {
			return actionErrorResult(err, deps.Logger)
		}

		return jsonResult(result)
	})
}

func registerSuggestActionsTool(s *server.MCPServer, deps *ActionToolDeps) {
	tool := mcp.NewTool(
		"suggest_actions",
		mcp.WithDescription(
			"Rank the follow-up actions for a search result entity, filtered to the caller's role "+
				"and the entity's current status, with payloads pre-filled. Pass an intent such as "+
				"'order' or 'close' to boost matching actions.",
		),
		mcp.WithString(
			"entity_type",
			mcp.Required(),
			mcp.Description("One of work_order, part, purchase_request, certificate, equipment"),
		),
		mcp.WithString(
			"entity_id",
			mcp.Required(),
			mcp.Description("UUID of the entity"),
		),
		mcp.WithString(
			"intent",
			mcp.Description("Optional free-text intent from the user's query"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		entityType, err := req.RequireString("entity_type")
		if err != nil {
			return nil, err
		}
		entityType = services.NormalizeEntityType(entityType)
		if _, err := repositories.TableFor(entityType); err != nil {
			return NewActionErrorResult(apperrors.Validation("entity_type", "unknown entity type")), nil
		}

		entityIDStr, err := req.RequireString("entity_id")
		if err != nil {
			return nil, err
		}
		entityID, err := uuid.Parse(trimString(entityIDStr))
		if err != nil {
			return NewActionErrorResult(apperrors.Validation("entity_id", "must be a UUID")), nil
		}

		caller, tenantCtx, cleanup, err := callerScope(ctx, deps.TenantScope)
		if err != nil {
			return nil, err
		}
		defer cleanup()

		entity, err := deps.Ownership.Verify(tenantCtx, entityType, entityID, caller.YachtID)
		if err != nil {
			return actionErrorResult(err, deps.Logger)
		}

		return jsonResult(struct {
			EntityType       string                         `json:"entity_type"`
			EntityID         uuid.UUID                      `json:"entity_id"`
			SuggestedActions []models.MicroactionSuggestion `json:"suggested_actions"`
		}{
			EntityType:       entityType,
			EntityID:         entityID,
			SuggestedActions: deps.Suggestions.Suggest(entity, caller.Role, getOptionalString(req, "intent")),
		})
	})
}

// listedAction is the list_actions view of a catalog entry.
type listedAction struct {
	ID      string               `json:"id"`
	Label   string               `json:"label"`
	Variant models.ActionVariant `json:"variant"`
	Domain  string               `json:"domain"`
	Fields  []models.FieldSpec   `json:"fields"`
}

func registerListActionsTool(s *server.MCPServer, deps *ActionToolDeps) {
	tool := mcp.NewTool(
		"list_actions",
		mcp.WithDescription(
			"List the actions the caller's role may execute, with their payload fields. "+
				"Optionally filter to one domain.",
		),
		mcp.WithString(
			"domain",
			mcp.Description("Optional domain filter: work_order, part, purchase_request, certificate or equipment"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		caller, ok := models.GetCaller(ctx)
		if !ok {
			return nil, fmt.Errorf("authentication required")
		}
		domain := services.NormalizeEntityType(getOptionalString(req, "domain"))

		actions := []listedAction{}
		for _, def := range deps.Catalog.ForRole(caller.Role) {
			if domain != "" && def.Domain != domain {
				continue
			}
			actions = append(actions, listedAction{
				ID:      def.ID,
				Label:   def.Label,
				Variant: def.Variant,
				Domain:  def.Domain,
				Fields:  def.Fields,
			})
		}

		return jsonResult(struct {
			Actions []listedAction `json:"actions"`
			Count   int            `json:"count"`
		}{Actions: actions, Count: len(actions)})
	})
}

// actionErrorResult turns an engine error into a tool error result. Errors
// without a kind are infrastructure failures and surface as Go errors.
func actionErrorResult(err error, logger *zap.Logger) (*mcp.CallToolResult, error) {
	actionErr, ok := apperrors.AsActionError(err)
	if !ok {
		logger.Error("Unclassified error in MCP tool", zap.Error(err))
		return nil, fmt.Errorf("action failed")
	}
	return NewActionErrorResult(actionErr), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
