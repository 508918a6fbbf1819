package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/bosun-marine/bosun-engine/pkg/apperrors"
	"github.com/bosun-marine/bosun-engine/pkg/auth"
	"github.com/bosun-marine/bosun-engine/pkg/catalog"
	"github.com/bosun-marine/bosun-engine/pkg/models"
	"github.com/bosun-marine/bosun-engine/pkg/services"
)

// IdempotencyKeyHeader carries the client's retry key for mutating actions.
const IdempotencyKeyHeader = "Idempotency-Key"

// maxActionBody bounds the request body of an action invocation.
const maxActionBody = 1 << 20

// ExecuteActionRequest for POST /actions/{action}
type ExecuteActionRequest struct {
	Payload map[string]any `json:"payload"`
}

// ActionListResponse for GET /actions
type ActionListResponse struct {
	Actions []*models.ActionDefinition `json:"actions"`
	Total   int                        `json:"total"`
}

// ActionsHandler exposes the dispatcher and the role-filtered catalog.
type ActionsHandler struct {
	dispatcher services.Dispatcher
	catalog    *catalog.Catalog
	logger     *zap.Logger
}

// NewActionsHandler creates a new actions handler.
func NewActionsHandler(dispatcher services.Dispatcher, cat *catalog.Catalog, logger *zap.Logger) *ActionsHandler {
	return &ActionsHandler{
		dispatcher: dispatcher,
		catalog:    cat,
		logger:     logger,
	}
}

// RegisterRoutes registers the actions handler's routes on the given mux.
func (h *ActionsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, tenantMiddleware TenantMiddleware) {
	base := "/api/yachts/{yid}/actions"

	mux.HandleFunc("GET "+base,
		authMiddleware.RequireAuthWithPathValidation("yid")(h.List))
	mux.HandleFunc("POST "+base+"/{action}",
		authMiddleware.RequireAuthWithPathValidation("yid")(tenantMiddleware(h.Execute)))
}

// List handles GET /api/yachts/{yid}/actions
func (h *ActionsHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r, h.logger)
	if !ok {
		return
	}

	actions := h.catalog.ForRole(caller.Role)
	response := ActionListResponse{Actions: actions, Total: len(actions)}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Execute handles POST /api/yachts/{yid}/actions/{action}
func (h *ActionsHandler) Execute(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r, h.logger)
	if !ok {
		return
	}

	var body ExecuteActionRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxActionBody)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		WriteActionError(w, apperrors.Validation("payload", "request body is not valid JSON"), h.logger)
		return
	}

	req := &models.ActionRequest{
		ActionID:       r.PathValue("action"),
		Payload:        body.Payload,
		IdempotencyKey: r.Header.Get(IdempotencyKeyHeader),
	}

	result, err := h.dispatcher.Execute(r.Context(), caller, req)
	if err != nil {
		WriteActionError(w, err, h.logger)
		return
	}

	status := http.StatusOK
	if result.EntityID != nil && !result.Duplicate && !result.Replayed && h.creates(req.ActionID) {
		status = http.StatusCreated
	}
	if err := WriteJSON(w, status, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *ActionsHandler) creates(actionID string) bool {
	def, err := h.catalog.Lookup(actionID)
	return err == nil && def.Creates
}
