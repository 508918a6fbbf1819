package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bosun-marine/bosun-engine/pkg/apperrors"
	"github.com/bosun-marine/bosun-engine/pkg/auth"
	"github.com/bosun-marine/bosun-engine/pkg/models"
	"github.com/bosun-marine/bosun-engine/pkg/repositories"
	"github.com/bosun-marine/bosun-engine/pkg/services"
)

// SuggestRequest for POST /actions/suggest
type SuggestRequest struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Intent     string `json:"intent,omitempty"`
}

// SuggestResponse for POST /actions/suggest
type SuggestResponse struct {
	EntityType       string                         `json:"entity_type"`
	EntityID         uuid.UUID                      `json:"entity_id"`
	SuggestedActions []models.MicroactionSuggestion `json:"suggested_actions"`
}

// SuggestHandler ranks follow-up actions for a search result entity.
type SuggestHandler struct {
	ownership   services.OwnershipValidator
	suggestions services.SuggestionService
	logger      *zap.Logger
}

// NewSuggestHandler creates a new suggest handler.
func NewSuggestHandler(ownership services.OwnershipValidator, suggestions services.SuggestionService, logger *zap.Logger) *SuggestHandler {
	return &SuggestHandler{
		ownership:   ownership,
		suggestions: suggestions,
		logger:      logger,
	}
}

// RegisterRoutes registers the suggest handler's routes on the given mux.
func (h *SuggestHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, tenantMiddleware TenantMiddleware) {
	mux.HandleFunc("POST /api/yachts/{yid}/actions/suggest",
		authMiddleware.RequireAuthWithPathValidation("yid")(tenantMiddleware(h.Suggest)))
}

// Suggest handles POST /api/yachts/{yid}/actions/suggest
func (h *SuggestHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r, h.logger)
	if !ok {
		return
	}

	var req SuggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteActionError(w, apperrors.Validation("payload", "request body is not valid JSON"), h.logger)
		return
	}

	entityType := services.NormalizeEntityType(req.EntityType)
	if _, err := repositories.TableFor(entityType); err != nil {
		WriteActionError(w, apperrors.Validation("entity_type", "unknown entity type"), h.logger)
		return
	}
	entityID, err := uuid.Parse(req.EntityID)
	if err != nil {
		WriteActionError(w, apperrors.Validation("entity_id", "must be a UUID"), h.logger)
		return
	}

	entity, err := h.ownership.Verify(r.Context(), entityType, entityID, caller.YachtID)
	if err != nil {
		WriteActionError(w, err, h.logger)
		return
	}

	response := SuggestResponse{
		EntityType:       entityType,
		EntityID:         entityID,
		SuggestedActions: h.suggestions.Suggest(entity, caller.Role, req.Intent),
	}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
