package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/bosun-marine/bosun-engine/pkg/apperrors"
	"github.com/bosun-marine/bosun-engine/pkg/auth"
	"github.com/bosun-marine/bosun-engine/pkg/models"
	"github.com/bosun-marine/bosun-engine/pkg/repositories"
	"github.com/bosun-marine/bosun-engine/pkg/services"
)

// AuditListResponse for GET /audit
type AuditListResponse struct {
	Entries []*models.AuditEntry `json:"entries"`
	Total   int                  `json:"total"`
}

// AuditHandler serves the action ledger to supervisory roles.
type AuditHandler struct {
	ledger services.AuditLedger
	logger *zap.Logger
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(ledger services.AuditLedger, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{ledger: ledger, logger: logger}
}

// RegisterRoutes registers the audit handler's routes on the given mux.
func (h *AuditHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, tenantMiddleware TenantMiddleware) {
	mux.HandleFunc("GET /api/yachts/{yid}/audit",
		authMiddleware.RequireAuthWithPathValidation("yid")(
			auth.RequireRole(models.RoleHOD, models.RoleCaptain, models.RoleManager)(tenantMiddleware(h.List))))
}

// List handles GET /api/yachts/{yid}/audit
// With entity_type and entity_id it returns that entity's history oldest
// first; otherwise the most recent entries for the yacht, up to limit.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r, h.logger)
	if !ok {
		return
	}

	entityID, ok := parseOptionalUUIDQuery(w, r, "entity_id", h.logger)
	if !ok {
		return
	}
	entityType := r.URL.Query().Get("entity_type")

	var entries []*models.AuditEntry
	var err error
	switch {
	case entityID != nil || entityType != "":
		if entityID == nil {
			WriteActionError(w, apperrors.Validation("entity_id", "required with entity_type"), h.logger)
			return
		}
		if _, tableErr := repositories.TableFor(entityType); tableErr != nil {
			WriteActionError(w, apperrors.Validation("entity_type", "unknown entity type"), h.logger)
			return
		}
		entries, err = h.ledger.ListByEntity(r.Context(), caller.YachtID, entityType, *entityID)
	default:
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil || limit < 1 {
				WriteActionError(w, apperrors.Validation("limit", "must be a positive integer"), h.logger)
				return
			}
		}
		entries, err = h.ledger.ListByYacht(r.Context(), caller.YachtID, limit)
	}
	if err != nil {
		h.logger.Error("Failed to list audit entries",
			zap.String("yacht_id", caller.YachtID.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "list_audit_failed", "Failed to list audit entries"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if entries == nil {
		entries = []*models.AuditEntry{}
	}

	response := AuditListResponse{Entries: entries, Total: len(entries)}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
