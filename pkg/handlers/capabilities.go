package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/bosun-marine/bosun-engine/pkg/auth"
	"github.com/bosun-marine/bosun-engine/pkg/lenses"
	"github.com/bosun-marine/bosun-engine/pkg/models"
)

// CapabilitiesResponse for GET /capabilities
type CapabilitiesResponse struct {
	Capabilities []models.Capability `json:"capabilities"`
	// Unresolved lists requested entity types no lens maps.
	Unresolved []string `json:"unresolved"`
}

// CapabilitiesHandler resolves recognized entity types to searchable capabilities.
type CapabilitiesHandler struct {
	registry *lenses.Registry
	logger   *zap.Logger
}

// NewCapabilitiesHandler creates a new capabilities handler.
func NewCapabilitiesHandler(registry *lenses.Registry, logger *zap.Logger) *CapabilitiesHandler {
	return &CapabilitiesHandler{registry: registry, logger: logger}
}

// RegisterRoutes registers the capabilities handler's routes on the given mux.
func (h *CapabilitiesHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/yachts/{yid}/capabilities",
		authMiddleware.RequireAuthWithPathValidation("yid")(h.Resolve))
}

// Resolve handles GET /api/yachts/{yid}/capabilities?entity_types=a,b
// Without entity_types it returns every lens definition.
func (h *CapabilitiesHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("entity_types")
	if raw == "" {
		if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: h.registry.Lenses()}); err != nil {
			h.logger.Error("Failed to write response", zap.Error(err))
		}
		return
	}

	var entityTypes []string
	seen := make(map[string]bool)
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" && !seen[t] {
			seen[t] = true
			entityTypes = append(entityTypes, t)
		}
	}

	response := CapabilitiesResponse{
		Capabilities: h.registry.ResolveAll(entityTypes),
		Unresolved:   []string{},
	}
	if response.Capabilities == nil {
		response.Capabilities = []models.Capability{}
	}
	for _, t := range entityTypes {
		if _, ok := h.registry.Resolve(t); !ok {
			response.Unresolved = append(response.Unresolved, t)
		}
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
