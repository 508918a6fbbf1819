package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/bosun-marine/bosun-engine/pkg/apperrors"
	"github.com/bosun-marine/bosun-engine/pkg/repositories"
	"github.com/bosun-marine/bosun-engine/pkg/validation"
)

// ActionHandlers holds the repositories the domain handlers write through.
type ActionHandlers struct {
	entities     repositories.EntityRepository
	workOrders   repositories.WorkOrderRepository
	inventory    repositories.InventoryRepository
	certificates repositories.CertificateRepository
	attachments  repositories.AttachmentRepository
	now          func() time.Time
	logger       *zap.Logger
}

// ActionRepositories groups the repositories used by the domain handlers.
type ActionRepositories struct {
	Entities     repositories.EntityRepository
	WorkOrders   repositories.WorkOrderRepository
	Inventory    repositories.InventoryRepository
	Certificates repositories.CertificateRepository
	Attachments  repositories.AttachmentRepository
}

// NewActionHandlers creates the domain handlers.
func NewActionHandlers(repos ActionRepositories, logger *zap.Logger) *ActionHandlers {
	return &ActionHandlers{
		entities:     repos.Entities,
		workOrders:   repos.WorkOrders,
		inventory:    repos.Inventory,
		certificates: repos.Certificates,
		attachments:  repos.Attachments,
		now:          time.Now,
		logger:       logger.Named("actions"),
	}
}

// Map returns every handler keyed by action id.
func (h *ActionHandlers) Map() map[string]ActionHandler {
	handlers := make(map[string]ActionHandler)
	for _, group := range []map[string]ActionHandler{
		h.workOrderHandlers(),
		h.inventoryHandlers(),
		h.purchasingHandlers(),
		h.certificateHandlers(),
		h.equipmentHandlers(),
	} {
		for id, handler := range group {
			if _, dup := handlers[id]; dup {
				// Registration is static; a duplicate is a programming error.
				panic("duplicate action handler: " + id)
			}
			handlers[id] = handler
		}
	}
	return handlers
}

// view returns the already-verified target.
func view(_ context.Context, ac *ActionContext) (*Outcome, error) {
	return &Outcome{Entity: ac.Target}, nil
}

// transition moves the target to the status STATE_CHECK resolved, applying
// set in the same statement. A row that moved since it was read reports
// INVALID_TRANSITION.
func (h *ActionHandlers) transition(ctx context.Context, ac *ActionContext, set map[string]any) (*Outcome, error) {
	target := ac.Target
	updated, err := h.entities.Transition(ctx, target.Type, ac.Caller.YachtID, target.ID, target.Status, ac.NextStatus, set)
	if errors.Is(err, apperrors.ErrConflict) {
		return nil, apperrors.InvalidTransition(target.Status, ac.Definition.ID)
	}
	if err != nil {
		return nil, err
	}
	return &Outcome{Entity: updated}, nil
}

// statusChange builds a handler that only transitions the target. columns,
// when non-nil, derives the extra columns from the payload.
func (h *ActionHandlers) statusChange(columns func(ac *ActionContext) map[string]any) ActionHandler {
	return func(ctx context.Context, ac *ActionContext) (*Outcome, error) {
		var set map[string]any
		if columns != nil {
			set = columns(ac)
		}
		return h.transition(ctx, ac, set)
	}
}

// withReason records the payload's reason field as status_reason.
func withReason(ac *ActionContext) map[string]any {
	return map[string]any{"status_reason": optionalString(ac.Payload, "reason")}
}

// optionalString returns a trimmed payload string or nil, for nullable columns.
func optionalString(payload map[string]any, name string) any {
	if s, ok := validation.String(payload, name); ok {
		return s
	}
	return nil
}

func stringPtr(payload map[string]any, name string) *string {
	if s, ok := validation.String(payload, name); ok {
		return &s
	}
	return nil
}
