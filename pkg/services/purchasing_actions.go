package services

import (
	"context"
	"errors"

	"github.com/bosun-marine/bosun-engine/pkg/apperrors"
	"github.com/bosun-marine/bosun-engine/pkg/repositories"
	"github.com/bosun-marine/bosun-engine/pkg/validation"
)

func (h *ActionHandlers) purchasingHandlers() map[string]ActionHandler {
	return map[string]ActionHandler{
		"create_purchase_request": h.createPurchaseRequest,
		"view_purchase_request":   view,
		"submit_request":          h.statusChange(nil),
		"approve_request": h.statusChange(func(ac *ActionContext) map[string]any {
			return map[string]any{"approved_by": ac.Caller.UserID}
		}),
		"reject_request": h.statusChange(withReason),
		"mark_request_ordered": h.statusChange(func(ac *ActionContext) map[string]any {
			return map[string]any{
				"supplier":        optionalString(ac.Payload, "supplier"),
				"order_reference": optionalString(ac.Payload, "order_reference"),
			}
		}),
		"receive_request": h.receiveRequest,
		"cancel_request":  h.statusChange(nil),
	}
}

func (h *ActionHandlers) createPurchaseRequest(ctx context.Context, ac *ActionContext) (*Outcome, error) {
	partID, _ := validation.UUID(ac.Payload, "part_id")
	quantity, _ := validation.Int(ac.Payload, "quantity")
	urgency, _ := validation.String(ac.Payload, "urgency")

	entity, created, err := h.inventory.CreatePurchaseRequest(ctx, ac.Caller.YachtID, repositories.NewPurchaseRequest{
		PartID:      partID,
		Quantity:    quantity,
		Urgency:     urgency,
		Note:        stringPtr(ac.Payload, "note"),
		RequestedBy: ac.Caller.UserID,
	})
	if err != nil {
		return nil, err
	}
	return &Outcome{Entity: entity, Duplicate: !created}, nil
}

// receiveRequest closes the request and books the quantity into stock in the
// same transaction.
func (h *ActionHandlers) receiveRequest(ctx context.Context, ac *ActionContext) (*Outcome, error) {
	outcome, err := h.transition(ctx, ac, nil)
	if err != nil {
		return nil, err
	}

	partID, err := uuidField(outcome.Entity.Fields, "part_id")
	if err != nil {
		return nil, err
	}
	quantity, ok := outcome.Entity.NumberField("quantity")
	if !ok {
		return nil, errors.New("purchase request has no quantity")
	}

	part, err := h.inventory.AdjustStock(ctx, ac.Caller.YachtID, partID, quantity)
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, errors.New("stock increment was rejected")
		}
		return nil, err
	}

	outcome.Data = map[string]any{
		"purchase_request": outcome.Entity,
		"part":             part,
	}
	return outcome, nil
}
