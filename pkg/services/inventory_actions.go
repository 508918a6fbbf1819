package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/bosun-marine/bosun-engine/pkg/apperrors"
	"github.com/bosun-marine/bosun-engine/pkg/validation"
)

func (h *ActionHandlers) inventoryHandlers() map[string]ActionHandler {
	return map[string]ActionHandler{
		"view_part":          view,
		"restock_part":       h.restockPart,
		"consume_part":       h.consumePart,
		"adjust_stock_count": h.adjustStockCount,
	}
}

func (h *ActionHandlers) restockPart(ctx context.Context, ac *ActionContext) (*Outcome, error) {
	quantity, _ := validation.Number(ac.Payload, "quantity")
	part, err := h.inventory.AdjustStock(ctx, ac.Caller.YachtID, ac.Target.ID, quantity)
	if err != nil {
		return nil, err
	}
	return &Outcome{Entity: part}, nil
}

// consumePart decrements stock only if enough is on hand. When a work order
// is referenced the usage is noted on it.
func (h *ActionHandlers) consumePart(ctx context.Context, ac *ActionContext) (*Outcome, error) {
	quantity, _ := validation.Number(ac.Payload, "quantity")
	part, err := h.inventory.AdjustStock(ctx, ac.Caller.YachtID, ac.Target.ID, -quantity)
	if errors.Is(err, apperrors.ErrConflict) {
		return nil, apperrors.Validation("quantity", "insufficient stock")
	}
	if err != nil {
		return nil, err
	}

	if wo, ok := ac.References["work_order_id"]; ok {
		name, _ := part.Fields["name"].(string)
		body := fmt.Sprintf("Used %g x %s", quantity, name)
		if _, err := h.workOrders.AddNote(ctx, ac.Caller.YachtID, wo.ID, ac.Caller.UserID, body); err != nil {
			return nil, err
		}
	}
	return &Outcome{Entity: part}, nil
}

func (h *ActionHandlers) adjustStockCount(ctx context.Context, ac *ActionContext) (*Outcome, error) {
	counted, _ := validation.Int(ac.Payload, "new_quantity")
	part, err := h.inventory.SetStock(ctx, ac.Caller.YachtID, ac.Target.ID, counted)
	if err != nil {
		return nil, err
	}
	return &Outcome{Entity: part}, nil
}
