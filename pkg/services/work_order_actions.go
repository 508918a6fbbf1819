package services

import (
	"context"

	"github.com/bosun-marine/bosun-engine/pkg/repositories"
	"github.com/bosun-marine/bosun-engine/pkg/validation"
)

func (h *ActionHandlers) workOrderHandlers() map[string]ActionHandler {
	return map[string]ActionHandler{
		"view_work_order":         view,
		"create_work_order":       h.createWorkOrder,
		"start_work_order":        h.statusChange(nil),
		"add_work_order_note":     h.addWorkOrderNote,
		"attach_work_order_photo": h.attachWorkOrderPhoto,
		"put_work_order_on_hold":  h.statusChange(withReason),
		"resume_work_order": h.statusChange(func(*ActionContext) map[string]any {
			return map[string]any{"status_reason": nil}
		}),
		"complete_work_order": h.statusChange(func(ac *ActionContext) map[string]any {
			return map[string]any{
				"completed_at":  h.now().UTC(),
				"status_reason": optionalString(ac.Payload, "completion_notes"),
			}
		}),
		"close_work_order": h.statusChange(func(*ActionContext) map[string]any {
			return map[string]any{"closed_at": h.now().UTC()}
		}),
		"cancel_work_order": h.statusChange(withReason),
		"reopen_work_order": h.statusChange(func(ac *ActionContext) map[string]any {
			return map[string]any{
				"completed_at":  nil,
				"closed_at":     nil,
				"status_reason": optionalString(ac.Payload, "reason"),
			}
		}),
	}
}

func (h *ActionHandlers) createWorkOrder(ctx context.Context, ac *ActionContext) (*Outcome, error) {
	title, _ := validation.String(ac.Payload, "title")
	priority, _ := validation.String(ac.Payload, "priority")

	wo := repositories.NewWorkOrder{
		Title:       title,
		Description: stringPtr(ac.Payload, "description"),
		Priority:    priority,
		CreatedBy:   ac.Caller.UserID,
	}
	if id, ok := validation.UUID(ac.Payload, "equipment_id"); ok {
		wo.EquipmentID = &id
	}

	entity, created, err := h.workOrders.Create(ctx, ac.Caller.YachtID, wo)
	if err != nil {
		return nil, err
	}
	return &Outcome{Entity: entity, Duplicate: !created}, nil
}

// addWorkOrderNote touches the work order through a same-status transition
// so a note cannot land on an order that was closed concurrently.
func (h *ActionHandlers) addWorkOrderNote(ctx context.Context, ac *ActionContext) (*Outcome, error) {
	outcome, err := h.transition(ctx, ac, nil)
	if err != nil {
		return nil, err
	}

	body, _ := validation.String(ac.Payload, "note")
	noteID, err := h.workOrders.AddNote(ctx, ac.Caller.YachtID, ac.Target.ID, ac.Caller.UserID, body)
	if err != nil {
		return nil, err
	}

	outcome.Data = map[string]any{
		"note_id":    noteID,
		"work_order": outcome.Entity,
	}
	return outcome, nil
}

func (h *ActionHandlers) attachWorkOrderPhoto(ctx context.Context, ac *ActionContext) (*Outcome, error) {
	outcome, err := h.transition(ctx, ac, nil)
	if err != nil {
		return nil, err
	}
	return h.recordAttachment(ctx, ac, outcome)
}

// recordAttachment stores the resolved storage path against the target.
func (h *ActionHandlers) recordAttachment(ctx context.Context, ac *ActionContext, outcome *Outcome) (*Outcome, error) {
	att := &repositories.Attachment{
		YachtID:    ac.Caller.YachtID,
		EntityType: ac.Target.Type,
		EntityID:   ac.Target.ID,
		Bucket:     ac.Definition.Storage.Bucket,
		Path:       ac.StoragePath,
		UploadedBy: ac.Caller.UserID,
	}
	if err := h.attachments.Record(ctx, att); err != nil {
		return nil, err
	}

	outcome.Data = map[string]any{
		"attachment_id": att.ID,
		"bucket":        att.Bucket,
		"path":          att.Path,
		"entity":        outcome.Entity,
	}
	return outcome, nil
}
