package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bosun-marine/bosun-engine/pkg/apperrors"
	"github.com/bosun-marine/bosun-engine/pkg/database"
	"github.com/bosun-marine/bosun-engine/pkg/models"
)

// NewWorkOrder holds the columns supplied when a work order is raised.
type NewWorkOrder struct {
	Title       string
	Description *string
	Priority    string
	EquipmentID *uuid.UUID
	CreatedBy   uuid.UUID
}

// WorkOrderRepository provides the writes specific to work orders.
// Status changes go through EntityRepository.Transition.
type WorkOrderRepository interface {
	// Create inserts a work order unless a live one with the same title and
	// equipment exists, in which case that one is returned with created=false.
	Create(ctx context.Context, yachtID uuid.UUID, wo NewWorkOrder) (entity *models.Entity, created bool, err error)

	// AddNote appends a note to a work order and returns the note id.
	AddNote(ctx context.Context, yachtID, workOrderID, authorID uuid.UUID, body string) (uuid.UUID, error)
}

type workOrderRepository struct{}

// NewWorkOrderRepository creates a new WorkOrderRepository.
func NewWorkOrderRepository() WorkOrderRepository {
	return &workOrderRepository{}
}

var _ WorkOrderRepository = (*workOrderRepository)(nil)

const liveWorkOrderQuery = `
	SELECT to_jsonb(t) FROM pms_work_orders t
	WHERE t.yacht_id = $1
	  AND lower(t.title) = lower($2)
	  AND coalesce(t.equipment_id, '00000000-0000-0000-0000-000000000000'::uuid)
	      = coalesce($3::uuid, '00000000-0000-0000-0000-000000000000'::uuid)
	  AND t.status IN ('open', 'in_progress', 'on_hold')`

func (r *workOrderRepository) Create(ctx context.Context, yachtID uuid.UUID, wo NewWorkOrder) (*models.Entity, bool, error) {
	existing, err := queryEntity(ctx, models.EntityTypeWorkOrder, liveWorkOrderQuery, yachtID, wo.Title, wo.EquipmentID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check for duplicate work order: %w", err)
	}
	if existing != nil {
		return existing, false, nil
	}

	query := `
		INSERT INTO pms_work_orders AS t (yacht_id, title, description, priority, equipment_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT DO NOTHING
		RETURNING to_jsonb(t)`

	created, err := queryEntity(ctx, models.EntityTypeWorkOrder, query,
		yachtID, wo.Title, wo.Description, wo.Priority, wo.EquipmentID, wo.CreatedBy)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create work order: %w", err)
	}
	if created != nil {
		return created, true, nil
	}

	// Lost the race against a concurrent identical request.
	existing, err = queryEntity(ctx, models.EntityTypeWorkOrder, liveWorkOrderQuery, yachtID, wo.Title, wo.EquipmentID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load conflicting work order: %w", err)
	}
	if existing == nil {
		return nil, false, apperrors.ErrConflict
	}
	return existing, false, nil
}

func (r *workOrderRepository) AddNote(ctx context.Context, yachtID, workOrderID, authorID uuid.UUID, body string) (uuid.UUID, error) {
	q, err := database.GetQuerier(ctx)
	if err != nil {
		return uuid.Nil, err
	}

	var id uuid.UUID
	err = q.QueryRow(ctx, `
		INSERT INTO pms_work_order_notes (yacht_id, work_order_id, author_id, body)
		VALUES ($1, $2, $3, $4)
		RETURNING id`, yachtID, workOrderID, authorID, body).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to add work order note: %w", err)
	}
	return id, nil
}
