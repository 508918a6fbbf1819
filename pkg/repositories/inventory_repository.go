package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bosun-marine/bosun-engine/pkg/apperrors"
	"github.com/bosun-marine/bosun-engine/pkg/models"
)

// NewPurchaseRequest holds the columns supplied when a part is requested.
type NewPurchaseRequest struct {
	PartID      uuid.UUID
	Quantity    int64
	Urgency     string
	Note        *string
	RequestedBy uuid.UUID
}

// InventoryRepository covers stock levels and purchase requests.
type InventoryRepository interface {
	// AdjustStock adds delta (possibly negative) to quantity_on_hand. A
	// decrement that would take stock below zero changes nothing and returns
	// apperrors.ErrConflict.
	AdjustStock(ctx context.Context, yachtID, partID uuid.UUID, delta float64) (*models.Entity, error)

	// SetStock overwrites quantity_on_hand after a physical count.
	SetStock(ctx context.Context, yachtID, partID uuid.UUID, quantity int64) (*models.Entity, error)

	// CreatePurchaseRequest inserts a draft request unless an open one exists
	// for the same part, in which case that one is returned with created=false.
	CreatePurchaseRequest(ctx context.Context, yachtID uuid.UUID, req NewPurchaseRequest) (entity *models.Entity, created bool, err error)
}

type inventoryRepository struct{}

// NewInventoryRepository creates a new InventoryRepository.
func NewInventoryRepository() InventoryRepository {
	return &inventoryRepository{}
}

var _ InventoryRepository = (*inventoryRepository)(nil)

func (r *inventoryRepository) AdjustStock(ctx context.Context, yachtID, partID uuid.UUID, delta float64) (*models.Entity, error) {
	query := `
		UPDATE pms_parts AS t
		SET quantity_on_hand = t.quantity_on_hand + $3, updated_at = now()
		WHERE t.id = $1 AND t.yacht_id = $2 AND t.quantity_on_hand + $3 >= 0
		RETURNING to_jsonb(t)`

	entity, err := queryEntity(ctx, models.EntityTypePart, query, partID, yachtID, delta)
	if err != nil {
		return nil, fmt.Errorf("failed to adjust stock: %w", err)
	}
	if entity == nil {
		return nil, apperrors.ErrConflict
	}
	return entity, nil
}

func (r *inventoryRepository) SetStock(ctx context.Context, yachtID, partID uuid.UUID, quantity int64) (*models.Entity, error) {
	query := `
		UPDATE pms_parts AS t
		SET quantity_on_hand = $3, updated_at = now()
		WHERE t.id = $1 AND t.yacht_id = $2
		RETURNING to_jsonb(t)`

	entity, err := queryEntity(ctx, models.EntityTypePart, query, partID, yachtID, quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to set stock: %w", err)
	}
	if entity == nil {
		return nil, apperrors.ErrNotFound
	}
	return entity, nil
}

const openRequestQuery = `
	SELECT to_jsonb(t) FROM pms_purchase_requests t
	WHERE t.yacht_id = $1 AND t.part_id = $2
	  AND t.status IN ('draft', 'submitted', 'approved', 'ordered')`

func (r *inventoryRepository) CreatePurchaseRequest(ctx context.Context, yachtID uuid.UUID, req NewPurchaseRequest) (*models.Entity, bool, error) {
	existing, err := queryEntity(ctx, models.EntityTypePurchaseRequest, openRequestQuery, yachtID, req.PartID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check for open purchase request: %w", err)
	}
	if existing != nil {
		return existing, false, nil
	}

	query := `
		INSERT INTO pms_purchase_requests AS t (yacht_id, part_id, quantity, urgency, note, requested_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT DO NOTHING
		RETURNING to_jsonb(t)`

	created, err := queryEntity(ctx, models.EntityTypePurchaseRequest, query,
		yachtID, req.PartID, req.Quantity, req.Urgency, req.Note, req.RequestedBy)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create purchase request: %w", err)
	}
	if created != nil {
		return created, true, nil
	}

	existing, err = queryEntity(ctx, models.EntityTypePurchaseRequest, openRequestQuery, yachtID, req.PartID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load conflicting purchase request: %w", err)
	}
	if existing == nil {
		return nil, false, apperrors.ErrConflict
	}
	return existing, false, nil
}
