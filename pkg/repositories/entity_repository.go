package repositories

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bosun-marine/bosun-engine/pkg/apperrors"
	"github.com/bosun-marine/bosun-engine/pkg/database"
	"github.com/bosun-marine/bosun-engine/pkg/models"
)

// EntityTables maps each entity type to the table holding it.
var EntityTables = map[string]string{
	models.EntityTypeWorkOrder:       "pms_work_orders",
	models.EntityTypePart:            "pms_parts",
	models.EntityTypePurchaseRequest: "pms_purchase_requests",
	models.EntityTypeCertificate:     "pms_certificates",
	models.EntityTypeEquipment:       "pms_equipment",
}

// TableFor returns the table for entityType.
func TableFor(entityType string) (string, error) {
	table, ok := EntityTables[entityType]
	if !ok {
		return "", fmt.Errorf("unknown entity type %q", entityType)
	}
	return table, nil
}

// EntityRepository reads entities generically and applies status-guarded updates.
type EntityRepository interface {
	// Get performs exactly one lookup scoped by id and yacht.
	// Returns apperrors.ErrNotFound if the row is absent or owned by another yacht.
	Get(ctx context.Context, entityType string, id, yachtID uuid.UUID) (*models.Entity, error)

	// Transition sets status to `to` and applies set, only while the row is
	// still in status `from`. Returns apperrors.ErrConflict if the row moved.
	Transition(ctx context.Context, entityType string, yachtID, id uuid.UUID, from, to string, set map[string]any) (*models.Entity, error)
}

type entityRepository struct{}

// NewEntityRepository creates a new EntityRepository.
func NewEntityRepository() EntityRepository {
	return &entityRepository{}
}

var _ EntityRepository = (*entityRepository)(nil)

func (r *entityRepository) Get(ctx context.Context, entityType string, id, yachtID uuid.UUID) (*models.Entity, error) {
	table, err := TableFor(entityType)
	if err != nil {
		return nil, err
	}
	q, err := database.GetQuerier(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT to_jsonb(t) FROM ` + table + ` t WHERE t.id = $1 AND t.yacht_id = $2`

	var row map[string]any
	if err := q.QueryRow(ctx, query, id, yachtID).Scan(&row); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", entityType, err)
	}
	return entityFromRow(entityType, row)
}

func (r *entityRepository) Transition(ctx context.Context, entityType string, yachtID, id uuid.UUID, from, to string, set map[string]any) (*models.Entity, error) {
	table, err := TableFor(entityType)
	if err != nil {
		return nil, err
	}
	q, err := database.GetQuerier(ctx)
	if err != nil {
		return nil, err
	}

	args := []any{id, yachtID, from, to}
	assignments := []string{"status = $4", "updated_at = now()"}

	// Column names come from handler code, never from the payload.
	cols := make([]string, 0, len(set))
	for col := range set {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		args = append(args, set[col])
		assignments = append(assignments, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	query := `UPDATE ` + table + ` AS t SET ` + strings.Join(assignments, ", ") + `
		WHERE t.id = $1 AND t.yacht_id = $2 AND t.status = $3
		RETURNING to_jsonb(t)`

	var row map[string]any
	if err := q.QueryRow(ctx, query, args...).Scan(&row); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrConflict
		}
		return nil, fmt.Errorf("failed to update %s: %w", entityType, err)
	}
	return entityFromRow(entityType, row)
}

// queryEntity runs a query returning a single to_jsonb row.
// Returns (nil, nil) when there is no row.
func queryEntity(ctx context.Context, entityType, query string, args ...any) (*models.Entity, error) {
	q, err := database.GetQuerier(ctx)
	if err != nil {
		return nil, err
	}
	var row map[string]any
	if err := q.QueryRow(ctx, query, args...).Scan(&row); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return entityFromRow(entityType, row)
}

func entityFromRow(entityType string, row map[string]any) (*models.Entity, error) {
	entity := &models.Entity{Type: entityType, Fields: make(map[string]any, len(row))}

	for k, v := range row {
		switch k {
		case "id", "yacht_id":
			s, _ := v.(string)
			parsed, err := uuid.Parse(s)
			if err != nil {
				return nil, fmt.Errorf("invalid %s in %s row: %w", k, entityType, err)
			}
			if k == "id" {
				entity.ID = parsed
			} else {
				entity.YachtID = parsed
			}
		case "status":
			entity.Status, _ = v.(string)
		default:
			entity.Fields[k] = v
		}
	}
	return entity, nil
}
