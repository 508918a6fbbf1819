package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bosun-marine/bosun-engine/pkg/database"
	"github.com/bosun-marine/bosun-engine/pkg/models"
)

// AuditRepository provides data access for the append-only action ledger.
// It has no update or delete method.
type AuditRepository interface {
	// Append inserts a new ledger entry.
	Append(ctx context.Context, entry *models.AuditEntry) error

	// ListByEntity returns entries for one entity, oldest first.
	ListByEntity(ctx context.Context, yachtID uuid.UUID, entityType string, entityID uuid.UUID) ([]*models.AuditEntry, error)

	// ListByYacht returns the most recent entries for a yacht, newest first.
	ListByYacht(ctx context.Context, yachtID uuid.UUID, limit int) ([]*models.AuditEntry, error)
}

type auditRepository struct{}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository() AuditRepository {
	return &auditRepository{}
}

var _ AuditRepository = (*auditRepository)(nil)

const auditColumns = `id, yacht_id, action_id, actor_id, actor_role, entity_type, entity_id,
	prior_state, new_state, signature, created_at`

func (r *auditRepository) Append(ctx context.Context, entry *models.AuditEntry) error {
	q, err := database.GetQuerier(ctx)
	if err != nil {
		return err
	}

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	prior, err := marshalNullable(entry.PriorState)
	if err != nil {
		return fmt.Errorf("failed to marshal prior_state: %w", err)
	}
	next, err := marshalNullable(entry.NewState)
	if err != nil {
		return fmt.Errorf("failed to marshal new_state: %w", err)
	}
	var signature []byte
	if entry.Signature != nil {
		if signature, err = json.Marshal(entry.Signature); err != nil {
			return fmt.Errorf("failed to marshal signature: %w", err)
		}
	}

	var entityType *string
	if entry.EntityType != "" {
		entityType = &entry.EntityType
	}

	query := `
		INSERT INTO pms_audit_log (` + auditColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = q.Exec(ctx, query,
		entry.ID,
		entry.YachtID,
		entry.ActionID,
		entry.ActorID,
		entry.ActorRole,
		entityType,
		entry.EntityID,
		prior,
		next,
		signature,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func (r *auditRepository) ListByEntity(ctx context.Context, yachtID uuid.UUID, entityType string, entityID uuid.UUID) ([]*models.AuditEntry, error) {
	query := `SELECT ` + auditColumns + `
		FROM pms_audit_log
		WHERE yacht_id = $1 AND entity_type = $2 AND entity_id = $3
		ORDER BY created_at, id`
	return r.list(ctx, query, yachtID, entityType, entityID)
}

func (r *auditRepository) ListByYacht(ctx context.Context, yachtID uuid.UUID, limit int) ([]*models.AuditEntry, error) {
	query := `SELECT ` + auditColumns + `
		FROM pms_audit_log
		WHERE yacht_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2`
	return r.list(ctx, query, yachtID, limit)
}

func (r *auditRepository) list(ctx context.Context, query string, args ...any) ([]*models.AuditEntry, error) {
	q, err := database.GetQuerier(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []*models.AuditEntry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}
	return entries, nil
}

func scanAuditEntry(row pgx.Row) (*models.AuditEntry, error) {
	var entry models.AuditEntry
	var entityType *string
	var prior, next, signature []byte

	err := row.Scan(
		&entry.ID,
		&entry.YachtID,
		&entry.ActionID,
		&entry.ActorID,
		&entry.ActorRole,
		&entityType,
		&entry.EntityID,
		&prior,
		&next,
		&signature,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan audit entry: %w", err)
	}

	if entityType != nil {
		entry.EntityType = *entityType
	}
	if len(prior) > 0 {
		if err := json.Unmarshal(prior, &entry.PriorState); err != nil {
			return nil, fmt.Errorf("failed to unmarshal prior_state: %w", err)
		}
	}
	if len(next) > 0 {
		if err := json.Unmarshal(next, &entry.NewState); err != nil {
			return nil, fmt.Errorf("failed to unmarshal new_state: %w", err)
		}
	}
	if len(signature) > 0 {
		entry.Signature = &models.SignatureEnvelope{}
		if err := json.Unmarshal(signature, entry.Signature); err != nil {
			return nil, fmt.Errorf("failed to unmarshal signature: %w", err)
		}
	}
	return &entry, nil
}

func marshalNullable(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}
