package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bosun-marine/bosun-engine/pkg/database"
	"github.com/bosun-marine/bosun-engine/pkg/models"
	"github.com/bosun-marine/bosun-engine/pkg/repositories"
	"github.com/bosun-marine/bosun-engine/pkg/retry"
)

// maxAuditPage caps ListByYacht.
const maxAuditPage = 500

// AuditLedger is the append-only record of MUTATE and SIGNED invocations.
// Append is its only write.
type AuditLedger interface {
	// Append writes entry or returns an error; it never fails silently.
	Append(ctx context.Context, entry *models.AuditEntry) error

	// ListByEntity returns the history of one entity, oldest first.
	ListByEntity(ctx context.Context, yachtID uuid.UUID, entityType string, entityID uuid.UUID) ([]*models.AuditEntry, error)

	// ListByYacht returns the most recent entries for a yacht.
	ListByYacht(ctx context.Context, yachtID uuid.UUID, limit int) ([]*models.AuditEntry, error)
}

type auditLedger struct {
	repo   repositories.AuditRepository
	tx     database.TxRunner
	retry  *retry.Config
	logger *zap.Logger
}

// NewAuditLedger creates a new AuditLedger. Each append attempt runs in its
// own savepoint so a failed attempt does not poison the caller's transaction.
func NewAuditLedger(repo repositories.AuditRepository, tx database.TxRunner, attempts int, logger *zap.Logger) AuditLedger {
	return &auditLedger{
		repo:   repo,
		tx:     tx,
		retry:  retry.ForAttempts(attempts),
		logger: logger.Named("audit-ledger"),
	}
}

var _ AuditLedger = (*auditLedger)(nil)

func (l *auditLedger) Append(ctx context.Context, entry *models.AuditEntry) error {
	attempt := 0
	err := retry.DoIfRetryable(ctx, l.retry, func() error {
		attempt++
		return l.tx.InTx(ctx, func(ctx context.Context) error {
			return l.repo.Append(ctx, entry)
		})
	})
	if err != nil {
		l.logger.Error("Failed to append audit entry",
			zap.String("action_id", entry.ActionID),
			zap.String("yacht_id", entry.YachtID.String()),
			zap.Int("attempts", attempt),
			zap.Error(err))
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (l *auditLedger) ListByEntity(ctx context.Context, yachtID uuid.UUID, entityType string, entityID uuid.UUID) ([]*models.AuditEntry, error) {
	return l.repo.ListByEntity(ctx, yachtID, entityType, entityID)
}

func (l *auditLedger) ListByYacht(ctx context.Context, yachtID uuid.UUID, limit int) ([]*models.AuditEntry, error) {
	if limit <= 0 || limit > maxAuditPage {
		limit = maxAuditPage
	}
	return l.repo.ListByYacht(ctx, yachtID, limit)
}
