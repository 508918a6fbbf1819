package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bosun-marine/bosun-engine/pkg/apperrors"
	"github.com/bosun-marine/bosun-engine/pkg/models"
	"github.com/bosun-marine/bosun-engine/pkg/repositories"
)

// OwnershipValidator confirms an entity belongs to the caller's yacht.
type OwnershipValidator interface {
	// Verify returns the entity, or a NOT_FOUND ActionError whose message is
	// the same whether the row is absent or owned by another yacht.
	Verify(ctx context.Context, entityType string, entityID, yachtID uuid.UUID) (*models.Entity, error)
}

type ownershipValidator struct {
	entities repositories.EntityRepository
	logger   *zap.Logger
}

// NewOwnershipValidator creates a new OwnershipValidator.
func NewOwnershipValidator(entities repositories.EntityRepository, logger *zap.Logger) OwnershipValidator {
	return &ownershipValidator{
		entities: entities,
		logger:   logger.Named("ownership"),
	}
}

var _ OwnershipValidator = (*ownershipValidator)(nil)

func (v *ownershipValidator) Verify(ctx context.Context, entityType string, entityID, yachtID uuid.UUID) (*models.Entity, error) {
	entity, err := v.entities.Get(ctx, entityType, entityID, yachtID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.NotFound(EntityLabel(entityType))
	}
	if err != nil {
		v.logger.Error("Ownership lookup failed",
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID.String()),
			zap.Error(err))
		return nil, apperrors.HandlerFailure(err)
	}
	return entity, nil
}
