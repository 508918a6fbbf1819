package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bosun-marine/bosun-engine/pkg/database"
)

// Attachment records a document or photo path written by a client.
// The engine never touches the file itself.
type Attachment struct {
	ID         uuid.UUID
	YachtID    uuid.UUID
	EntityType string
	EntityID   uuid.UUID
	Bucket     string
	Path       string
	UploadedBy uuid.UUID
}

// AttachmentRepository records attachment paths.
type AttachmentRepository interface {
	// Record stores the path; recording the same bucket/path twice returns the
	// existing id.
	Record(ctx context.Context, a *Attachment) error
}

type attachmentRepository struct{}

// NewAttachmentRepository creates a new AttachmentRepository.
func NewAttachmentRepository() AttachmentRepository {
	return &attachmentRepository{}
}

var _ AttachmentRepository = (*attachmentRepository)(nil)

func (r *attachmentRepository) Record(ctx context.Context, a *Attachment) error {
	q, err := database.GetQuerier(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO pms_attachments (yacht_id, entity_type, entity_id, bucket, path, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (yacht_id, bucket, path) DO UPDATE SET yacht_id = EXCLUDED.yacht_id
		RETURNING id`

	err = q.QueryRow(ctx, query, a.YachtID, a.EntityType, a.EntityID, a.Bucket, a.Path, a.UploadedBy).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to record attachment: %w", err)
	}
	return nil
}
