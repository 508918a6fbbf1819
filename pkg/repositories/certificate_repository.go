package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bosun-marine/bosun-engine/pkg/apperrors"
	"github.com/bosun-marine/bosun-engine/pkg/models"
)

// NewCertificate holds the columns supplied when a certificate is registered.
type NewCertificate struct {
	CertificateType   string
	CertificateNumber string
	IssuingAuthority  string
	IssuedOn          time.Time
	ExpiresOn         time.Time
}

// CertificateRepository provides the writes specific to certificates.
type CertificateRepository interface {
	// Create registers a certificate unless one with the same type and number
	// exists, in which case that one is returned with created=false.
	Create(ctx context.Context, yachtID uuid.UUID, cert NewCertificate) (entity *models.Entity, created bool, err error)
}

type certificateRepository struct{}

// NewCertificateRepository creates a new CertificateRepository.
func NewCertificateRepository() CertificateRepository {
	return &certificateRepository{}
}

var _ CertificateRepository = (*certificateRepository)(nil)

const certificateByNumberQuery = `
	SELECT to_jsonb(t) FROM pms_certificates t
	WHERE t.yacht_id = $1 AND t.certificate_type = $2 AND t.certificate_number = $3`

func (r *certificateRepository) Create(ctx context.Context, yachtID uuid.UUID, cert NewCertificate) (*models.Entity, bool, error) {
	existing, err := queryEntity(ctx, models.EntityTypeCertificate, certificateByNumberQuery,
		yachtID, cert.CertificateType, cert.CertificateNumber)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check for duplicate certificate: %w", err)
	}
	if existing != nil {
		return existing, false, nil
	}

	query := `
		INSERT INTO pms_certificates AS t
			(yacht_id, certificate_type, certificate_number, issuing_authority, issued_on, expires_on)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT DO NOTHING
		RETURNING to_jsonb(t)`

	created, err := queryEntity(ctx, models.EntityTypeCertificate, query,
		yachtID, cert.CertificateType, cert.CertificateNumber, cert.IssuingAuthority, cert.IssuedOn, cert.ExpiresOn)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create certificate: %w", err)
	}
	if created != nil {
		return created, true, nil
	}

	existing, err = queryEntity(ctx, models.EntityTypeCertificate, certificateByNumberQuery,
		yachtID, cert.CertificateType, cert.CertificateNumber)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load conflicting certificate: %w", err)
	}
	if existing == nil {
		return nil, false, apperrors.ErrConflict
	}
	return existing, false, nil
}
