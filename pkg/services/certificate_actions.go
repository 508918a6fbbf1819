package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bosun-marine/bosun-engine/pkg/apperrors"
	"github.com/bosun-marine/bosun-engine/pkg/repositories"
	"github.com/bosun-marine/bosun-engine/pkg/statemachine"
	"github.com/bosun-marine/bosun-engine/pkg/validation"
)

func (h *ActionHandlers) certificateHandlers() map[string]ActionHandler {
	return map[string]ActionHandler{
		"view_certificate":            view,
		"create_certificate":          h.createCertificate,
		"upload_certificate_document": h.uploadCertificateDocument,
		"supersede_certificate":       h.supersedeCertificate,
		"revoke_certificate":          h.statusChange(withReason),
		"reinstate_certificate":       h.statusChange(withReason),
	}
}

func (h *ActionHandlers) createCertificate(ctx context.Context, ac *ActionContext) (*Outcome, error) {
	issued, _ := validation.Date(ac.Payload, "issued_on")
	expires, _ := validation.Date(ac.Payload, "expires_on")
	if expires.Before(issued) {
		return nil, apperrors.Validation("expires_on", "must not be before issued_on")
	}

	certType, _ := validation.String(ac.Payload, "certificate_type")
	number, _ := validation.String(ac.Payload, "certificate_number")
	authority, _ := validation.String(ac.Payload, "issuing_authority")

	entity, created, err := h.certificates.Create(ctx, ac.Caller.YachtID, repositories.NewCertificate{
		CertificateType:   certType,
		CertificateNumber: number,
		IssuingAuthority:  authority,
		IssuedOn:          issued,
		ExpiresOn:         expires,
	})
	if err != nil {
		return nil, err
	}
	return &Outcome{Entity: entity, Duplicate: !created}, nil
}

func (h *ActionHandlers) uploadCertificateDocument(ctx context.Context, ac *ActionContext) (*Outcome, error) {
	outcome, err := h.transition(ctx, ac, map[string]any{"document_path": ac.StoragePath})
	if err != nil {
		return nil, err
	}
	return h.recordAttachment(ctx, ac, outcome)
}

func (h *ActionHandlers) supersedeCertificate(ctx context.Context, ac *ActionContext) (*Outcome, error) {
	set := map[string]any{"status_reason": optionalString(ac.Payload, "reason")}

	if replacement, ok := ac.References["replacement_certificate_id"]; ok {
		if replacement.ID == ac.Target.ID {
			return nil, apperrors.Validation("replacement_certificate_id", "must differ from the certificate being superseded")
		}
		if replacement.Status != statemachine.CertificateValid {
			return nil, apperrors.Validation("replacement_certificate_id", "replacement certificate is not valid")
		}
		set["superseded_by"] = replacement.ID
	}
	return h.transition(ctx, ac, set)
}

// uuidField reads a uuid column from an entity snapshot.
func uuidField(fields map[string]any, name string) (uuid.UUID, error) {
	s, ok := fields[name].(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("column %s is missing", name)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("column %s: %w", name, err)
	}
	return id, nil
}
