package services

import (
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/bosun-marine/bosun-engine/pkg/apperrors"
	"github.com/bosun-marine/bosun-engine/pkg/models"
	"github.com/bosun-marine/bosun-engine/pkg/validation"
)

// ResolveStoragePath expands the policy's path template for one upload and
// checks the result stays under a writable prefix. Only the path is decided
// here; the client writes the file.
func ResolveStoragePath(policy *models.StoragePolicy, yachtID, entityID uuid.UUID, payload map[string]any) (string, error) {
	filename, _ := validation.String(payload, "filename")
	if filename == "" || strings.ContainsAny(filename, `/\`) || filename == "." || filename == ".." {
		return "", apperrors.Validation("filename", "filename must be a plain file name")
	}

	if policy.RequiresConfirmation && !validation.Bool(payload, "confirmed") {
		return "", apperrors.Validation("confirmed", "upload must be confirmed")
	}

	replacer := strings.NewReplacer(
		"{yacht_id}", yachtID.String(),
		"{entity_id}", entityID.String(),
		"{filename}", filename,
	)
	resolved := path.Clean(replacer.Replace(policy.PathTemplate))

	for _, prefix := range policy.WritablePrefixes {
		if strings.HasPrefix(resolved, replacer.Replace(prefix)) {
			return resolved, nil
		}
	}
	return "", apperrors.Validation("filename", "resolved path is outside the writable area")
}
