package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/bosun-marine/bosun-engine/pkg/apperrors"
)

// TenantMiddleware is a function that wraps a handler with tenant context.
type TenantMiddleware func(http.HandlerFunc) http.HandlerFunc

// ApiResponse is the envelope for successful responses.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ActionErrorBody is the response body for engine errors. Error carries the
// machine-readable kind.
type ActionErrorBody struct {
	Error   apperrors.Kind `json:"error"`
	Message string         `json:"message"`
	Field   string         `json:"field,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteActionError writes err using its ActionError kind and status. Errors
// that are not ActionErrors are reported as an opaque HANDLER_FAILURE.
func WriteActionError(w http.ResponseWriter, err error, logger *zap.Logger) {
	actionErr, ok := apperrors.AsActionError(err)
	if !ok {
		logger.Error("Unclassified error reached the transport", zap.Error(err))
		actionErr = apperrors.HandlerFailure(err)
	}

	body := ActionErrorBody{
		Error:   actionErr.Kind,
		Message: actionErr.Message,
		Field:   actionErr.Field,
	}
	if err := WriteJSON(w, actionErr.HTTPStatus(), body); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}
