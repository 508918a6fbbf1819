package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrNotRegistered = errors.New("action not registered")
	ErrInvalidRole   = errors.New("invalid role")
)

// Kind is the machine-readable error vocabulary returned to callers.
type Kind string

const (
	KindNotRegistered     Kind = "NOT_REGISTERED"
	KindForbidden         Kind = "FORBIDDEN"
	KindValidationFailed  Kind = "VALIDATION_FAILED"
	KindNotFound          Kind = "NOT_FOUND"
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	KindSignatureRequired Kind = "SIGNATURE_REQUIRED"
	KindSignatureInvalid  Kind = "SIGNATURE_INVALID"
	KindHandlerFailure    Kind = "HANDLER_FAILURE"
	KindAuditWriteFailure Kind = "AUDIT_WRITE_FAILURE"
)

// HTTPStatus maps a kind to its status code. Client kinds are always 4xx,
// server kinds always 5xx.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotRegistered, KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindValidationFailed, KindSignatureRequired, KindSignatureInvalid:
		return http.StatusBadRequest
	case KindInvalidTransition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// IsClient reports whether the kind is caused by the request rather than the server.
func (k Kind) IsClient() bool {
	return k.HTTPStatus() < http.StatusInternalServerError
}

// ActionError is the single error type produced by the dispatcher stages.
// Message is safe to show to callers; Cause is for internal logs only.
type ActionError struct {
	Kind    Kind
	Message string
	Field   string
	Cause   error
}

func (e *ActionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s)", e.Kind, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ActionError) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the status code for the error's kind.
func (e *ActionError) HTTPStatus() int {
	return e.Kind.HTTPStatus()
}

// AsActionError returns the ActionError wrapped in err, if any.
func AsActionError(err error) (*ActionError, bool) {
	var actionErr *ActionError
	if errors.As(err, &actionErr) {
		return actionErr, true
	}
	return nil, false
}

// NotRegistered reports an unknown action id.
func NotRegistered(actionID string) *ActionError {
	return &ActionError{Kind: KindNotRegistered, Message: fmt.Sprintf("action %q is not registered", actionID)}
}

// Forbidden never names the roles that would have been allowed.
func Forbidden() *ActionError {
	return &ActionError{Kind: KindForbidden, Message: "role is not permitted to perform this action"}
}

// Validation reports a payload field that failed a check.
func Validation(field, reason string) *ActionError {
	return &ActionError{Kind: KindValidationFailed, Message: reason, Field: field}
}

// NotFound is identical for missing rows and rows owned by another tenant.
func NotFound(entityLabel string) *ActionError {
	return &ActionError{Kind: KindNotFound, Message: entityLabel + " not found"}
}

// InvalidTransition names the current status and the attempted action only.
func InvalidTransition(currentStatus, actionID string) *ActionError {
	return &ActionError{
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("action %q is not allowed from status %q", actionID, currentStatus),
	}
}

// SignatureRequired reports a SIGNED action submitted without an envelope.
func SignatureRequired() *ActionError {
	return &ActionError{Kind: KindSignatureRequired, Message: "signature envelope is required", Field: "signature"}
}

// SignatureInvalid reports an envelope with a missing or malformed field.
// An empty field means the envelope as a whole is malformed.
func SignatureInvalid(field, reason string) *ActionError {
	if field != "" {
		field = "signature." + field
	} else {
		field = "signature"
	}
	return &ActionError{Kind: KindSignatureInvalid, Message: reason, Field: field}
}

// HandlerFailure hides the cause from the caller.
func HandlerFailure(cause error) *ActionError {
	return &ActionError{Kind: KindHandlerFailure, Message: "action failed", Cause: cause}
}

// AuditWriteFailure hides the cause from the caller.
func AuditWriteFailure(cause error) *ActionError {
	return &ActionError{Kind: KindAuditWriteFailure, Message: "action could not be recorded and was not applied", Cause: cause}
}
