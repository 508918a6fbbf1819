// Package audit provides security audit logging for SIEM consumption.
// It logs denied and suspicious action attempts in structured JSON format.
// The compliance ledger of successful actions lives in pms_audit_log, not here.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bosun-marine/bosun-engine/pkg/logging"
	"github.com/bosun-marine/bosun-engine/pkg/models"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventInjectionAttempt is logged when libinjection flags a free-text field.
	EventInjectionAttempt SecurityEventType = "sql_injection_attempt"
	// EventAccessDenied is logged when a role may not invoke an action.
	EventAccessDenied SecurityEventType = "access_denied"
	// EventEntityNotFound is logged when a referenced entity is missing or
	// belongs to another yacht. The two cases are not distinguished.
	EventEntityNotFound SecurityEventType = "entity_not_found"
	// EventSignatureRejected is logged when a SIGNED action carries a bad envelope.
	EventSignatureRejected SecurityEventType = "signature_rejected"
)

// maxLoggedValue bounds how much of a flagged payload value is logged.
const maxLoggedValue = 200

// SecurityEvent represents an auditable security event with all relevant context
// for SIEM ingestion and analysis.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	YachtID   uuid.UUID         `json:"yacht_id"`
	UserID    string            `json:"user_id,omitempty"`
	Role      string            `json:"role,omitempty"`
	ActionID  string            `json:"action_id"`
	Details   any               `json:"details,omitempty"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// InjectionDetails contains specifics of a flagged free-text field.
type InjectionDetails struct {
	Field       string `json:"field"`
	Value       string `json:"value"`
	Fingerprint string `json:"fingerprint"` // libinjection fingerprint for pattern analysis
}

// SecurityAuditor logs security events for SIEM consumption.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates a new security auditor with a dedicated
// "security_audit" logger namespace.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

// LogInjectionAttempt records a free-text field that matched an injection
// pattern. Logged at ERROR level with "critical" severity for alerting.
func (a *SecurityAuditor) LogInjectionAttempt(ctx context.Context, caller models.Caller, actionID string, details InjectionDetails) {
	details.Value = logging.TruncateString(details.Value, maxLoggedValue)
	event := a.event(caller, actionID, EventInjectionAttempt, "critical", details)

	a.logger.Error("SQL injection attempt detected",
		zap.String("event_json", marshal(event)),
		zap.String("yacht_id", caller.YachtID.String()),
		zap.String("user_id", caller.UserID.String()),
		zap.String("action_id", actionID),
		zap.String("field", details.Field),
		zap.String("fingerprint", details.Fingerprint),
		zap.String("severity", "critical"),
	)
}

// LogAccessDenied records a role check failure.
func (a *SecurityAuditor) LogAccessDenied(ctx context.Context, caller models.Caller, actionID string) {
	event := a.event(caller, actionID, EventAccessDenied, "warning", nil)

	a.logger.Warn("Action denied for role",
		zap.String("event_json", marshal(event)),
		zap.String("yacht_id", caller.YachtID.String()),
		zap.String("user_id", caller.UserID.String()),
		zap.String("role", caller.Role),
		zap.String("action_id", actionID),
		zap.String("severity", "warning"),
	)
}

// LogEntityNotFound records an ownership check failure. Repeated events for
// ids that exist on other yachts are a probing signal worth alerting on.
func (a *SecurityAuditor) LogEntityNotFound(ctx context.Context, caller models.Caller, actionID, entityType string, entityID uuid.UUID) {
	details := map[string]string{"entity_type": entityType, "entity_id": entityID.String()}
	event := a.event(caller, actionID, EventEntityNotFound, "info", details)

	a.logger.Info("Referenced entity not found for yacht",
		zap.String("event_json", marshal(event)),
		zap.String("yacht_id", caller.YachtID.String()),
		zap.String("user_id", caller.UserID.String()),
		zap.String("action_id", actionID),
		zap.String("entity_type", entityType),
		zap.String("entity_id", entityID.String()),
		zap.String("severity", "info"),
	)
}

// LogSignatureRejected records a missing or malformed signature envelope.
func (a *SecurityAuditor) LogSignatureRejected(ctx context.Context, caller models.Caller, actionID, field, reason string) {
	details := map[string]string{"field": field, "reason": reason}
	event := a.event(caller, actionID, EventSignatureRejected, "warning", details)

	a.logger.Warn("Signature envelope rejected",
		zap.String("event_json", marshal(event)),
		zap.String("yacht_id", caller.YachtID.String()),
		zap.String("user_id", caller.UserID.String()),
		zap.String("action_id", actionID),
		zap.String("field", field),
		zap.String("reason", reason),
		zap.String("severity", "warning"),
	)
}

func (a *SecurityAuditor) event(caller models.Caller, actionID string, eventType SecurityEventType, severity string, details any) SecurityEvent {
	return SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		YachtID:   caller.YachtID,
		UserID:    caller.UserID.String(),
		Role:      caller.Role,
		ActionID:  actionID,
		Details:   details,
		Severity:  severity,
	}
}

// marshal ignores the error: known types always marshal.
func marshal(event SecurityEvent) string {
	b, _ := json.Marshal(event)
	return string(b)
}
