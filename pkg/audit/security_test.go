package audit

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bosun-marine/bosun-engine/pkg/models"
)

// setupTestLogger creates a test logger with an observer to capture log entries.
func setupTestLogger(t *testing.T) (*zap.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, recorded := observer.New(zapcore.DebugLevel)
	return zap.New(core), recorded
}

func testCaller() models.Caller {
	return models.Caller{UserID: uuid.New(), Role: models.RoleCrew, YachtID: uuid.New()}
}

func decodeEvent(t *testing.T, entry observer.LoggedEntry) SecurityEvent {
	t.Helper()
	raw, ok := entry.ContextMap()["event_json"].(string)
	require.True(t, ok)
	var event SecurityEvent
	require.NoError(t, json.Unmarshal([]byte(raw), &event))
	return event
}

func TestNewSecurityAuditor_NamedLogger(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	auditor := NewSecurityAuditor(logger)
	require.NotNil(t, auditor)

	auditor.LogAccessDenied(context.Background(), testCaller(), "approve_request")
	require.Equal(t, 1, recorded.Len())
	assert.Equal(t, "security_audit", recorded.All()[0].LoggerName)
}

func TestLogInjectionAttempt(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	auditor := NewSecurityAuditor(logger)
	caller := testCaller()

	auditor.LogInjectionAttempt(context.Background(), caller, "add_work_order_note", InjectionDetails{
		Field:       "note",
		Value:       "x' OR 1=1 --" + strings.Repeat("a", 500),
		Fingerprint: "s&1c",
	})

	require.Equal(t, 1, recorded.Len())
	entry := recorded.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "critical", entry.ContextMap()["severity"])

	event := decodeEvent(t, entry)
	assert.Equal(t, EventInjectionAttempt, event.EventType)
	assert.Equal(t, caller.YachtID, event.YachtID)
	details, ok := event.Details.(map[string]any)
	require.True(t, ok)
	assert.LessOrEqual(t, len(details["value"].(string)), maxLoggedValue+3)
}

func TestLogAccessDenied(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	auditor := NewSecurityAuditor(logger)

	auditor.LogAccessDenied(context.Background(), testCaller(), "approve_request")

	entry := recorded.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, "crew", entry.ContextMap()["role"])
	assert.Equal(t, EventAccessDenied, decodeEvent(t, entry).EventType)
}

func TestLogEntityNotFound(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	auditor := NewSecurityAuditor(logger)
	id := uuid.New()

	auditor.LogEntityNotFound(context.Background(), testCaller(), "start_work_order", models.EntityTypeWorkOrder, id)

	entry := recorded.All()[0]
	assert.Equal(t, zapcore.InfoLevel, entry.Level)
	assert.Equal(t, id.String(), entry.ContextMap()["entity_id"])
	assert.Equal(t, EventEntityNotFound, decodeEvent(t, entry).EventType)
}

func TestLogSignatureRejected(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	auditor := NewSecurityAuditor(logger)

	auditor.LogSignatureRejected(context.Background(), testCaller(), "supersede_certificate", "signature.signature_hash", "signature_hash is required")

	entry := recorded.All()[0]
	assert.Equal(t, "signature.signature_hash", entry.ContextMap()["field"])
	assert.Equal(t, EventSignatureRejected, decodeEvent(t, entry).EventType)
}
