package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/google/uuid"

	"github.com/bosun-marine/bosun-engine/pkg/apperrors"
	"github.com/bosun-marine/bosun-engine/pkg/models"
)

var (
	testYachtID = uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")
	testUserID  = uuid.MustParse("8d0f0c1e-6c5b-4d52-9a43-0a3c2b1d7e11")
)

func testCaller(role string) models.Caller {
	return models.Caller{UserID: testUserID, Role: role, YachtID: testYachtID}
}

// withCaller builds a request carrying the caller and the yid path value,
// as the auth middleware would leave it.
func withCaller(req *http.Request, caller models.Caller) *http.Request {
	req.SetPathValue("yid", caller.YachtID.String())
	return req.WithContext(models.WithCaller(req.Context(), caller))
}

func newRequest(method, target string, body string, caller models.Caller) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	return withCaller(req, caller)
}

// mockDispatcher records the last invocation and returns a canned result.
type mockDispatcher struct {
	result *models.ActionResult
	err    error

	caller models.Caller
	req    *models.ActionRequest
	calls  int
}

func (m *mockDispatcher) Execute(ctx context.Context, caller models.Caller, req *models.ActionRequest) (*models.ActionResult, error) {
	m.calls++
	m.caller = caller
	m.req = req
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockOwnership struct {
	entity *models.Entity
	err    error
}

func (m *mockOwnership) Verify(ctx context.Context, entityType string, entityID, yachtID uuid.UUID) (*models.Entity, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.entity == nil || m.entity.ID != entityID || m.entity.YachtID != yachtID {
		return nil, apperrors.NotFound(entityType)
	}
	return m.entity, nil
}

type mockSuggestions struct {
	suggestions []models.MicroactionSuggestion
	role        string
	intent      string
}

func (m *mockSuggestions) Suggest(entity *models.Entity, role, intent string) []models.MicroactionSuggestion {
	m.role = role
	m.intent = intent
	return m.suggestions
}

type mockLedger struct {
	entries []*models.AuditEntry
	err     error

	entityType string
	entityID   uuid.UUID
	limit      int
}

func (m *mockLedger) Append(ctx context.Context, entry *models.AuditEntry) error {
	m.entries = append(m.entries, entry)
	return m.err
}

func (m *mockLedger) ListByEntity(ctx context.Context, yachtID uuid.UUID, entityType string, entityID uuid.UUID) ([]*models.AuditEntry, error) {
	m.entityType = entityType
	m.entityID = entityID
	return m.entries, m.err
}

func (m *mockLedger) ListByYacht(ctx context.Context, yachtID uuid.UUID, limit int) ([]*models.AuditEntry, error) {
	m.limit = limit
	return m.entries, m.err
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.err
}
