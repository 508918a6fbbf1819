package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"

	"github.com/bosun-marine/bosun-engine/pkg/apperrors"
	"github.com/bosun-marine/bosun-engine/pkg/models"
)

var (
	testYachtID = uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")
	testUserID  = uuid.MustParse("8d0f0c1e-6c5b-4d52-9a43-0a3c2b1d7e11")
)

func callerContext(role string) context.Context {
	return models.WithCaller(context.Background(), models.Caller{UserID: testUserID, Role: role, YachtID: testYachtID})
}

type toolResponse struct {
	Result *struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// callTool sends a tools/call through HandleMessage and decodes the response.
func callTool(t *testing.T, ctx context.Context, s *server.MCPServer, name string, args map[string]any) toolResponse {
	t.Helper()
	request, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params":  map[string]any{"name": name, "arguments": args},
	})
	require.NoError(t, err)

	resultBytes, err := json.Marshal(s.HandleMessage(ctx, request))
	require.NoError(t, err)

	var response toolResponse
	require.NoError(t, json.Unmarshal(resultBytes, &response))
	return response
}

// text returns the first text content of a successful call.
func (r toolResponse) text(t *testing.T) string {
	t.Helper()
	require.Nil(t, r.Error, "unexpected protocol error")
	require.NotNil(t, r.Result)
	require.NotEmpty(t, r.Result.Content)
	return r.Result.Content[0].Text
}

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
	return m.result, m.err
}

type mockOwnership struct {
	entity *models.Entity
}

func (m *mockOwnership) Verify(ctx context.Context, entityType string, entityID, yachtID uuid.UUID) (*models.Entity, error) {
	if m.entity == nil || m.entity.ID != entityID || m.entity.YachtID != yachtID {
		return nil, apperrors.NotFound(entityType)
	}
	return m.entity, nil
}

type mockSuggestions struct {
	suggestions []models.MicroactionSuggestion
	intent      string
}

func (m *mockSuggestions) Suggest(entity *models.Entity, role, intent string) []models.MicroactionSuggestion {
	m.intent = intent
	return m.suggestions
}

type mockScoper struct {
	opened, closed int
	yachtID        uuid.UUID
}

func (m *mockScoper) WithTenantScope(ctx context.Context, yachtID uuid.UUID) (context.Context, func(), error) {
	m.opened++
	m.yachtID = yachtID
	return ctx, func() { m.closed++ }, nil
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error { return m.err }
