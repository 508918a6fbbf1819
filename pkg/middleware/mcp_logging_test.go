package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const mcpPath = "/mcp/550e8400-e29b-41d4-a716-446655440000"

func serveMCP(t *testing.T, logger *zap.Logger, reqBody, respBody string) *httptest.ResponseRecorder {
	t.Helper()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(respBody))
	})
	req := httptest.NewRequest(http.MethodPost, mcpPath, bytes.NewBufferString(reqBody))
	rec := httptest.NewRecorder()
	MCPRequestLogger(logger)(handler).ServeHTTP(rec, req)
	return rec
}

func TestMCPRequestLogger(t *testing.T) {
	t.Run("logs execute_action with action id", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)

		serveMCP(t, zap.New(core),
			`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"execute_action","arguments":{"action_id":"start_work_order","payload":{"work_order_id":"abc"}}}}`,
			`{"jsonrpc":"2.0","id":1,"result":{"content":[{"type":"text","text":"{}"}]}}`)

		require.Equal(t, 2, logs.Len())

		requestLog := logs.All()[0]
		assert.Equal(t, "MCP request", requestLog.Message)
		assert.Equal(t, "tools/call", requestLog.ContextMap()["method"])
		assert.Equal(t, "execute_action", requestLog.ContextMap()["tool"])
		assert.Equal(t, "start_work_order", requestLog.ContextMap()["action_id"])

		responseLog := logs.All()[1]
		assert.Equal(t, "MCP response success", responseLog.Message)
		assert.Equal(t, "start_work_order", responseLog.ContextMap()["action_id"])
		assert.NotNil(t, responseLog.ContextMap()["duration"])
	})

	t.Run("action id only logged for execute_action", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)

		serveMCP(t, zap.New(core),
			`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"list_actions","arguments":{"action_id":"x"}}}`,
			`{"jsonrpc":"2.0","id":1,"result":{}}`)

		_, present := logs.All()[0].ContextMap()["action_id"]
		assert.False(t, present)
	})

	t.Run("logs refused tool result", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)

		serveMCP(t, zap.New(core),
			`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"execute_action","arguments":{"action_id":"close_work_order"}}}`,
			`{"jsonrpc":"2.0","id":1,"result":{"isError":true,"content":[{"type":"text","text":"{\"error\":true,\"code\":\"FORBIDDEN\"}"}]}}`)

		require.Equal(t, 2, logs.Len())
		assert.Equal(t, "MCP tool refused", logs.All()[1].Message)
	})

	t.Run("logs JSON-RPC error response", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)

		serveMCP(t, zap.New(core),
			`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"suggest_actions","arguments":{}}}`,
			`{"jsonrpc":"2.0","id":1,"error":{"code":-32603,"message":"action failed"}}`)

		require.Equal(t, 2, logs.Len())
		responseLog := logs.All()[1]
		assert.Equal(t, "MCP response error", responseLog.Message)
		assert.Equal(t, "suggest_actions", responseLog.ContextMap()["tool"])
		assert.Equal(t, int64(-32603), responseLog.ContextMap()["error_code"])
		assert.Equal(t, "action failed", responseLog.ContextMap()["error_message"])
	})

	t.Run("redacts nested signature hash", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)

		serveMCP(t, zap.New(core),
			`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"execute_action","arguments":{"action_id":"approve_purchase","payload":{"signature":{"signer_id":"u1","signature_hash":"deadbeef"}}}}}`,
			`{"jsonrpc":"2.0","id":1,"result":{}}`)

		args := logs.All()[0].ContextMap()["arguments"].(map[string]any)
		signature := args["payload"].(map[string]any)["signature"].(map[string]any)
		assert.Equal(t, "[REDACTED]", signature["signature_hash"])
		assert.Equal(t, "u1", signature["signer_id"])
	})

	t.Run("passes through with nil logger", func(t *testing.T) {
		called := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		})

		req := httptest.NewRequest(http.MethodPost, mcpPath, bytes.NewBufferString(`{}`))
		rec := httptest.NewRecorder()
		MCPRequestLogger(nil)(handler).ServeHTTP(rec, req)

		assert.True(t, called)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("handles malformed JSON request gracefully", func(t *testing.T) {
		core, _ := observer.New(zapcore.DebugLevel)

		var forwarded string
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			buf := new(bytes.Buffer)
			_, _ = buf.ReadFrom(r.Body)
			forwarded = buf.String()
			w.WriteHeader(http.StatusBadRequest)
		})

		req := httptest.NewRequest(http.MethodPost, mcpPath, bytes.NewBufferString(`{invalid json`))
		rec := httptest.NewRecorder()
		MCPRequestLogger(zap.New(core))(handler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, `{invalid json`, forwarded)
	})
}

func TestSanitizeArguments(t *testing.T) {
	t.Run("redacts sensitive keys", func(t *testing.T) {
		result := sanitizeArguments(map[string]any{
			"password":        "secret",
			"api_key":         "abc123",
			"AccessToken":     "xyz789",
			"client_secret":   "hidden",
			"credential":      "cred123",
			"signature_hash":  "deadbeef",
			"idempotency_key": "retry-1",
			"action_id":       "add_note",
		})

		for _, key := range []string{"password", "api_key", "AccessToken", "client_secret", "credential", "signature_hash"} {
			assert.Equal(t, "[REDACTED]", result[key], key)
		}
		assert.Equal(t, "retry-1", result["idempotency_key"])
		assert.Equal(t, "add_note", result["action_id"])
	})

	t.Run("truncates long strings at any depth", func(t *testing.T) {
		long := strings.Repeat("x", 250)
		result := sanitizeArguments(map[string]any{
			"payload": map[string]any{"note_text": long},
			"lines":   []any{long, "short"},
		})

		note := result["payload"].(map[string]any)["note_text"].(string)
		assert.Len(t, note, maxLoggedString+3)
		assert.True(t, strings.HasSuffix(note, "..."))

		lines := result["lines"].([]any)
		assert.Len(t, lines[0].(string), maxLoggedString+3)
		assert.Equal(t, "short", lines[1])
	})

	t.Run("nil and empty", func(t *testing.T) {
		assert.Nil(t, sanitizeArguments(nil))
		assert.Empty(t, sanitizeArguments(map[string]any{}))
	})

	t.Run("preserves non-string values", func(t *testing.T) {
		result := sanitizeArguments(map[string]any{"quantity": 42.0, "urgent": true, "note": nil})

		assert.Equal(t, 42.0, result["quantity"])
		assert.Equal(t, true, result["urgent"])
		assert.Nil(t, result["note"])
	})
}
