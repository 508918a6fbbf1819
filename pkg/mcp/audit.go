package mcp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/bosun-marine/bosun-engine/pkg/apperrors"
	"github.com/bosun-marine/bosun-engine/pkg/models"
)

// maxParamSize bounds string arguments copied into log fields.
const maxParamSize = 1024

// sensitiveKeys are argument keys whose values are replaced by a short hash.
var sensitiveKeys = []string{"signature_hash", "password", "secret", "token"}

// securityKinds are tool error codes that mark a refused attempt.
var securityKinds = map[string]bool{
	string(apperrors.KindForbidden):        true,
	string(apperrors.KindNotFound):         true,
	string(apperrors.KindSignatureInvalid): true,
}

// ToolCallLogger logs every MCP tool call with its caller, duration and outcome.
// It complements the action ledger: the ledger records applied changes, this
// records what agents attempted.
type ToolCallLogger struct {
	logger *zap.Logger

	// startTimes tracks when tool calls begin, keyed by request ID.
	startTimes sync.Map
}

// NewToolCallLogger creates a ToolCallLogger.
func NewToolCallLogger(logger *zap.Logger) *ToolCallLogger {
	return &ToolCallLogger{logger: logger.Named("mcp-calls")}
}

// Hooks returns mcp-go Hooks configured to capture tool call events.
func (a *ToolCallLogger) Hooks() *server.Hooks {
	hooks := &server.Hooks{}
	hooks.AddBeforeCallTool(a.beforeCallTool)
	hooks.AddAfterCallTool(a.afterCallTool)
	hooks.AddOnError(a.onError)
	return hooks
}

func (a *ToolCallLogger) beforeCallTool(_ context.Context, id any, _ *mcplib.CallToolRequest) {
	a.startTimes.Store(id, time.Now())
}

func (a *ToolCallLogger) afterCallTool(ctx context.Context, id any, req *mcplib.CallToolRequest, result *mcplib.CallToolResult) {
	fields := a.fields(ctx, id, req)

	code := errorCode(result)
	switch {
	case code == "":
		a.logger.Info("MCP tool call", fields...)
	case securityKinds[code]:
		a.logger.Warn("MCP tool call refused", append(fields, zap.String("code", code))...)
	default:
		a.logger.Info("MCP tool call failed", append(fields, zap.String("code", code))...)
	}
}

func (a *ToolCallLogger) onError(ctx context.Context, id any, method mcplib.MCPMethod, message any, err error) {
	if method != mcplib.MethodToolsCall {
		return
	}
	req, ok := message.(*mcplib.CallToolRequest)
	if !ok {
		return
	}
	a.logger.Error("MCP tool error", append(a.fields(ctx, id, req), zap.Error(err))...)
}

func (a *ToolCallLogger) fields(ctx context.Context, id any, req *mcplib.CallToolRequest) []zap.Field {
	start := time.Now()
	if v, ok := a.startTimes.LoadAndDelete(id); ok {
		start = v.(time.Time)
	}

	fields := []zap.Field{
		zap.String("tool", req.Params.Name),
		zap.Duration("duration", time.Since(start)),
		zap.Any("arguments", sanitizeParams(req.Params.Arguments)),
	}
	if caller, ok := models.GetCaller(ctx); ok {
		fields = append(fields,
			zap.String("user_id", caller.UserID.String()),
			zap.String("role", caller.Role),
			zap.String("yacht_id", caller.YachtID.String()))
	}
	return fields
}

// errorCode returns the structured error code of an error result, or "".
func errorCode(result *mcplib.CallToolResult) string {
	if result == nil || !result.IsError {
		return ""
	}
	for _, content := range result.Content {
		text, ok := content.(mcplib.TextContent)
		if !ok {
			continue
		}
		var body struct {
			Code string `json:"code"`
		}
		if json.Unmarshal([]byte(text.Text), &body) == nil && body.Code != "" {
			return body.Code
		}
	}
	return "unknown"
}

// sanitizeParams copies tool arguments for logging, hashing sensitive values
// and truncating long strings.
func sanitizeParams(args any) map[string]any {
	params, ok := args.(map[string]any)
	if !ok || len(params) == 0 {
		return nil
	}
	return sanitizeNested(params)
}

func sanitizeNested(params map[string]any) map[string]any {
	sanitized := make(map[string]any, len(params))
	for k, v := range params {
		sanitized[k] = sanitizeValue(k, v)
	}
	return sanitized
}

func sanitizeValue(key string, value any) any {
	if isSensitiveKey(key) {
		return hashSensitiveValue(value)
	}
	switch val := value.(type) {
	case string:
		if len(val) > maxParamSize {
			return val[:maxParamSize] + "...[truncated]"
		}
		return val
	case map[string]any:
		return sanitizeNested(val)
	default:
		return value
	}
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// hashSensitiveValue keeps equal values correlatable without logging them.
func hashSensitiveValue(value any) string {
	sum := sha256.Sum256([]byte(fmt.Sprint(value)))
	return "sha256:" + hex.EncodeToString(sum[:])[:12]
}
