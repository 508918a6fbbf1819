package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const maxLoggedString = 200

// MCPRequestLogger returns middleware that logs MCP JSON-RPC requests/responses.
// For execute_action calls the target action id is logged as its own field.
// Pass nil logger to disable logging.
func MCPRequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logger == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, err := io.ReadAll(r.Body)
			if err != nil {
				logger.Error("Failed to read MCP request body", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

			var rpcReq jsonRPCRequest
			if err := json.Unmarshal(bodyBytes, &rpcReq); err != nil {
				// Not every request is a JSON-RPC call; keep serving it.
				logger.Debug("Failed to parse MCP request JSON", zap.Error(err))
			}

			toolName := rpcReq.Params.Name
			fields := []zap.Field{
				zap.String("method", rpcReq.Method),
				zap.String("tool", toolName),
			}
			if actionID, ok := rpcReq.Params.Arguments["action_id"].(string); ok && toolName == "execute_action" {
				fields = append(fields, zap.String("action_id", actionID))
			}

			logger.Debug("MCP request", append(fields, zap.Any("arguments", sanitizeArguments(rpcReq.Params.Arguments)))...)

			recorder := &mcpResponseRecorder{
				ResponseWriter: w,
				body:           &bytes.Buffer{},
			}
			start := time.Now()

			next.ServeHTTP(recorder, r)

			fields = append(fields, zap.Duration("duration", time.Since(start)))

			var rpcResp jsonRPCResponse
			if err := json.Unmarshal(recorder.body.Bytes(), &rpcResp); err != nil {
				logger.Debug("Failed to parse MCP response JSON", zap.Error(err))
				return
			}

			switch {
			case rpcResp.Error != nil:
				logger.Debug("MCP response error", append(fields,
					zap.Int("error_code", rpcResp.Error.Code),
					zap.String("error_message", rpcResp.Error.Message),
				)...)
			case rpcResp.Result.IsError:
				// Engine refusals come back as tool results flagged isError.
				logger.Debug("MCP tool refused", fields...)
			default:
				logger.Debug("MCP response success", fields...)
			}
		})
	}
}

type jsonRPCRequest struct {
	Method string `json:"method"`
	Params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"params"`
}

type jsonRPCResponse struct {
	Result struct {
		IsError bool `json:"isError"`
	} `json:"result"`
	Error *jsonRPCError `json:"error"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// mcpResponseRecorder is a response writer that captures the response body.
type mcpResponseRecorder struct {
	http.ResponseWriter
	body *bytes.Buffer
}

func (r *mcpResponseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// sanitizeArguments redacts credentials and signature hashes at any depth
// and truncates long strings. Action payloads nest the signature object, so
// the walk descends into maps and slices.
func sanitizeArguments(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}

	result := make(map[string]any, len(args))
	for k, v := range args {
		if isSensitiveKey(k) {
			result[k] = "[REDACTED]"
			continue
		}
		result[k] = sanitizeValue(v)
	}
	return result
}

func sanitizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return sanitizeArguments(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = sanitizeValue(item)
		}
		return out
	case string:
		if len(val) > maxLoggedString {
			return val[:maxLoggedString] + "..."
		}
		return val
	default:
		return v
	}
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	if lower == "signature_hash" || strings.HasSuffix(lower, "api_key") {
		return true
	}
	for _, keyword := range []string{"password", "secret", "token", "credential"} {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
