package tools

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bosun-marine/bosun-engine/pkg/apperrors"
)

// ErrorResponse represents a structured error in tool results.
// It is returned as a successful tool result so the agent sees the error
// kind and can correct its next call instead of the error being swallowed
// by the MCP client.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult creates a tool result containing a structured error.
// Use this for errors the agent can act on (bad arguments, wrong status).
// Infrastructure failures are returned as Go errors instead.
func NewErrorResult(code, message string) *mcp.CallToolResult {
	return NewErrorResultWithDetails(code, message, nil)
}

// NewErrorResultWithDetails creates an error result with additional context.
func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// NewActionErrorResult renders an engine error with its kind as the code.
// The field, when set, is reported under details.
func NewActionErrorResult(err *apperrors.ActionError) *mcp.CallToolResult {
	if err.Field == "" {
		return NewErrorResult(string(err.Kind), err.Message)
	}
	return NewErrorResultWithDetails(string(err.Kind), err.Message, map[string]string{"field": err.Field})
}
