package core

import (
	"context"
	"encoding/json"
)

// Tool is a named capability the conversational model can invoke during
// a turn. Implementations are expected to be safe for concurrent use:
// the tool loop may dispatch several calls from one model response in
// parallel.
type Tool interface {
	Name() string
	Description() string

	// InputSchema returns the JSON Schema for the tool's input object.
	InputSchema() map[string]any

	Execute(ctx context.Context, params *ToolParams) (*ToolResult, error)
}

// ToolParams carries the execution context for a single tool call.
type ToolParams struct {
	// UserID identifies the user on whose behalf the call runs.
	UserID string

	// SessionID identifies the conversational session.
	SessionID string

	// Input is the raw JSON input produced by the model.
	Input json.RawMessage
}

// ToolResult is the outcome of a tool call. A failed call sets Success
// false and Error; the tool loop feeds the error text back to the model
// instead of aborting the turn.
type ToolResult struct {
	Success bool
	Data    any
	Error   string
}

// ToolExecution records one completed tool invocation within a turn.
type ToolExecution struct {
	Tool       string `json:"tool"`
	Input      any    `json:"input,omitempty"`
	Result     any    `json:"result,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}
