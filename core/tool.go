package core

import (
	"context"
	"encoding/json"
)

// Tool is a named capability the agent can invoke while executing a
// task. Implementations report failure through the ToolResult rather
// than panicking; an error return is reserved for transport-level
// problems. Either way the engine converts failures into a failed-task
// outcome instead of aborting the run.
type Tool interface {
	// Name returns the action name the reasoning step uses to select
	// this tool.
	Name() string

	// Description explains what the tool does.
	Description() string

	// Schema returns the JSON Schema for the tool's parameters.
	Schema() map[string]interface{}

	// Execute runs the tool.
	Execute(ctx context.Context, params *ToolParams) (*ToolResult, error)
}

// ToolParams carries the invocation context for one tool execution.
type ToolParams struct {
	// TaskID identifies the task this execution serves.
	TaskID string

	// GoalID identifies the owning goal.
	GoalID string

	// Input is the JSON-encoded tool input.
	Input json.RawMessage

	// Thought is the reasoning that led to this invocation.
	Thought string
}

// ToolResult is the outcome of one tool execution.
type ToolResult struct {
	Success bool
	Data    interface{}
	Error   string
}
