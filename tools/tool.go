// Package tools provides helpers for defining agent tools: a function
// adapter so plain Go functions can be registered, and JSON Schema
// builders for describing their parameters.
package tools

import (
	"context"
	"fmt"

	"github.com/forgeline/pursuit/core"
)

// Handler is the function signature a FuncTool wraps.
type Handler func(ctx context.Context, params *core.ToolParams) (*core.ToolResult, error)

// FuncTool adapts a function into a core.Tool.
type FuncTool struct {
	name        string
	description string
	schema      map[string]interface{}
	handler     Handler
}

// NewFuncTool wraps handler as a tool. A nil schema becomes an empty
// object schema.
func NewFuncTool(name, description string, schema map[string]interface{}, handler Handler) (*FuncTool, error) {
	if name == "" {
		return nil, fmt.Errorf("tool name is required")
	}
	if handler == nil {
		return nil, fmt.Errorf("tool %q has no handler", name)
	}
	if schema == nil {
		schema = ObjectSchema(map[string]interface{}{})
	}
	return &FuncTool{
		name:        name,
		description: description,
		schema:      schema,
		handler:     handler,
	}, nil
}

func (t *FuncTool) Name() string                   { return t.name }
func (t *FuncTool) Description() string            { return t.description }
func (t *FuncTool) Schema() map[string]interface{} { return t.schema }

// Execute invokes the wrapped handler.
func (t *FuncTool) Execute(ctx context.Context, params *core.ToolParams) (*core.ToolResult, error) {
	return t.handler(ctx, params)
}
