package tools

import (
	"context"

	"github.com/skyelabs/skye-agent/core"
)

// Handler executes a tool call.
type Handler func(ctx context.Context, params *core.ToolParams) (*core.ToolResult, error)

// Builder assembles a core.Tool fluently:
//
//	tools.New("search_content").
//		Description("...").
//		Schema(tools.ObjectSchema(...)).
//		Handler(fn)
type Builder struct {
	name        string
	description string
	schema      map[string]any
	handler     Handler
}

// New starts building a tool with the given name.
func New(name string) *Builder {
	return &Builder{name: name}
}

// Description sets the tool description shown to the model.
func (b *Builder) Description(desc string) *Builder {
	b.description = desc
	return b
}

// Schema sets the JSON Schema for the tool's input object.
func (b *Builder) Schema(schema map[string]any) *Builder {
	b.schema = schema
	return b
}

// Handler sets the execution function and returns the finished tool.
func (b *Builder) Handler(h Handler) core.Tool {
	return &builtTool{
		name:        b.name,
		description: b.description,
		schema:      b.schema,
		handler:     h,
	}
}

type builtTool struct {
	name        string
	description string
	schema      map[string]any
	handler     Handler
}

func (t *builtTool) Name() string                { return t.name }
func (t *builtTool) Description() string         { return t.description }
func (t *builtTool) InputSchema() map[string]any { return t.schema }

func (t *builtTool) Execute(ctx context.Context, params *core.ToolParams) (*core.ToolResult, error) {
	return t.handler(ctx, params)
}
