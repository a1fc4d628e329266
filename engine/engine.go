// Package engine runs one conversation turn: dynamic prompt rendering,
// the model call with its tool invocation loop, extraction, and the
// memory merge. It holds no session state of its own; the workflow
// package owns persistence and sequencing.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/skyelabs/skye-agent/core"
)

const (
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 1200

	// maxToolIterations caps the model/tool round trips per turn. When
	// the cap is hit the last assistant text is used as-is; this is a
	// safety valve against tool-call loops, not an error.
	maxToolIterations = 10
)

// Completer abstracts the Anthropic Messages API so the loop can be
// driven by a stub in tests.
type Completer interface {
	Complete(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error)
}

// AnthropicCompleter adapts an Anthropic client to the Completer
// interface.
type AnthropicCompleter struct {
	client *anthropic.Client
}

// NewAnthropicCompleter wraps an Anthropic client.
func NewAnthropicCompleter(client *anthropic.Client) *AnthropicCompleter {
	return &AnthropicCompleter{client: client}
}

// Complete calls the Messages API.
func (c *AnthropicCompleter) Complete(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	return c.client.Messages.New(ctx, params)
}

// Extractor turns a finished exchange into structured profile data.
// Implementations must be best-effort: a failed extraction returns the
// zero value, never an error.
type Extractor interface {
	Extract(ctx context.Context, userText, assistantText string) core.ExtractionData
}

// Engine executes conversation turns.
type Engine struct {
	completer Completer
	registry  *ToolRegistry
	extractor Extractor
	log       *zap.Logger
	model     string
	maxTokens int64
}

// Option configures the engine.
type Option func(*Engine)

// WithModel overrides the conversational model.
func WithModel(model string) Option {
	return func(e *Engine) {
		if model != "" {
			e.model = model
		}
	}
}

// WithMaxTokens overrides the response token cap.
func WithMaxTokens(n int64) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxTokens = n
		}
	}
}

// WithLogger sets the engine's logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log.Named("engine")
		}
	}
}

// NewEngine creates an engine. extractor may be nil, in which case no
// profile extraction runs.
func NewEngine(completer Completer, registry *ToolRegistry, extractor Extractor, opts ...Option) *Engine {
	e := &Engine{
		completer: completer,
		registry:  registry,
		extractor: extractor,
		log:       zap.NewNop(),
		model:     defaultModel,
		maxTokens: defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TurnResult is the outcome of one conversation turn.
type TurnResult struct {
	// Response is the assistant's final text.
	Response string

	// Memory is the updated profile after extraction and merge.
	Memory core.Memory

	// History is the full updated chat history, including the
	// re-rendered system entry.
	History []core.Message

	// ToolsUsed records every tool invocation during the turn.
	ToolsUsed []core.ToolExecution

	// Terminal is set when the user ended the session; the workflow
	// transitions to its terminal state instead of suspending.
	Terminal bool
}

// RunTurn executes one conversation turn against the given session
// state. It never mutates state; the caller commits the returned result
// atomically after a successful turn.
func (e *Engine) RunTurn(ctx context.Context, state *core.SessionState, userMessage string, sink core.EventSink) (*TurnResult, error) {
	if sink == nil {
		sink = core.NopSink
	}

	memory := state.Memory.Clone()
	history := make([]core.Message, len(state.ChatHistory))
	copy(history, state.ChatHistory)

	// Empty message: fixed welcome, no model call.
	if userMessage == "" {
		history = setSystemEntry(history, BuildSystemPrompt(memory))
		history = append(history, core.AssistantMessage(WelcomeMessage))
		return &TurnResult{Response: WelcomeMessage, Memory: memory, History: history}, nil
	}

	// End-of-session keyword: fixed farewell, terminal signal.
	if IsFarewell(userMessage) {
		history = append(history,
			core.UserMessage(userMessage),
			core.AssistantMessage(FarewellMessage))
		return &TurnResult{Response: FarewellMessage, Memory: memory, History: history, Terminal: true}, nil
	}

	systemPrompt := BuildSystemPrompt(memory)
	msgs := toAnthropicMessages(history, historyWindow)
	msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(userMessage)))

	text, toolsUsed, err := e.runToolLoop(ctx, state, systemPrompt, msgs, sink)
	if err != nil {
		return nil, err
	}

	if e.extractor != nil {
		extracted := e.extractor.Extract(ctx, userMessage, text)
		memory = core.Merge(memory, extracted)
	}

	history = append(history,
		core.UserMessage(userMessage),
		core.AssistantMessage(text))
	history = setSystemEntry(history, BuildSystemPrompt(memory))

	return &TurnResult{
		Response:  text,
		Memory:    memory,
		History:   history,
		ToolsUsed: toolsUsed,
	}, nil
}

type toolCall struct {
	id    string
	name  string
	input json.RawMessage
}

// runToolLoop drives model/tool round trips until the model stops
// requesting tools or the iteration cap is hit.
func (e *Engine) runToolLoop(ctx context.Context, state *core.SessionState, systemPrompt string, msgs []anthropic.MessageParam, sink core.EventSink) (string, []core.ToolExecution, error) {
	apiTools := e.registry.ToAPITools()

	var toolsUsed []core.ToolExecution
	var lastText string

	for i := 0; i < maxToolIterations; i++ {
		if err := ctx.Err(); err != nil {
			return "", nil, fmt.Errorf("turn cancelled: %w", err)
		}

		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(e.model),
			MaxTokens: e.maxTokens,
			Messages:  msgs,
			System: []anthropic.TextBlockParam{
				{Text: systemPrompt},
			},
		}
		if len(apiTools) > 0 {
			params.Tools = apiTools
		}

		resp, err := e.completer.Complete(ctx, params)
		if err != nil {
			return "", nil, fmt.Errorf("chat completion: %w", err)
		}

		var text string
		var calls []toolCall
		for _, block := range resp.Content {
			switch block.Type {
			case "text":
				text += block.Text
			case "tool_use":
				calls = append(calls, toolCall{id: block.ID, name: block.Name, input: block.Input})
			}
		}
		lastText = text

		if len(calls) == 0 {
			return text, toolsUsed, nil
		}

		results, execs, err := e.dispatchCalls(ctx, state, calls, sink)
		if err != nil {
			return "", nil, err
		}
		toolsUsed = append(toolsUsed, execs...)

		msgs = append(msgs, resp.ToParam())
		msgs = append(msgs, anthropic.NewUserMessage(results...))
	}

	e.log.Warn("tool loop hit iteration cap, using last response",
		zap.Int("iterations", maxToolIterations),
		zap.String("session_id", state.SessionID))
	return lastText, toolsUsed, nil
}

// dispatchCalls runs one batch of tool calls concurrently and returns
// the result blocks in request order. Tool failures are embedded as
// error results, never surfaced as loop errors; only cancellation
// aborts the batch.
func (e *Engine) dispatchCalls(ctx context.Context, state *core.SessionState, calls []toolCall, sink core.EventSink) ([]anthropic.ContentBlockParamUnion, []core.ToolExecution, error) {
	results := make([]anthropic.ContentBlockParamUnion, len(calls))
	execs := make([]core.ToolExecution, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		// Progress event goes out before the call runs so streaming
		// consumers see "tool X is running" in real time.
		sink.Emit(core.Event{
			Type:    core.EventToolCall,
			Tool:    call.name,
			Preview: toolPreview(call.name, call.input),
		})

		g.Go(func() error {
			results[i], execs[i] = e.invokeTool(gctx, state, call)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("tool dispatch: %w", err)
	}
	return results, execs, nil
}

func (e *Engine) invokeTool(ctx context.Context, state *core.SessionState, call toolCall) (anthropic.ContentBlockParamUnion, core.ToolExecution) {
	exec := core.ToolExecution{Tool: call.name, Input: call.input}

	tool, ok := e.registry.Get(call.name)
	if !ok {
		e.log.Warn("model requested unknown tool", zap.String("tool", call.name))
		exec.Error = "unknown tool"
		return anthropic.NewToolResultBlock(call.id, errorPayload("Unknown tool: "+call.name), true), exec
	}

	start := time.Now()
	result, err := tool.Execute(ctx, &core.ToolParams{
		UserID:    state.UserID,
		SessionID: state.SessionID,
		Input:     call.input,
	})
	exec.DurationMs = time.Since(start).Milliseconds()

	switch {
	case err != nil:
		e.log.Warn("tool execution failed",
			zap.String("tool", call.name), zap.Error(err))
		exec.Error = err.Error()
		return anthropic.NewToolResultBlock(call.id, errorPayload(err.Error()), true), exec

	case result != nil && !result.Success:
		exec.Error = result.Error
		return anthropic.NewToolResultBlock(call.id, errorPayload(result.Error), true), exec

	default:
		var data any
		if result != nil {
			data = result.Data
		}
		exec.Result = data
		payload, merr := json.Marshal(data)
		if merr != nil {
			exec.Error = merr.Error()
			return anthropic.NewToolResultBlock(call.id, errorPayload(merr.Error()), true), exec
		}
		return anthropic.NewToolResultBlock(call.id, string(payload), false), exec
	}
}

// errorPayload wraps an error message the way tools report their own
// failures, so the model sees a consistent shape.
func errorPayload(msg string) string {
	payload, _ := json.Marshal(map[string]string{"error": msg})
	return string(payload)
}

// toolPreview builds the compact preview attached to tool progress
// events: the query for search tools, the tool name otherwise.
func toolPreview(name string, input json.RawMessage) string {
	switch name {
	case "search_content", "search_skills":
		var q struct {
			Query string `json:"query"`
		}
		if err := json.Unmarshal(input, &q); err == nil && q.Query != "" {
			if len(q.Query) > 60 {
				return q.Query[:60]
			}
			return q.Query
		}
	}
	return name
}
