package engine_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyelabs/skye-agent/core"
	"github.com/skyelabs/skye-agent/engine"
	"github.com/skyelabs/skye-agent/tools"
)

// stubCompleter replays canned responses. Once the canned responses run
// out it keeps returning the last one.
type stubCompleter struct {
	mu        sync.Mutex
	responses []*anthropic.Message
	calls     int
}

func (s *stubCompleter) Complete(_ context.Context, _ anthropic.MessageNewParams) (*anthropic.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.calls
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	s.calls++
	return s.responses[idx], nil
}

func (s *stubCompleter) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubExtractor struct {
	data core.ExtractionData
}

func (s *stubExtractor) Extract(context.Context, string, string) core.ExtractionData {
	return s.data
}

func textResponse(text string) *anthropic.Message {
	return &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: text},
		},
	}
}

func toolUseResponse(text string, callBlocks ...anthropic.ContentBlockUnion) *anthropic.Message {
	blocks := []anthropic.ContentBlockUnion{{Type: "text", Text: text}}
	blocks = append(blocks, callBlocks...)
	return &anthropic.Message{Content: blocks}
}

func toolUseBlock(id, name, input string) anthropic.ContentBlockUnion {
	return anthropic.ContentBlockUnion{
		Type:  "tool_use",
		ID:    id,
		Name:  name,
		Input: json.RawMessage(input),
	}
}

func echoTool(name string) core.Tool {
	return tools.New(name).
		Description("echoes its input").
		Schema(tools.ObjectSchema(map[string]any{
			"query": tools.StringProperty("anything"),
		})).
		Handler(func(_ context.Context, params *core.ToolParams) (*core.ToolResult, error) {
			return &core.ToolResult{Success: true, Data: map[string]any{"echo": string(params.Input)}}, nil
		})
}

func freshState() *core.SessionState {
	return &core.SessionState{SessionID: "s1", UserID: "u1"}
}

func TestRunTurnWelcome(t *testing.T) {
	completer := &stubCompleter{responses: []*anthropic.Message{textResponse("unused")}}
	e := engine.NewEngine(completer, engine.NewToolRegistry(), nil)

	res, err := e.RunTurn(context.Background(), freshState(), "", nil)
	require.NoError(t, err)

	assert.Equal(t, engine.WelcomeMessage, res.Response)
	assert.False(t, res.Terminal)
	assert.Zero(t, completer.callCount(), "welcome must not call the model")

	require.Len(t, res.History, 2)
	assert.Equal(t, core.RoleSystem, res.History[0].Role)
	assert.Equal(t, core.RoleAssistant, res.History[1].Role)
	assert.Equal(t, engine.WelcomeMessage, res.History[1].Content)
}

func TestRunTurnFarewell(t *testing.T) {
	for _, msg := range []string{"bye", "BYE", "Goodbye for now", "end session please"} {
		completer := &stubCompleter{responses: []*anthropic.Message{textResponse("unused")}}
		e := engine.NewEngine(completer, engine.NewToolRegistry(), nil)

		res, err := e.RunTurn(context.Background(), freshState(), msg, nil)
		require.NoError(t, err)

		assert.True(t, res.Terminal, "message %q should end the session", msg)
		assert.Equal(t, engine.FarewellMessage, res.Response)
		assert.Zero(t, completer.callCount())

		// Both sides of the exchange land in history.
		require.Len(t, res.History, 2)
		assert.Equal(t, msg, res.History[0].Content)
		assert.Equal(t, engine.FarewellMessage, res.History[1].Content)
	}
}

func TestRunTurnPlainResponse(t *testing.T) {
	completer := &stubCompleter{responses: []*anthropic.Message{textResponse("Tell me more about your goals.")}}
	e := engine.NewEngine(completer, engine.NewToolRegistry(echoTool("search_skills")), nil)

	res, err := e.RunTurn(context.Background(), freshState(), "I want to learn Rust", nil)
	require.NoError(t, err)

	assert.Equal(t, "Tell me more about your goals.", res.Response)
	assert.Equal(t, 1, completer.callCount())
	assert.Empty(t, res.ToolsUsed)
}

func TestToolLoopBound(t *testing.T) {
	// The model always requests another tool call; the loop must stop
	// after exactly 10 round trips and use the last response's text.
	resp := toolUseResponse("still searching",
		toolUseBlock("call-1", "search_content", `{"query":"rust"}`))
	completer := &stubCompleter{responses: []*anthropic.Message{resp}}

	e := engine.NewEngine(completer, engine.NewToolRegistry(echoTool("search_content")), nil)

	res, err := e.RunTurn(context.Background(), freshState(), "find me rust courses", nil)
	require.NoError(t, err)

	assert.Equal(t, 10, completer.callCount())
	assert.Equal(t, "still searching", res.Response)
	assert.Len(t, res.ToolsUsed, 10)
}

func TestUnknownToolBecomesErrorResult(t *testing.T) {
	completer := &stubCompleter{responses: []*anthropic.Message{
		toolUseResponse("let me check", toolUseBlock("call-1", "no_such_tool", `{}`)),
		textResponse("I could not look that up."),
	}}
	e := engine.NewEngine(completer, engine.NewToolRegistry(), nil)

	res, err := e.RunTurn(context.Background(), freshState(), "look it up", nil)
	require.NoError(t, err, "an unknown tool must not abort the turn")

	assert.Equal(t, "I could not look that up.", res.Response)
	require.Len(t, res.ToolsUsed, 1)
	assert.Equal(t, "unknown tool", res.ToolsUsed[0].Error)
}

func TestFailingToolBecomesErrorResult(t *testing.T) {
	failing := tools.New("search_content").
		Description("always fails").
		Schema(tools.ObjectSchema(nil)).
		Handler(func(context.Context, *core.ToolParams) (*core.ToolResult, error) {
			return nil, fmt.Errorf("index unavailable")
		})

	completer := &stubCompleter{responses: []*anthropic.Message{
		toolUseResponse("searching", toolUseBlock("call-1", "search_content", `{"query":"go"}`)),
		textResponse("Search is down, but here is general advice."),
	}}
	e := engine.NewEngine(completer, engine.NewToolRegistry(failing), nil)

	res, err := e.RunTurn(context.Background(), freshState(), "find courses", nil)
	require.NoError(t, err)

	assert.Equal(t, "Search is down, but here is general advice.", res.Response)
	require.Len(t, res.ToolsUsed, 1)
	assert.Equal(t, "index unavailable", res.ToolsUsed[0].Error)
}

func TestMultipleToolCallsRunConcurrently(t *testing.T) {
	// Both handlers block until the other has started; sequential
	// dispatch would never get past the barrier.
	barrier := make(chan struct{}, 2)
	blocking := func(name string) core.Tool {
		return tools.New(name).
			Description("blocks on a barrier").
			Schema(tools.ObjectSchema(nil)).
			Handler(func(ctx context.Context, _ *core.ToolParams) (*core.ToolResult, error) {
				barrier <- struct{}{}
				for len(barrier) < 2 {
					select {
					case <-ctx.Done():
						return nil, ctx.Err()
					case <-time.After(time.Millisecond):
					}
				}
				return &core.ToolResult{Success: true, Data: name}, nil
			})
	}

	completer := &stubCompleter{responses: []*anthropic.Message{
		toolUseResponse("checking both",
			toolUseBlock("call-1", "search_content", `{"query":"a"}`),
			toolUseBlock("call-2", "search_skills", `{"query":"b"}`)),
		textResponse("done"),
	}}
	e := engine.NewEngine(completer,
		engine.NewToolRegistry(blocking("search_content"), blocking("search_skills")), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := e.RunTurn(ctx, freshState(), "compare", nil)
	require.NoError(t, err)
	assert.Equal(t, "done", res.Response)
	assert.Len(t, res.ToolsUsed, 2)
}

func TestToolProgressEventsEmitted(t *testing.T) {
	var mu sync.Mutex
	var events []core.Event
	sink := core.EventSinkFunc(func(e core.Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})

	longQuery := "this query is quite a bit longer than sixty characters so it gets truncated"
	completer := &stubCompleter{responses: []*anthropic.Message{
		toolUseResponse("searching",
			toolUseBlock("call-1", "search_content", `{"query":"`+longQuery+`"}`)),
		textResponse("found it"),
	}}
	e := engine.NewEngine(completer, engine.NewToolRegistry(echoTool("search_content")), nil)

	_, err := e.RunTurn(context.Background(), freshState(), "search", sink)
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, core.EventToolCall, events[0].Type)
	assert.Equal(t, "search_content", events[0].Tool)
	assert.Len(t, events[0].Preview, 60)
}

func TestExtractionMergesIntoMemory(t *testing.T) {
	completer := &stubCompleter{responses: []*anthropic.Message{textResponse("Great, noted!")}}
	extractor := &stubExtractor{data: core.ExtractionData{
		Objective:      "learn Rust",
		RelevantSkills: []string{"Python"},
		RequiredSkills: []string{"Rust"},
	}}
	e := engine.NewEngine(completer, engine.NewToolRegistry(), extractor)

	res, err := e.RunTurn(context.Background(), freshState(), "I know Python and want to learn Rust", nil)
	require.NoError(t, err)

	assert.Equal(t, "learn Rust", res.Memory.Objective)
	assert.Equal(t, []string{"Python"}, res.Memory.RelevantSkills)
	assert.Equal(t, []string{"Rust"}, res.Memory.RequiredSkills)

	// The system entry is re-rendered from the merged profile.
	require.NotEmpty(t, res.History)
	assert.Equal(t, core.RoleSystem, res.History[0].Role)
	assert.Contains(t, res.History[0].Content, "Objective: learn Rust")
	assert.Contains(t, res.History[0].Content, "Required Skills to Learn: Rust")
}

func TestRunTurnDoesNotMutateState(t *testing.T) {
	state := &core.SessionState{
		SessionID: "s1",
		Memory:    core.Memory{Objective: "learn Go"},
		ChatHistory: []core.Message{
			core.SystemMessage("old prompt"),
			core.UserMessage("hello"),
			core.AssistantMessage("hi"),
		},
	}
	completer := &stubCompleter{responses: []*anthropic.Message{textResponse("sure")}}
	extractor := &stubExtractor{data: core.ExtractionData{Deadline: "3 months"}}
	e := engine.NewEngine(completer, engine.NewToolRegistry(), extractor)

	_, err := e.RunTurn(context.Background(), state, "I have 3 months", nil)
	require.NoError(t, err)

	assert.Equal(t, "old prompt", state.ChatHistory[0].Content)
	assert.Len(t, state.ChatHistory, 3)
	assert.Empty(t, state.Memory.Deadline, "turn results are committed by the caller, not the engine")
}
