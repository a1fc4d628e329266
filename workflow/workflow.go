// Package workflow drives resumable conversation sessions: a two-node
// state machine (chat, human_input) checkpointed after every turn. Runs
// within one session execute serially; a failed turn commits nothing.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/skyelabs/skye-agent/core"
	"github.com/skyelabs/skye-agent/engine"
)

// TurnRunner executes a single conversation turn. Satisfied by
// *engine.Engine.
type TurnRunner interface {
	RunTurn(ctx context.Context, state *core.SessionState, userMessage string, sink core.EventSink) (*engine.TurnResult, error)
}

// Input carries the opening message of a new run.
type Input struct {
	UserMessage string
	UserID      string
}

// Workflow coordinates turn execution, checkpointing, and progress
// events for all sessions.
type Workflow struct {
	runner TurnRunner
	store  Store
	log    *zap.Logger

	// locks holds one *sync.Mutex per session id so concurrent runs on
	// the same session execute serially. Entries are never removed;
	// a mutex is a few bytes and session churn is low.
	locks sync.Map
}

// New creates a workflow over the given turn runner and checkpoint
// store.
func New(runner TurnRunner, store Store, log *zap.Logger) *Workflow {
	if log == nil {
		log = zap.NewNop()
	}
	return &Workflow{
		runner: runner,
		store:  store,
		log:    log.Named("workflow"),
	}
}

func (w *Workflow) sessionLock(sessionID string) *sync.Mutex {
	mu, _ := w.locks.LoadOrStore(sessionID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Start begins or continues a session with a fresh user message. A
// missing checkpoint creates the session; a terminal one cannot be
// restarted.
func (w *Workflow) Start(ctx context.Context, sessionID string, in Input, sink core.EventSink) (*core.SessionState, error) {
	mu := w.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	state, err := w.store.Load(ctx, sessionID)
	switch {
	case err == nil:
		if state.Terminal() {
			return nil, core.ErrSessionExpired
		}
	case errors.Is(err, core.ErrSessionNotFound):
		now := time.Now().Unix()
		state = &core.SessionState{
			SessionID: sessionID,
			UserID:    in.UserID,
			Next:      core.NodeChat,
			CreatedAt: now,
			UpdatedAt: now,
		}
	default:
		return nil, err
	}

	if in.UserID != "" {
		state.UserID = in.UserID
	}
	return w.runTurn(ctx, state, in.UserMessage, sink)
}

// Resume continues a session parked at the human-input node with the
// user's reply. Unknown sessions fail with core.ErrSessionNotFound;
// terminal or non-suspended ones with core.ErrSessionExpired.
func (w *Workflow) Resume(ctx context.Context, sessionID, userMessage string, sink core.EventSink) (*core.SessionState, error) {
	mu := w.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	state, err := w.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.Terminal() || state.Pending == nil {
		return nil, core.ErrSessionExpired
	}
	return w.runTurn(ctx, state, userMessage, sink)
}

// State returns the current checkpoint for inspection.
func (w *Workflow) State(ctx context.Context, sessionID string) (*core.SessionState, error) {
	return w.store.Load(ctx, sessionID)
}

// runTurn executes one turn on a clone of state and commits the result
// all-or-nothing. The checkpoint is saved before any completion event
// goes out, so a client reacting to the suspension signal always finds
// the checkpoint in place.
func (w *Workflow) runTurn(ctx context.Context, state *core.SessionState, userMessage string, sink core.EventSink) (*core.SessionState, error) {
	if sink == nil {
		sink = core.NopSink
	}

	next := state.Clone()
	next.PendingUserMessage = userMessage
	next.Pending = nil

	result, err := w.runner.RunTurn(ctx, next, userMessage, sink)
	if err != nil {
		w.log.Error("turn failed, checkpoint unchanged",
			zap.String("session_id", state.SessionID), zap.Error(err))
		return nil, fmt.Errorf("run turn: %w", err)
	}

	next.Memory = result.Memory
	next.ChatHistory = result.History
	next.LastResponse = result.Response
	next.PendingUserMessage = ""
	next.UpdatedAt = time.Now().Unix()

	if result.Terminal {
		next.Next = ""
	} else {
		next.Next = core.NodeHumanInput
		next.Pending = &core.Interrupt{Value: map[string]any{
			"message":       "Ready for your message.",
			"last_response": result.Response,
		}}
	}

	if err := w.store.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("save checkpoint: %w", err)
	}

	memory := next.Memory.Clone()
	sink.Emit(core.Event{
		Type:      core.EventComplete,
		MessageID: fmt.Sprintf("chat-%s-%d", next.SessionID, time.Now().UnixMilli()),
		Text:      result.Response,
		Memory:    &memory,
	})
	if result.Terminal {
		sink.Emit(core.Event{Type: core.EventEnd})
	} else {
		sink.Emit(core.Event{
			Type:   core.EventInterrupt,
			Text:   result.Response,
			Memory: &memory,
		})
	}

	return next, nil
}
