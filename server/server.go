// Package server exposes the conversation workflow over HTTP: thread
// management, a streaming run endpoint (SSE and WebSocket), state
// inspection, and workspace matching.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skyelabs/skye-agent/core"
	"github.com/skyelabs/skye-agent/workflow"
	"github.com/skyelabs/skye-agent/workspace"
)

// Runner drives workflow runs. Satisfied by *workflow.Workflow.
type Runner interface {
	Start(ctx context.Context, sessionID string, in workflow.Input, sink core.EventSink) (*core.SessionState, error)
	Resume(ctx context.Context, sessionID, userMessage string, sink core.EventSink) (*core.SessionState, error)
	State(ctx context.Context, sessionID string) (*core.SessionState, error)
}

// Config holds server settings.
type Config struct {
	Addr string
	Log  *zap.Logger
}

// Server is the HTTP front of the agent.
type Server struct {
	cfg     Config
	runner  Runner
	matcher *workspace.Matcher
	log     *zap.Logger
	router  *gin.Engine
}

// New builds the server and its routes. matcher may be nil when
// workspace matching is not deployed.
func New(cfg Config, runner Runner, matcher *workspace.Matcher) *Server {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		cfg:     cfg,
		runner:  runner,
		matcher: matcher,
		log:     log.Named("server"),
		router:  router,
	}

	router.GET("/health", s.handleHealth)
	router.POST("/threads", s.handleCreateThread)
	router.POST("/threads/:thread_id/stream", s.handleStream)
	router.GET("/threads/:thread_id/state", s.handleState)
	router.GET("/threads/:thread_id/ws", s.handleWS)
	router.POST("/workspaces/match", s.handleWorkspaceMatch)

	return s
}

// Handler exposes the router for tests and custom listeners.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("listening", zap.String("addr", s.cfg.Addr))
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// RunInput opens a new run with a user message.
type RunInput struct {
	UserMessage string `json:"user_message"`
	UserID      string `json:"user_id,omitempty"`
}

// RunCommand resumes a suspended run.
type RunCommand struct {
	Resume *string `json:"resume"`
}

// RunRequest is the body of the stream endpoint: exactly one of Input
// or Command.
type RunRequest struct {
	Input   *RunInput   `json:"input,omitempty"`
	Command *RunCommand `json:"command,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleCreateThread(c *gin.Context) {
	var req struct {
		ThreadID string `json:"thread_id"`
	}
	// An empty body is fine; the id is generated.
	_ = c.ShouldBindJSON(&req)
	if req.ThreadID == "" {
		req.ThreadID = uuid.NewString()
	}
	c.JSON(http.StatusOK, gin.H{"thread_id": req.ThreadID})
}

func (s *Server) handleStream(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "bad_request",
			"message": "invalid request body",
		})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	for f := range s.runStream(c.Request.Context(), c.Param("thread_id"), req) {
		c.SSEvent(f.event, f.data)
		c.Writer.Flush()
	}
}

func (s *Server) handleState(c *gin.Context) {
	state, err := s.runner.State(c.Request.Context(), c.Param("thread_id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, core.ErrSessionNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": core.ErrorCode(err)})
		return
	}

	next := []string{}
	if !state.Terminal() {
		next = append(next, state.Next)
	}
	c.JSON(http.StatusOK, gin.H{
		"values": workflow.SerializeState(state),
		"next":   next,
	})
}

type matchRequest struct {
	UserID         string   `json:"user_id"`
	Objective      string   `json:"objective"`
	Title          string   `json:"title,omitempty"`
	RequiredSkills []string `json:"required_skills,omitempty"`
}

func (s *Server) handleWorkspaceMatch(c *gin.Context) {
	if s.matcher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "workspace matching not configured"})
		return
	}

	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Objective == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "objective is required"})
		return
	}

	res, err := s.matcher.FindOrCreate(c.Request.Context(),
		req.UserID, req.Objective, req.Title, req.RequiredSkills)
	if err != nil {
		s.log.Error("workspace match failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, res)
}

// frame is one wire event, transport-agnostic; SSE and WebSocket both
// consume the same stream.
type frame struct {
	event string
	data  any
}

// runStream executes the requested run in the background and yields
// wire frames in emission order. The channel closes when the run ends.
func (s *Server) runStream(ctx context.Context, threadID string, req RunRequest) <-chan frame {
	out := make(chan frame, 16)
	go func() {
		defer close(out)

		sink := core.EventSinkFunc(func(e core.Event) {
			for _, f := range eventFrames(e) {
				select {
				case out <- f:
				case <-ctx.Done():
				}
			}
		})

		var err error
		switch {
		case req.Command != nil && req.Command.Resume != nil:
			_, err = s.runner.Resume(ctx, threadID, *req.Command.Resume, sink)
		case req.Input != nil:
			_, err = s.runner.Start(ctx, threadID, workflow.Input{
				UserMessage: req.Input.UserMessage,
				UserID:      req.Input.UserID,
			}, sink)
		default:
			err = fmt.Errorf("%w: body needs input or command", core.ErrBadRequest)
		}
		if err != nil {
			out <- s.errorFrame(threadID, err)
		}
	}()
	return out
}

// eventFrames maps a workflow event to its wire representation.
func eventFrames(e core.Event) []frame {
	switch e.Type {
	case core.EventToolCall:
		return []frame{{
			event: "messages/partial",
			data: []map[string]any{{
				"type":    "tool_use",
				"name":    e.Tool,
				"preview": e.Preview,
			}},
		}}
	case core.EventComplete:
		return []frame{
			{
				event: "messages/complete",
				data: []map[string]any{{
					"type":    "ai",
					"content": e.Text,
					"id":      e.MessageID,
				}},
			},
			{
				event: "metadata",
				data:  map[string]any{"memory": e.Memory},
			},
		}
	case core.EventInterrupt:
		return []frame{{
			event: "interrupt",
			data: map[string]any{"result": map[string]any{
				"memory":        e.Memory,
				"chat_response": e.Text,
			}},
		}}
	case core.EventEnd:
		return []frame{{
			event: "end",
			data:  map[string]any{"status": "complete"},
		}}
	}
	return nil
}

// errorFrame renders a run failure. Internal details stay in the log;
// the client gets a stable code and a safe message.
func (s *Server) errorFrame(threadID string, err error) frame {
	code := core.ErrorCode(err)
	msg := err.Error()
	if code == "internal_error" {
		s.log.Error("run failed", zap.String("thread_id", threadID), zap.Error(err))
		msg = "internal error"
	}
	return frame{event: "error", data: map[string]any{"error": code, "message": msg}}
}
