package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The API carries no cookies, so cross-origin upgrades are safe.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsFrame is the WebSocket envelope mirroring one SSE event.
type wsFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// handleWS runs one workflow turn over a WebSocket: the client sends a
// single RunRequest, receives the event stream as JSON frames, and the
// connection closes when the run ends.
func (s *Server) handleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}
	defer conn.Close()

	threadID := c.Param("thread_id")

	var req RunRequest
	if err := conn.ReadJSON(&req); err != nil {
		_ = conn.WriteJSON(wsFrame{Event: "error", Data: map[string]any{
			"error":   "bad_request",
			"message": "invalid request frame",
		}})
		return
	}

	for f := range s.runStream(c.Request.Context(), threadID, req) {
		if err := conn.WriteJSON(wsFrame{Event: f.event, Data: f.data}); err != nil {
			s.log.Warn("websocket write failed",
				zap.String("thread_id", threadID), zap.Error(err))
			return
		}
	}

	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
