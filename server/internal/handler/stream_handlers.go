package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/navid-fn/fareradar/server/internal/stream"
)

type StreamHandler struct {
	hub      *stream.Hub
	upgrader websocket.Upgrader
}

func NewStreamHandler(hub *stream.Hub) *StreamHandler {
	return &StreamHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Events upgrades the request and streams pipeline events until the client leaves.
func (h *StreamHandler) Events(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response.
		return
	}
	h.hub.Serve(conn)
}
