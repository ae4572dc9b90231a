package websocket

import (
	"net/http"

	"github.com/askwhyharsh/fogofearth/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Handler struct {
	hub    *Hub
	logger logger.Logger
}

func NewHandler(hub *Hub, log logger.Logger) *Handler {
	return &Handler{
		hub:    hub,
		logger: log,
	}
}

// HandleWebSocket subscribes a map view to fog change events.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewClient(h.hub, conn, uuid.New().String(), h.logger)
	select {
	case h.hub.register <- client:
	case <-h.hub.ctx.Done():
		conn.Close()
		return
	}

	go client.WritePump()
	client.ReadPump()
}
