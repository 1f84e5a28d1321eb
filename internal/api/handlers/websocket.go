package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shunnagahara/van-toilet-smash/internal/websocket"
)

// WebSocketHandler 매치 푸시용 WebSocket 연결 처리
type WebSocketHandler struct {
	hub *websocket.Hub
}

func NewWebSocketHandler(hub *websocket.Hub) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
	}
}

// HandleWebSocket 연결 업그레이드. 같은 유저가 재연결하면 허브가 기존 연결을 교체한다.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session required"})
		return
	}

	websocket.ServeWs(h.hub, c.Writer, c.Request, userID)
}
