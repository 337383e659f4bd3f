package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"brandchat/internal/middleware"
	"brandchat/internal/realtime"
	"brandchat/internal/repository"
	"brandchat/internal/service"
)

// WSHandler WebSocket 接入
type WSHandler struct {
	svc      *service.Services
	repo     *repository.Repositories
	upgrader websocket.Upgrader
}

// NewWSHandler 创建 WebSocket 处理器
func NewWSHandler(svc *service.Services, repo *repository.Repositories) *WSHandler {
	return &WSHandler{
		svc:  svc,
		repo: repo,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Serve 升级连接并进入读写循环
// 身份已由 RequireAuth 解析；订阅会话由客户端的 subscribe 指令决定
func (h *WSHandler) Serve(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, Response{Code: -1, Message: "Unauthorized"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := realtime.NewClient(h.svc.Hub, h.repo.Message, conn, userID)
	h.svc.Hub.Register(client)

	// 读循环阻塞在本 handler 里，连接断开前请求上下文保持存活
	go client.WritePump(context.Background())
	client.ReadPump(c.Request.Context())
}
