package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"brandchat/internal/middleware"
	"brandchat/internal/service"
	"brandchat/internal/service/chat"
)

// ChatHandler 聊天处理器
type ChatHandler struct {
	svc *service.Services
}

// NewChatHandler 创建聊天处理器
func NewChatHandler(svc *service.Services) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// CreateChat 创建会话
func (h *ChatHandler) CreateChat(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	chatRow, err := h.svc.Chat.CreateChat(c.Request.Context(), userID)
	if err != nil {
		errorResponse(c, err)
		return
	}

	created(c, chatRow)
}

// ListChats 列出当前用户的会话
func (h *ChatHandler) ListChats(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	page, size := getPagination(c)

	chats, err := h.svc.Chat.ListChats(c.Request.Context(), userID, (page-1)*size, size)
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, gin.H{"items": chats, "page": page, "size": size})
}

// GetChat 获取会话及其消息
func (h *ChatHandler) GetChat(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	id := c.Param("id")

	chatRow, err := h.svc.Chat.GetChat(c.Request.Context(), userID, id)
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, chatRow)
}

// RenameChat 重命名会话
func (h *ChatHandler) RenameChat(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	id := c.Param("id")

	var req struct {
		Title string `json:"title" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	chatRow, err := h.svc.Chat.RenameChat(c.Request.Context(), userID, id, req.Title)
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, chatRow)
}

// DeleteChat 删除会话
func (h *ChatHandler) DeleteChat(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	id := c.Param("id")

	if err := h.svc.Chat.DeleteChat(c.Request.Context(), userID, id); err != nil {
		errorResponse(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetMessages 获取会话消息
func (h *ChatHandler) GetMessages(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	id := c.Param("id")

	messages, err := h.svc.Chat.ListMessages(c.Request.Context(), userID, id)
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, gin.H{"messages": messages})
}

// SendMessage 发送消息并等待助手回复
// 有活跃 WebSocket 连接时发送方的视图会先看到乐观插入
func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	id := c.Param("id")

	var req chat.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	view := h.svc.Hub.ViewFor(userID, id)

	result, err := h.svc.Chat.Send(c.Request.Context(), userID, id, &req, view)
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, result)
}
