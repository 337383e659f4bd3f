package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"brandchat/internal/backend"
	"brandchat/internal/middleware"
	"brandchat/internal/service"
)

// AdminHandler 管理端处理器
// 路由层已套 RequireAdmin，这里不再做角色判断
type AdminHandler struct {
	svc *service.Services
}

// NewAdminHandler 创建管理端处理器
func NewAdminHandler(svc *service.Services) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// ListAllChats 跨用户列出会话日志
func (h *AdminHandler) ListAllChats(c *gin.Context) {
	page, size := getPagination(c)

	chats, total, err := h.svc.Chat.ListAllChats(c.Request.Context(), (page-1)*size, size)
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, gin.H{"items": chats, "total": total, "page": page, "size": size})
}

// UploadDocument 上传文档并交给后端索引
// 索引是重活，客户端超时由后端配置控制，不用默认的请求超时
func (h *AdminHandler) UploadDocument(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required: "+err.Error())
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		errorResponse(c, err)
		return
	}
	defer f.Close()

	doc, err := h.svc.Admin.IndexDocument(c.Request.Context(), userID, fileHeader.Filename, f)
	if err != nil {
		if errors.Is(err, backend.ErrTimeout) {
			badRequest(c, "Indexing timed out, the file may be too large")
			return
		}
		errorResponse(c, err)
		return
	}

	created(c, doc)
}

// ListDocuments 列出已索引文档
func (h *AdminHandler) ListDocuments(c *gin.Context) {
	page, size := getPagination(c)

	docs, total, err := h.svc.Admin.ListDocuments(c.Request.Context(), (page-1)*size, size)
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, gin.H{"items": docs, "total": total, "page": page, "size": size})
}

// DeleteDocument 删除文档
func (h *AdminHandler) DeleteDocument(c *gin.Context) {
	id := c.Param("id")

	if err := h.svc.Admin.DeleteDocument(c.Request.Context(), id); err != nil {
		errorResponse(c, err)
		return
	}

	success(c, gin.H{"status": "deleted"})
}

// GetSystemPrompt 获取系统提示词
func (h *AdminHandler) GetSystemPrompt(c *gin.Context) {
	prompt, err := h.svc.Admin.GetSystemPrompt(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, gin.H{"system_prompt": prompt})
}

// UpdateSystemPrompt 更新系统提示词
func (h *AdminHandler) UpdateSystemPrompt(c *gin.Context) {
	var req struct {
		SystemPrompt string `json:"system_prompt" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "system_prompt cannot be empty")
		return
	}

	if err := h.svc.Admin.UpdateSystemPrompt(c.Request.Context(), req.SystemPrompt); err != nil {
		errorResponse(c, err)
		return
	}

	success(c, gin.H{"system_prompt": req.SystemPrompt})
}
