package handler

import (
	"brandchat/internal/repository"
	"brandchat/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	Auth  *AuthHandler
	Chat  *ChatHandler
	Admin *AdminHandler
	WS    *WSHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(svc *service.Services, repo *repository.Repositories) *Handlers {
	return &Handlers{
		Auth:  NewAuthHandler(svc),
		Chat:  NewChatHandler(svc),
		Admin: NewAdminHandler(svc),
		WS:    NewWSHandler(svc, repo),
	}
}
