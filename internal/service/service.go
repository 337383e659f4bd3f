package service

import (
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"brandchat/internal/backend"
	"brandchat/internal/config"
	"brandchat/internal/realtime"
	"brandchat/internal/repository"
	"brandchat/internal/service/admin"
	"brandchat/internal/service/auth"
	"brandchat/internal/service/chat"
)

// Services 服务集合
type Services struct {
	Auth  *auth.Service
	Chat  *chat.Service
	Admin *admin.Service

	Backend *backend.Client
	Hub     *realtime.Hub
	Config  *config.Config
}

// NewServices 创建所有服务
// 所有依赖由组合根显式传入，不存在包级共享客户端
func NewServices(repo *repository.Repositories, cfg *config.Config, redisClient *redis.Client, log *logrus.Logger) *Services {
	backendClient := backend.NewClient(cfg.Backend)
	hub := realtime.NewHub(redisClient, log)

	return &Services{
		Auth:  auth.NewService(repo.Auth, repo.Profile, cfg.Auth, log),
		Chat:  chat.NewService(repo.Chat, repo.Message, backendClient, hub, log, cfg.Backend.HistoryLimit),
		Admin: admin.NewService(repo.Document, repo.Setting, backendClient, redisClient, log),

		Backend: backendClient,
		Hub:     hub,
		Config:  cfg,
	}
}
