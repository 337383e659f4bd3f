package router

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"brandchat/internal/database"
	"brandchat/internal/handler"
	"brandchat/internal/middleware"
	"brandchat/internal/service"
)

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers, svc *service.Services, db *database.DB, rdb *redis.Client, log *logrus.Logger) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logging(log))
	r.Use(middleware.CORS())

	// 健康检查
	r.GET("/health", healthCheck(svc, db, rdb))

	// API v1
	v1 := r.Group("/api/v1")
	{
		// Auth 认证
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", h.Auth.Register)
			authGroup.POST("/login", h.Auth.Login)
			authGroup.POST("/refresh", h.Auth.RefreshToken)
		}

		// 以下路由需要登录
		authed := v1.Group("")
		authed.Use(middleware.RequireAuth(svc.Auth))
		{
			authed.POST("/auth/logout", h.Auth.Logout)
			authed.GET("/auth/me", h.Auth.Me)

			// Chat 会话
			chats := authed.Group("/chats")
			{
				chats.POST("", h.Chat.CreateChat)
				chats.GET("", h.Chat.ListChats)
				chats.GET("/:id", h.Chat.GetChat)
				chats.PUT("/:id", h.Chat.RenameChat)
				chats.DELETE("/:id", h.Chat.DeleteChat)
				chats.GET("/:id/messages", h.Chat.GetMessages)
				chats.POST("/:id/messages", h.Chat.SendMessage)
			}

			// WebSocket 实时通道
			authed.GET("/ws", h.WS.Serve)
		}

		// Admin 管理端
		adminGroup := v1.Group("/admin")
		adminGroup.Use(middleware.RequireAuth(svc.Auth))
		adminGroup.Use(middleware.RequireAdmin(svc.Auth))
		{
			adminGroup.GET("/chats", h.Admin.ListAllChats)
			adminGroup.POST("/documents", h.Admin.UploadDocument)
			adminGroup.GET("/documents", h.Admin.ListDocuments)
			adminGroup.DELETE("/documents/:id", h.Admin.DeleteDocument)
			adminGroup.GET("/settings/system-prompt", h.Admin.GetSystemPrompt)
			adminGroup.PUT("/settings/system-prompt", h.Admin.UpdateSystemPrompt)
		}
	}

	return r
}

// healthCheck 依次探测数据库、Redis 与推理后端
// 任一依赖不可用时整体返回 degraded，但不拒绝请求
func healthCheck(svc *service.Services, db *database.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status := "ok"
		deps := gin.H{"database": "ok", "redis": "ok", "backend": "ok"}

		if err := db.Ping(ctx); err != nil {
			deps["database"] = err.Error()
			status = "degraded"
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			deps["redis"] = err.Error()
			status = "degraded"
		}
		if err := svc.Backend.Health(ctx); err != nil {
			deps["backend"] = err.Error()
			status = "degraded"
		}

		c.JSON(200, gin.H{"status": status, "deps": deps})
	}
}
