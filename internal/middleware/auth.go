package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"brandchat/internal/model"
	"brandchat/internal/service/auth"
)

const identityContextKey = "identity"

// RequireAuth 要求可解析的身份
// 凭证来源与优先级由 auth.Service.Authenticate 决定（Cookie 优先于 Bearer）
func RequireAuth(authSvc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := authSvc.Authenticate(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    -1,
				"message": "Unauthorized",
			})
			return
		}

		c.Set(identityContextKey, identity)
		c.Set("user_id", identity.UserID)
		c.Next()
	}
}

// RequireAdmin 在 RequireAuth 之后校验管理员角色
// 角色查询故障一律拒绝为 403，不向客户端泄露 500
func RequireAdmin(authSvc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    -1,
				"message": "Unauthorized",
			})
			return
		}

		if err := authSvc.RequireRole(c.Request.Context(), identity, model.RoleAdmin); err != nil {
			status := http.StatusForbidden
			message := "Admin access required"
			if errors.Is(err, auth.ErrUnauthorized) {
				status = http.StatusUnauthorized
				message = "Unauthorized"
			}
			c.AbortWithStatusJSON(status, gin.H{
				"code":    -1,
				"message": message,
			})
			return
		}

		c.Next()
	}
}

// GetIdentity 从上下文获取当前身份
func GetIdentity(c *gin.Context) (*auth.Identity, bool) {
	v, exists := c.Get(identityContextKey)
	if !exists {
		return nil, false
	}
	identity, ok := v.(*auth.Identity)
	return identity, ok
}

// GetUserID 从上下文获取当前用户ID
func GetUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		return "", false
	}
	id, ok := userID.(string)
	return id, ok
}
