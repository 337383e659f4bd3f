package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"brandchat/internal/middleware"
	"brandchat/internal/service"
	"brandchat/internal/service/auth"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	svc *service.Services
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(svc *service.Services) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Register 用户注册
func (h *AuthHandler) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid parameters: "+err.Error())
		return
	}

	info, err := h.svc.Auth.Register(c.Request.Context(), &req)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	created(c, info)
}

// Login 用户登录，成功时同时写入会话 Cookie 并返回 Bearer 令牌
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid parameters: "+err.Error())
		return
	}

	resp, err := h.svc.Auth.Login(c.Request.Context(), &req)
	if err != nil {
		errorResponse(c, err)
		return
	}

	if resp.Success {
		maxAge := h.svc.Config.Auth.AccessTokenTTL * 3600
		c.SetCookie(h.svc.Auth.CookieName(), resp.Token, maxAge, "/", "", false, true)
	}

	success(c, resp)
}

// Logout 用户登出：撤销令牌并清除 Cookie
func (h *AuthHandler) Logout(c *gin.Context) {
	token := h.requestToken(c)
	if token == "" {
		badRequest(c, "Missing credentials")
		return
	}

	if err := h.svc.Auth.Logout(c.Request.Context(), token); err != nil {
		errorResponse(c, err)
		return
	}

	c.SetCookie(h.svc.Auth.CookieName(), "", -1, "/", "", false, true)
	success(c, nil)
}

// RefreshToken 刷新令牌
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid parameters")
		return
	}

	accessToken, newRefreshToken, err := h.svc.Auth.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		badRequest(c, "Invalid refresh token")
		return
	}

	success(c, gin.H{
		"access_token":  accessToken,
		"refresh_token": newRefreshToken,
	})
}

// Me 当前用户信息
func (h *AuthHandler) Me(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, Response{Code: -1, Message: "Unauthorized"})
		return
	}

	success(c, gin.H{
		"id":    identity.UserID,
		"email": identity.Email,
		"role":  identity.Role,
	})
}

// requestToken 取出当前请求携带的令牌，Cookie 优先
func (h *AuthHandler) requestToken(c *gin.Context) string {
	if cookie, err := c.Cookie(h.svc.Auth.CookieName()); err == nil && cookie != "" {
		return cookie
	}
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
