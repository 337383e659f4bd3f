package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"brandchat/internal/service/auth"
	"brandchat/internal/service/chat"
)

// Response 统一响应
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// success 成功响应
func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: data})
}

// created 创建成功响应
func created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Code: 0, Message: "created", Data: data})
}

// badRequest 参数错误响应
func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Code: -1, Message: msg})
}

// errorResponse 按错误类型返回相应状态码
// 角色查询故障归入 403：默认拒绝，不暴露为服务器错误
func errorResponse(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, Response{Code: -1, Message: "Unauthorized"})
	case errors.Is(err, auth.ErrForbidden), errors.Is(err, auth.ErrRoleLookup):
		c.JSON(http.StatusForbidden, Response{Code: -1, Message: "Forbidden"})
	case errors.Is(err, chat.ErrNotOwner):
		c.JSON(http.StatusForbidden, Response{Code: -1, Message: "Forbidden"})
	default:
		c.JSON(http.StatusInternalServerError, Response{Code: -1, Message: err.Error()})
	}
}

// getPagination 获取分页参数
func getPagination(c *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ = strconv.Atoi(c.DefaultQuery("size", "20"))
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return
}
