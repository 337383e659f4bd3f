package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Recovery 恢复中间件
func Recovery(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.WithFields(logrus.Fields{
					"panic": err,
					"stack": string(debug.Stack()),
				}).Error("panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"code":    -1,
					"message": "internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}
