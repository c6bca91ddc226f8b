package middleware

import (
	"net/http"
	"time"

	"github.com/bingooyong/apphub/internal/model"
	"github.com/bingooyong/apphub/internal/service"
	"github.com/gin-gonic/gin"
)

// Audit 审计日志中间件，记录已认证用户的 POST、PUT、DELETE 请求
// 在处理器返回后同步写入，写入失败不影响响应
func Audit(audit service.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete:
		default:
			return
		}

		// 未认证的请求不记录审计日志
		userID, ok := GetUserID(c)
		if !ok {
			return
		}
		username, _ := GetUsername(c)

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		audit.Record(c.Request.Context(), &model.AuditLog{
			UserID:   userID,
			Username: username,
			Action:   c.Request.Method + " " + route,
			Method:   c.Request.Method,
			Path:     c.Request.URL.Path,
			IP:       c.ClientIP(),
			Status:   c.Writer.Status(),
			Duration: time.Since(start).Milliseconds(),
		})
	}
}
