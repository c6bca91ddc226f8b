package middleware

import (
	"net/http"

	"github.com/bingooyong/apphub/pkg/errors"
	"github.com/bingooyong/apphub/pkg/response"
	"github.com/gin-gonic/gin"
)

// BodyLimit 限制请求体大小
// 声明的 Content-Length 超限时直接返回 413，否则读取超限时返回 *http.MaxBytesError
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 || c.Request.Body == nil {
			c.Next()
			return
		}

		if c.Request.ContentLength > maxBytes {
			response.Error(c, errors.ErrPayloadTooLargeMsg)
			c.Abort()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
