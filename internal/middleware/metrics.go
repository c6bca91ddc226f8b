package middleware

import (
	"strconv"
	"time"

	"github.com/bingooyong/apphub/internal/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics 记录请求数、耗时与并发数，route 使用路由模板避免标签基数膨胀
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		done := m.RequestStarted()
		defer done()

		c.Next()

		m.ObserveRequest(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(c.Writer.Status()),
			time.Since(start).Seconds(),
		)
	}
}
