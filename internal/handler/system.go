package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/bingooyong/apphub/internal/version"
	"github.com/bingooyong/apphub/pkg/database"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SystemHandler 健康检查与版本信息
type SystemHandler struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSystemHandler 创建系统处理器实例
func NewSystemHandler(db *gorm.DB, logger *zap.Logger) *SystemHandler {
	return &SystemHandler{
		db:     db,
		logger: logger,
	}
}

// Health 健康检查
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := database.Ping(ctx, h.db); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unavailable",
			"database": "down",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"database": "up",
	})
}

// Version 版本信息
// GET /version
func (h *SystemHandler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":    version.GetVersion(),
		"git_commit": version.GetGitCommit(),
		"build_time": version.GetBuildTime(),
	})
}
