package handler

import (
	"github.com/bingooyong/apphub/internal/service"
	"github.com/bingooyong/apphub/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChannelHandler 发布渠道处理器
type ChannelHandler struct {
	channelService service.ChannelService
	logger         *zap.Logger
}

// NewChannelHandler 创建发布渠道处理器实例
func NewChannelHandler(channelService service.ChannelService, logger *zap.Logger) *ChannelHandler {
	return &ChannelHandler{
		channelService: channelService,
		logger:         logger,
	}
}

// CreateChannelRequest 创建渠道请求
type CreateChannelRequest struct {
	Name string `json:"name" binding:"required,max=50"`
}

// List 获取渠道列表
// GET /v1/channels
func (h *ChannelHandler) List(c *gin.Context) {
	channels, err := h.channelService.List(c.Request.Context())
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	response.Success(c, gin.H{
		"channels": channels,
	})
}

// Create 创建渠道
// POST /v1/channels
func (h *ChannelHandler) Create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	channel, err := h.channelService.Create(c.Request.Context(), actor, req.Name)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	response.Created(c, channel)
}
