package handler

import (
	"github.com/bingooyong/apphub/internal/service"
	"github.com/bingooyong/apphub/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// APIKeyHandler 当前用户的 API Key 管理
type APIKeyHandler struct {
	apiKeyService service.APIKeyService
	logger        *zap.Logger
}

// NewAPIKeyHandler 创建 API Key 处理器实例
func NewAPIKeyHandler(apiKeyService service.APIKeyService, logger *zap.Logger) *APIKeyHandler {
	return &APIKeyHandler{
		apiKeyService: apiKeyService,
		logger:        logger,
	}
}

// Status 查询是否已生成 API Key
// GET /v1/key
func (h *APIKeyHandler) Status(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	status, err := h.apiKeyService.Status(c.Request.Context(), actor)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	response.Success(c, status)
}

// Generate 生成新的 API Key，明文只返回这一次
// POST /v1/key
func (h *APIKeyHandler) Generate(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	key, err := h.apiKeyService.Generate(c.Request.Context(), actor)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	response.Created(c, key)
}

// Delete 删除 API Key
// DELETE /v1/key
func (h *APIKeyHandler) Delete(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if err := h.apiKeyService.Delete(c.Request.Context(), actor); err != nil {
		handleError(c, h.logger, err)
		return
	}

	response.Success(c, gin.H{
		"message": "API Key 已删除",
	})
}
