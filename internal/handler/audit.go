package handler

import (
	"time"

	"github.com/bingooyong/apphub/internal/repository"
	"github.com/bingooyong/apphub/internal/service"
	"github.com/bingooyong/apphub/pkg/errors"
	"github.com/bingooyong/apphub/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuditHandler 审计日志处理器
type AuditHandler struct {
	auditService service.AuditService
	logger       *zap.Logger
}

// NewAuditHandler 创建审计日志处理器实例
func NewAuditHandler(auditService service.AuditService, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
		logger:       logger,
	}
}

// Search 查询审计日志
// GET /v1/admin/audit-logs?user_id=&method=&action=&start=&end=&page=&page_size=
func (h *AuditHandler) Search(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	filter := repository.AuditLogFilter{
		Method: c.Query("method"),
		Action: c.Query("action"),
	}
	if raw := c.Query("user_id"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			response.Error(c, errors.ErrInvalidParamsMsg.WithDetails("invalid user_id"))
			return
		}
		filter.UserID = userID
	}
	var err error
	if filter.Start, err = parseTimeQuery(c, "start"); err != nil {
		response.Error(c, errors.ErrInvalidParamsMsg.WithDetails("invalid start, expected RFC3339"))
		return
	}
	if filter.End, err = parseTimeQuery(c, "end"); err != nil {
		response.Error(c, errors.ErrInvalidParamsMsg.WithDetails("invalid end, expected RFC3339"))
		return
	}

	page := parseIntQuery(c, "page", 1)
	pageSize := parseIntQuery(c, "page_size", 20)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	logs, total, err := h.auditService.Search(c.Request.Context(), actor, filter, page, pageSize)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	response.Page(c, logs, page, pageSize, total)
}

func parseTimeQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
