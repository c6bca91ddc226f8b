package handler

import (
	"net/http"

	"github.com/bingooyong/apphub/internal/middleware"
	"github.com/bingooyong/apphub/internal/model"
	"github.com/bingooyong/apphub/internal/service"
	"github.com/bingooyong/apphub/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CatalogHandler 应用目录与下载处理器
type CatalogHandler struct {
	catalogService service.CatalogService
	publicURL      string
	logger         *zap.Logger
}

// NewCatalogHandler 创建应用目录处理器实例
func NewCatalogHandler(catalogService service.CatalogService, publicURL string, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		publicURL:      publicURL,
		logger:         logger,
	}
}

// List 已审核应用列表
func (h *CatalogHandler) List(c *gin.Context) {
	apps, err := h.catalogService.List(c.Request.Context(), service.ListQuery{
		Language: c.Query("lang"),
		Channel:  c.Query("channel"),
		AppType:  model.AppType(c.Query("type")),
	}, formatOptions(c, h.publicURL))
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	response.Success(c, apps)
}

// Get 单个应用
func (h *CatalogHandler) Get(c *gin.Context) {
	appID, ok := parseUUIDParam(c, "appId")
	if !ok {
		return
	}

	app, err := h.catalogService.Get(c.Request.Context(), middleware.GetActor(c), appID, c.Query("lang"), formatOptions(c, h.publicURL))
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	response.Success(c, app)
}

// All 全部应用（审核员）
func (h *CatalogHandler) All(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	apps, err := h.catalogService.All(c.Request.Context(), actor, model.Status(c.Query("status")), formatOptions(c, h.publicURL))
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	response.Success(c, apps)
}

// MyApps 调用者相关的应用
func (h *CatalogHandler) MyApps(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	apps, err := h.catalogService.MyApps(c.Request.Context(), actor, formatOptions(c, h.publicURL))
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	response.Success(c, apps)
}

// Download 下载应用包
func (h *CatalogHandler) Download(c *gin.Context) {
	file, err := h.catalogService.Download(
		c.Request.Context(),
		c.Param("organisation_slug"),
		c.Param("appver_slug"),
		c.Param("app_version"),
	)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	defer file.Body.Close()

	c.DataFromReader(http.StatusOK, file.ContentLength, "application/zip", file.Body, map[string]string{
		"Content-Disposition": "attachment; filename=" + model.ArchiveName,
	})
}
