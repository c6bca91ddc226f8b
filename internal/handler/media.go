package handler

import (
	"net/http"

	"github.com/bingooyong/apphub/internal/formatter"
	"github.com/bingooyong/apphub/internal/middleware"
	"github.com/bingooyong/apphub/internal/model"
	"github.com/bingooyong/apphub/internal/service"
	"github.com/bingooyong/apphub/pkg/errors"
	"github.com/bingooyong/apphub/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MediaHandler 应用图片处理器
type MediaHandler struct {
	mediaService service.MediaService
	publicURL    string
	logger       *zap.Logger
}

// UpdateImageRequest 修改图片说明请求
type UpdateImageRequest struct {
	Caption string `json:"caption" binding:"max=255"`
}

// NewMediaHandler 创建图片处理器实例
func NewMediaHandler(mediaService service.MediaService, publicURL string, logger *zap.Logger) *MediaHandler {
	return &MediaHandler{
		mediaService: mediaService,
		publicURL:    publicURL,
		logger:       logger,
	}
}

// Upload 上传图片（multipart：一个或多个 file，versionId、imageType、caption 可选）
func (h *MediaHandler) Upload(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	appID, ok := parseUUIDParam(c, "appId")
	if !ok {
		return
	}
	form, ok := parseMultipart(c)
	if !ok {
		return
	}

	input := &service.MediaUploadInput{
		ImageType: model.ImageType(firstValue(form.Value, "imageType")),
		Caption:   firstValue(form.Value, "caption"),
	}
	if raw := firstValue(form.Value, "versionId"); raw != "" {
		versionID, err := uuid.Parse(raw)
		if err != nil {
			response.Error(c, errors.ErrInvalidParamsMsg.WithDetails("invalid versionId"))
			return
		}
		input.VersionID = uuid.NullUUID{UUID: versionID, Valid: true}
	}
	for _, fh := range form.File["file"] {
		data, err := readFormFile(fh)
		if err != nil {
			bindError(c, err)
			return
		}
		input.Files = append(input.Files, &service.ImageUpload{Filename: fh.Filename, Data: data})
	}

	views, err := h.mediaService.Upload(c.Request.Context(), actor, appID, input)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	opts := formatOptions(c, h.publicURL)
	images := make([]*formatter.Image, 0, len(views))
	for _, v := range views {
		images = append(images, formatter.NewImage(v, opts))
	}

	response.Success(c, gin.H{
		"images": images,
	})
}

// SetLogo 将图片设为 logo
func (h *MediaHandler) SetLogo(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	appID, ok := parseUUIDParam(c, "appId")
	if !ok {
		return
	}
	mediaID, ok := parseUUIDParam(c, "mediaId")
	if !ok {
		return
	}

	if err := h.mediaService.SetLogo(c.Request.Context(), actor, appID, mediaID); err != nil {
		handleError(c, h.logger, err)
		return
	}

	response.Success(c, gin.H{
		"message": "logo 已更新",
	})
}

// UpdateMeta 修改图片说明
// PUT /v1/apps/:appId/images/:mediaId
func (h *MediaHandler) UpdateMeta(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	appID, ok := parseUUIDParam(c, "appId")
	if !ok {
		return
	}
	mediaID, ok := parseUUIDParam(c, "mediaId")
	if !ok {
		return
	}

	var req UpdateImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	view, err := h.mediaService.UpdateMeta(c.Request.Context(), actor, appID, mediaID, req.Caption)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	response.Success(c, gin.H{
		"image": formatter.NewImage(view, formatOptions(c, h.publicURL)),
	})
}

// Delete 删除图片
func (h *MediaHandler) Delete(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	appID, ok := parseUUIDParam(c, "appId")
	if !ok {
		return
	}
	mediaID, ok := parseUUIDParam(c, "mediaId")
	if !ok {
		return
	}

	if err := h.mediaService.Delete(c.Request.Context(), actor, appID, mediaID); err != nil {
		handleError(c, h.logger, err)
		return
	}

	response.Success(c, gin.H{
		"message": "图片已删除",
	})
}

// Get 读取图片内容
func (h *MediaHandler) Get(c *gin.Context) {
	mediaID, ok := parseUUIDParam(c, "mediaId")
	if !ok {
		return
	}

	content, err := h.mediaService.Get(c.Request.Context(), middleware.GetActor(c), mediaID)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	defer content.File.Body.Close()

	// 未审核应用的图片只对有权限的用户可见，不能进入共享缓存
	cacheControl := "private, no-cache"
	if content.Public {
		cacheControl = "public, max-age=86400"
	}
	c.DataFromReader(http.StatusOK, content.File.ContentLength, content.View.MimeType, content.File.Body, map[string]string{
		"Cache-Control": cacheControl,
	})
}

func firstValue(values map[string][]string, key string) string {
	if v := values[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}
