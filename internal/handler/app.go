package handler

import (
	"encoding/json"

	"github.com/bingooyong/apphub/internal/model"
	"github.com/bingooyong/apphub/internal/service"
	"github.com/bingooyong/apphub/pkg/errors"
	"github.com/bingooyong/apphub/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AppHandler 应用上传、版本、审核与归属处理器
type AppHandler struct {
	appService        service.AppService
	moderationService service.ModerationService
	logger            *zap.Logger
}

// NewAppHandler 创建应用处理器实例
func NewAppHandler(appService service.AppService, moderationService service.ModerationService, logger *zap.Logger) *AppHandler {
	return &AppHandler{
		appService:        appService,
		moderationService: moderationService,
		logger:            logger,
	}
}

// VersionRequest multipart 中 version 字段的 JSON 内容
type VersionRequest struct {
	Version            string `json:"version"`
	Name               string `json:"name"`
	Description        string `json:"description"`
	LanguageCode       string `json:"languageCode"`
	Channel            string `json:"channel"`
	MinPlatformVersion string `json:"minPlatformVersion"`
	MaxPlatformVersion string `json:"maxPlatformVersion"`
	SourceURL          string `json:"sourceUrl"`
	DemoURL            string `json:"demoUrl"`
}

// CreateAppRequest multipart 中 app 字段的 JSON 内容
type CreateAppRequest struct {
	VersionRequest
	AppType        model.AppType `json:"appType"`
	OrganisationID uuid.UUID     `json:"organisationId"`
}

// SetStatusRequest 审核请求
type SetStatusRequest struct {
	Status model.Status `json:"status" binding:"required"`
	Reason string       `json:"reason" binding:"max=500"`
}

// TransferOwnershipRequest 变更归属请求
type TransferOwnershipRequest struct {
	OrganisationID uuid.UUID `json:"organisationId" binding:"required"`
	DeveloperID    uuid.UUID `json:"developerId" binding:"required"`
}

func (r *VersionRequest) toInput(archive []byte) service.VersionInput {
	return service.VersionInput{
		Version:            r.Version,
		Name:               r.Name,
		Description:        r.Description,
		LanguageCode:       r.LanguageCode,
		Channel:            r.Channel,
		MinPlatformVersion: r.MinPlatformVersion,
		MaxPlatformVersion: r.MaxPlatformVersion,
		SourceURL:          r.SourceURL,
		DemoURL:            r.DemoURL,
		Archive:            archive,
	}
}

// Create 上传应用（multipart：file 应用包，app 元信息，logo 可选）
func (h *AppHandler) Create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	form, ok := parseMultipart(c)
	if !ok {
		return
	}

	var req CreateAppRequest
	if !decodeJSONField(c, form.Value, "app", &req) {
		return
	}
	if req.OrganisationID == uuid.Nil {
		response.Error(c, errors.ErrInvalidParamsMsg.WithDetails("organisationId is required"))
		return
	}

	archive, ok := readRequiredFile(c, form.File["file"])
	if !ok {
		return
	}

	input := &service.CreateAppInput{
		VersionInput:   req.toInput(archive),
		AppType:        req.AppType,
		OrganisationID: req.OrganisationID,
	}
	if logos := form.File["logo"]; len(logos) > 0 {
		data, err := readFormFile(logos[0])
		if err != nil {
			bindError(c, err)
			return
		}
		input.Logo = &service.ImageUpload{Filename: logos[0].Filename, Data: data}
	}

	result, err := h.appService.Create(c.Request.Context(), actor, input)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	response.CreatedAt(c, "/v1/apps/"+result.App.ID.String(), result)
}

// AddVersion 为已有应用追加版本（multipart：file 应用包，version 元信息）
func (h *AppHandler) AddVersion(c *gin.Context) {
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

	var req VersionRequest
	if !decodeJSONField(c, form.Value, "version", &req) {
		return
	}
	archive, ok := readRequiredFile(c, form.File["file"])
	if !ok {
		return
	}

	input := req.toInput(archive)
	result, err := h.appService.AddVersion(c.Request.Context(), actor, appID, &input)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	response.Created(c, result)
}

// Delete 删除应用
func (h *AppHandler) Delete(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	appID, ok := parseUUIDParam(c, "appId")
	if !ok {
		return
	}

	if err := h.appService.Delete(c.Request.Context(), actor, appID); err != nil {
		handleError(c, h.logger, err)
		return
	}

	response.Success(c, gin.H{
		"message": "应用已删除",
	})
}

// TransferOwnership 变更应用归属（审核员）
func (h *AppHandler) TransferOwnership(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	appID, ok := parseUUIDParam(c, "appId")
	if !ok {
		return
	}

	var req TransferOwnershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	app, err := h.appService.TransferOwnership(c.Request.Context(), actor, appID, req.OrganisationID, req.DeveloperID)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	response.Success(c, app)
}

// SetStatus 变更审核状态（审核员）
func (h *AppHandler) SetStatus(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	appID, ok := parseUUIDParam(c, "appId")
	if !ok {
		return
	}

	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	record, err := h.moderationService.SetStatus(c.Request.Context(), actor, appID, req.Status, req.Reason)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	response.Success(c, record)
}

// StatusHistory 查询审核状态历史
func (h *AppHandler) StatusHistory(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	appID, ok := parseUUIDParam(c, "appId")
	if !ok {
		return
	}

	history, err := h.moderationService.History(c.Request.Context(), actor, appID)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	var current model.Status
	if len(history) > 0 {
		current = history[len(history)-1].Status
	}
	response.Success(c, gin.H{
		"current": current,
		"history": history,
	})
}

// decodeJSONField 解析 multipart 中以 JSON 字符串提交的字段
func decodeJSONField(c *gin.Context, values map[string][]string, key string, dst interface{}) bool {
	raw := values[key]
	if len(raw) == 0 || raw[0] == "" {
		response.Error(c, errors.ErrInvalidParamsMsg.WithDetails(key+" is required"))
		return false
	}
	if err := json.Unmarshal([]byte(raw[0]), dst); err != nil {
		response.Error(c, errors.ErrInvalidParamsMsg.WithDetails("invalid "+key+" json: "+err.Error()))
		return false
	}
	return true
}
