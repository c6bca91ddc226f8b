package handler

import (
	"github.com/bingooyong/apphub/internal/service"
	"github.com/bingooyong/apphub/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OrganisationHandler 组织处理器
type OrganisationHandler struct {
	organisationService service.OrganisationService
	logger              *zap.Logger
}

// NewOrganisationHandler 创建组织处理器实例
func NewOrganisationHandler(organisationService service.OrganisationService, logger *zap.Logger) *OrganisationHandler {
	return &OrganisationHandler{
		organisationService: organisationService,
		logger:              logger,
	}
}

// CreateOrganisationRequest 创建组织请求
type CreateOrganisationRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

// AddMemberRequest 添加成员请求
type AddMemberRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// List 获取组织列表
// GET /v2/organisations?name=
func (h *OrganisationHandler) List(c *gin.Context) {
	orgs, err := h.organisationService.List(c.Request.Context(), c.Query("name"))
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	response.Success(c, gin.H{
		"organisations": orgs,
	})
}

// Get 获取组织详情及成员
// GET /v2/organisations/:orgId
func (h *OrganisationHandler) Get(c *gin.Context) {
	orgID, ok := parseUUIDParam(c, "orgId")
	if !ok {
		return
	}

	detail, err := h.organisationService.Get(c.Request.Context(), orgID)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	response.Success(c, detail)
}

// Create 创建组织
// POST /v2/organisations
func (h *OrganisationHandler) Create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req CreateOrganisationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	org, err := h.organisationService.Create(c.Request.Context(), actor, req.Name)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	response.CreatedAt(c, "/v2/organisations/"+org.ID.String(), org)
}

// AddMember 按邮箱添加成员
// POST /v2/organisations/:orgId/add
func (h *OrganisationHandler) AddMember(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	orgID, ok := parseUUIDParam(c, "orgId")
	if !ok {
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.organisationService.AddMember(c.Request.Context(), actor, orgID, req.Email); err != nil {
		handleError(c, h.logger, err)
		return
	}

	response.Success(c, gin.H{
		"message": "成员已添加",
	})
}

// Delete 删除组织
// DELETE /v2/organisations/:orgId
func (h *OrganisationHandler) Delete(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	orgID, ok := parseUUIDParam(c, "orgId")
	if !ok {
		return
	}

	if err := h.organisationService.Delete(c.Request.Context(), actor, orgID); err != nil {
		handleError(c, h.logger, err)
		return
	}

	response.Success(c, gin.H{
		"message": "组织已删除",
	})
}
