package handler

import (
	"github.com/bingooyong/apphub/internal/middleware"
	"github.com/bingooyong/apphub/internal/model"
	"github.com/bingooyong/apphub/internal/service"
	"github.com/bingooyong/apphub/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	authService service.AuthService
	logger      *zap.Logger
}

// NewAuthHandler 创建认证处理器实例
func NewAuthHandler(authService service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=6,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"max=100"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest 刷新Token请求
type RefreshRequest struct {
	Token string `json:"token" binding:"required"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=100"`
}

// SetRoleRequest 修改角色请求
type SetRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=user manager"`
}

// Register 用户注册
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req.Username, req.Password, req.Email, req.Name)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	response.Created(c, gin.H{
		"user": user,
	})
}

// Login 用户登录
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	token, user, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	response.Success(c, gin.H{
		"token": token,
		"user":  user,
	})
}

// RefreshToken 刷新Token
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	token, err := h.authService.RefreshToken(c.Request.Context(), req.Token)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	response.Success(c, gin.H{
		"token": token,
	})
}

// GetProfile 获取当前用户信息
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		response.Unauthorized(c, "未授权")
		return
	}

	user, err := h.authService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	response.Success(c, gin.H{
		"user": user,
	})
}

// ChangePassword 修改密码
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		response.Unauthorized(c, "未授权")
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		handleError(c, h.logger, err)
		return
	}

	response.Success(c, gin.H{
		"message": "密码修改成功",
	})
}

// ListUsers 获取用户列表（审核员）
func (h *AuthHandler) ListUsers(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	pageSize := parseIntQuery(c, "page_size", 20)

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	users, total, err := h.authService.ListUsers(c.Request.Context(), page, pageSize)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}

	response.Page(c, users, page, pageSize, total)
}

// SetRole 修改用户角色（审核员）
func (h *AuthHandler) SetRole(c *gin.Context) {
	userID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req SetRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.authService.SetRole(c.Request.Context(), userID, req.Role); err != nil {
		handleError(c, h.logger, err)
		return
	}

	response.Success(c, gin.H{
		"message": "角色已更新",
		"role":    req.Role,
	})
}

// DisableUser 禁用用户（审核员）
func (h *AuthHandler) DisableUser(c *gin.Context) {
	userID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	// 审核员不能禁用自己
	if current, _ := middleware.GetUserID(c); current == userID {
		response.BadRequest(c, "不能禁用当前用户")
		return
	}

	if err := h.authService.DisableUser(c.Request.Context(), userID); err != nil {
		handleError(c, h.logger, err)
		return
	}

	response.Success(c, gin.H{
		"message": "用户已禁用",
		"status":  model.UserStatusDisabled,
	})
}

// EnableUser 启用用户（审核员）
func (h *AuthHandler) EnableUser(c *gin.Context) {
	userID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.authService.EnableUser(c.Request.Context(), userID); err != nil {
		handleError(c, h.logger, err)
		return
	}

	response.Success(c, gin.H{
		"message": "用户已启用",
		"status":  model.UserStatusActive,
	})
}
