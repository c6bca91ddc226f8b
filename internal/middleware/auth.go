package middleware

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/bingooyong/apphub/internal/model"
	"github.com/bingooyong/apphub/internal/service"
	"github.com/bingooyong/apphub/pkg/errors"
	"github.com/bingooyong/apphub/pkg/jwt"
	"github.com/bingooyong/apphub/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// 上下文中保存的认证信息
const (
	ctxUserID   = "user_id"
	ctxUsername = "username"
	ctxRole     = "role"
)

// UserLoader 按ID读取用户，认证中间件据此确认账号状态与当前角色
type UserLoader interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// JWTAuth JWT认证中间件，缺少或无效的 Token 返回 401，账号已禁用返回 403。
// 上下文中的角色取自数据库而不是 Token 声明
func JWTAuth(jwtManager *jwt.Manager, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(c, errors.ErrUnauthorizedMsg)
			c.Abort()
			return
		}

		user, apiErr := authenticate(c, jwtManager, users, authHeader)
		if apiErr != nil {
			response.Error(c, apiErr)
			c.Abort()
			return
		}

		setUser(c, user)
		c.Next()
	}
}

// OptionalAuth 携带有效 Token 时写入用户信息，否则按匿名请求继续处理
func OptionalAuth(jwtManager *jwt.Manager, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			if user, apiErr := authenticate(c, jwtManager, users, authHeader); apiErr == nil {
				setUser(c, user)
			}
		}
		c.Next()
	}
}

// APIKeyHeader 携带 API Key 的请求头
const APIKeyHeader = "X-API-Key"

// KeyAuthenticator 校验 API Key 并返回其所属用户
type KeyAuthenticator interface {
	Authenticate(ctx context.Context, key string) (*model.User, error)
}

// JWTOrAPIKeyAuth 携带 X-API-Key 时按 API Key 认证，否则与 JWTAuth 相同
func JWTOrAPIKeyAuth(jwtManager *jwt.Manager, users UserLoader, keys KeyAuthenticator) gin.HandlerFunc {
	withJWT := JWTAuth(jwtManager, users)
	return func(c *gin.Context) {
		key := c.GetHeader(APIKeyHeader)
		if key == "" {
			withJWT(c)
			return
		}

		user, err := keys.Authenticate(c.Request.Context(), key)
		if err != nil {
			apiErr, ok := errors.As(err)
			if !ok {
				apiErr = errors.ErrInternalServerMsg
			}
			response.Error(c, apiErr)
			c.Abort()
			return
		}

		setUser(c, user)
		c.Next()
	}
}

// RequireManager 需要审核员权限的中间件，须在 JWTAuth 之后使用
func RequireManager() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := GetRole(c)
		if !exists {
			response.Error(c, errors.ErrUnauthorizedMsg)
			c.Abort()
			return
		}

		if role != model.RoleManager {
			response.Error(c, errors.ErrForbiddenMsg)
			c.Abort()
			return
		}

		c.Next()
	}
}

func authenticate(c *gin.Context, jwtManager *jwt.Manager, users UserLoader, authHeader string) (*model.User, *errors.APIError) {
	claims, apiErr := parseBearer(jwtManager, authHeader)
	if apiErr != nil {
		return nil, apiErr
	}
	userID, _ := uuid.Parse(claims.UserID)
	return loadUser(c.Request.Context(), users, userID)
}

func loadUser(ctx context.Context, users UserLoader, userID uuid.UUID) (*model.User, *errors.APIError) {
	user, err := users.GetUserByID(ctx, userID)
	if err != nil {
		if stderrors.Is(err, errors.ErrUserNotFoundMsg) {
			return nil, errors.ErrInvalidTokenMsg.WithDetails("user no longer exists")
		}
		if apiErr, ok := errors.As(err); ok {
			return nil, apiErr
		}
		return nil, errors.ErrInternalServerMsg
	}
	if !user.IsActive() {
		return nil, errors.ErrUserDisabledMsg
	}
	return user, nil
}

func parseBearer(jwtManager *jwt.Manager, authHeader string) (*jwt.Claims, *errors.APIError) {
	parts := strings.SplitN(authHeader, " ", 2)
	if !(len(parts) == 2 && parts[0] == "Bearer") {
		return nil, errors.ErrInvalidTokenMsg
	}

	claims, err := jwtManager.ParseToken(parts[1])
	if err != nil {
		if stderrors.Is(err, jwt.ErrExpiredToken) {
			return nil, errors.ErrTokenExpiredMsg
		}
		return nil, errors.ErrInvalidTokenMsg
	}

	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, errors.ErrInvalidTokenMsg
	}
	return claims, nil
}

func setUser(c *gin.Context, user *model.User) {
	c.Set(ctxUserID, user.ID)
	c.Set(ctxUsername, user.Username)
	c.Set(ctxRole, user.Role)
}

// GetUserID 从上下文获取用户ID
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, exists := c.Get(ctxUserID)
	if !exists {
		return uuid.Nil, false
	}
	return userID.(uuid.UUID), true
}

// GetUsername 从上下文获取用户名
func GetUsername(c *gin.Context) (string, bool) {
	username, exists := c.Get(ctxUsername)
	if !exists {
		return "", false
	}
	return username.(string), true
}

// GetRole 从上下文获取角色
func GetRole(c *gin.Context) (string, bool) {
	role, exists := c.Get(ctxRole)
	if !exists {
		return "", false
	}
	return role.(string), true
}

// GetActor 从上下文构造调用者，匿名请求返回 nil
func GetActor(c *gin.Context) *service.Actor {
	userID, ok := GetUserID(c)
	if !ok {
		return nil
	}
	username, _ := GetUsername(c)
	role, _ := GetRole(c)
	return &service.Actor{UserID: userID, Username: username, Role: role}
}
