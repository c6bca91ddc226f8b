package service

import (
	"context"

	"github.com/bingooyong/apphub/internal/model"
	"github.com/bingooyong/apphub/internal/repository"
	"github.com/bingooyong/apphub/pkg/errors"
	"github.com/bingooyong/apphub/pkg/jwt"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthService 认证与用户管理服务接口
type AuthService interface {
	// Register 用户注册
	Register(ctx context.Context, username, password, email, name string) (*model.User, error)
	// Login 用户登录
	Login(ctx context.Context, username, password string) (string, *model.User, error)
	// RefreshToken 刷新Token
	RefreshToken(ctx context.Context, token string) (string, error)
	// ChangePassword 修改密码
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error
	// GetUserByID 根据ID获取用户
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// ListUsers 获取用户列表
	ListUsers(ctx context.Context, page, pageSize int) ([]*model.User, int64, error)
	// SetRole 修改用户角色
	SetRole(ctx context.Context, userID uuid.UUID, role string) error
	// DisableUser 禁用用户
	DisableUser(ctx context.Context, userID uuid.UUID) error
	// EnableUser 启用用户
	EnableUser(ctx context.Context, userID uuid.UUID) error
	// EnsureManager 创建审核员账号，用户已存在时提升为审核员
	EnsureManager(ctx context.Context, username, password, email string) (*model.User, error)
}

// authService 认证服务实现
type authService struct {
	store      repository.Store
	jwtManager *jwt.Manager
	logger     *zap.Logger
}

// NewAuthService 创建认证服务实例
func NewAuthService(store repository.Store, jwtManager *jwt.Manager, logger *zap.Logger) AuthService {
	return &authService{
		store:      store,
		jwtManager: jwtManager,
		logger:     logger,
	}
}

// Register 用户注册
func (s *authService) Register(ctx context.Context, username, password, email, name string) (*model.User, error) {
	users := s.store.Users()

	// 检查用户名是否已存在
	if _, err := users.GetByUsername(ctx, username); err == nil {
		return nil, errors.ErrUserAlreadyExistsMsg
	} else if !isNotFound(err) {
		return nil, dbError(s.logger, "failed to check username", err)
	}

	// 检查邮箱是否已存在
	if _, err := users.GetByEmail(ctx, email); err == nil {
		return nil, errors.ErrUserAlreadyExistsMsg.WithDetails("邮箱已被使用")
	} else if !isNotFound(err) {
		return nil, dbError(s.logger, "failed to check email", err)
	}

	// 加密密码
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", zap.Error(err))
		return nil, errors.Wrap(errors.ErrInternalServer, "密码加密失败", err)
	}

	// 创建用户
	user := &model.User{
		Username: username,
		Password: string(hashedPassword),
		Email:    email,
		Name:     name,
		Role:     model.RoleUser,
		Status:   model.UserStatusActive,
	}
	if err := users.Create(ctx, user); err != nil {
		if isDuplicate(err) {
			return nil, errors.ErrUserAlreadyExistsMsg
		}
		return nil, dbError(s.logger, "failed to create user", err)
	}

	s.logger.Info("user registered", zap.String("username", username))

	return user, nil
}

// Login 用户登录
func (s *authService) Login(ctx context.Context, username, password string) (string, *model.User, error) {
	// 获取用户
	user, err := s.store.Users().GetByUsername(ctx, username)
	if err != nil {
		if isNotFound(err) {
			return "", nil, errors.ErrInvalidCredentialsMsg
		}
		return "", nil, dbError(s.logger, "failed to get user", err)
	}

	// 验证密码
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, errors.ErrInvalidCredentialsMsg
	}

	// 检查用户状态
	if !user.IsActive() {
		return "", nil, errors.ErrUserDisabledMsg
	}

	// 生成Token
	token, err := s.jwtManager.GenerateToken(user.ID.String(), user.Username, user.Role)
	if err != nil {
		s.logger.Error("failed to generate token", zap.Error(err))
		return "", nil, errors.Wrap(errors.ErrInternalServer, "生成Token失败", err)
	}

	// 更新最后登录时间
	if err := s.store.Users().UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}

	s.logger.Info("user logged in", zap.String("username", username))

	return token, user, nil
}

// RefreshToken 刷新Token
func (s *authService) RefreshToken(ctx context.Context, token string) (string, error) {
	claims, err := s.jwtManager.ParseForRefresh(token)
	if err != nil {
		return "", errors.Wrap(errors.ErrInvalidToken, "Token刷新失败", err)
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return "", errors.ErrInvalidTokenMsg
	}

	// 角色与状态以数据库为准，降级或禁用后旧 token 不能换出原权限
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return "", errors.ErrInvalidTokenMsg.WithDetails("user no longer exists")
		}
		return "", dbError(s.logger, "failed to get user", err)
	}
	if !user.IsActive() {
		return "", errors.ErrUserDisabledMsg
	}

	newToken, err := s.jwtManager.GenerateToken(user.ID.String(), user.Username, user.Role)
	if err != nil {
		s.logger.Error("failed to generate token", zap.Error(err))
		return "", errors.Wrap(errors.ErrInternalServer, "Token生成失败", err)
	}
	return newToken, nil
}

// ChangePassword 修改密码
func (s *authService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	// 验证旧密码
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		return errors.New(errors.ErrInvalidParams, "旧密码错误")
	}

	// 加密新密码
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", zap.Error(err))
		return errors.Wrap(errors.ErrInternalServer, "密码加密失败", err)
	}

	if err := s.store.Users().UpdatePassword(ctx, userID, string(hashedPassword)); err != nil {
		return dbError(s.logger, "failed to update password", err)
	}

	s.logger.Info("password changed", zap.String("user_id", userID.String()))

	return nil
}

// GetUserByID 根据ID获取用户
func (s *authService) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.ErrUserNotFoundMsg
		}
		return nil, dbError(s.logger, "failed to get user", err)
	}
	return user, nil
}

// ListUsers 获取用户列表
func (s *authService) ListUsers(ctx context.Context, page, pageSize int) ([]*model.User, int64, error) {
	users, total, err := s.store.Users().List(ctx, page, pageSize)
	if err != nil {
		return nil, 0, dbError(s.logger, "failed to list users", err)
	}
	return users, total, nil
}

// SetRole 修改用户角色
func (s *authService) SetRole(ctx context.Context, userID uuid.UUID, role string) error {
	if role != model.RoleUser && role != model.RoleManager {
		return errors.ErrInvalidParamsMsg.WithDetails("role must be user or manager")
	}
	if _, err := s.GetUserByID(ctx, userID); err != nil {
		return err
	}
	if err := s.store.Users().UpdateRole(ctx, userID, role); err != nil {
		return dbError(s.logger, "failed to update role", err)
	}
	s.logger.Info("user role changed", zap.String("user_id", userID.String()), zap.String("role", role))
	return nil
}

// DisableUser 禁用用户
func (s *authService) DisableUser(ctx context.Context, userID uuid.UUID) error {
	return s.setStatus(ctx, userID, model.UserStatusDisabled)
}

// EnableUser 启用用户
func (s *authService) EnableUser(ctx context.Context, userID uuid.UUID) error {
	return s.setStatus(ctx, userID, model.UserStatusActive)
}

func (s *authService) setStatus(ctx context.Context, userID uuid.UUID, status string) error {
	if _, err := s.GetUserByID(ctx, userID); err != nil {
		return err
	}
	if err := s.store.Users().UpdateStatus(ctx, userID, status); err != nil {
		return dbError(s.logger, "failed to update user status", err)
	}
	s.logger.Info("user status changed", zap.String("user_id", userID.String()), zap.String("status", status))
	return nil
}

// EnsureManager 创建审核员账号，用户已存在时提升为审核员
func (s *authService) EnsureManager(ctx context.Context, username, password, email string) (*model.User, error) {
	user, err := s.store.Users().GetByUsername(ctx, username)
	switch {
	case err == nil:
		if err := s.store.Users().UpdateRole(ctx, user.ID, model.RoleManager); err != nil {
			return nil, dbError(s.logger, "failed to promote user", err)
		}
		user.Role = model.RoleManager
		s.logger.Info("user promoted to manager", zap.String("username", username))
		return user, nil
	case !isNotFound(err):
		return nil, dbError(s.logger, "failed to get user", err)
	}

	user, err = s.Register(ctx, username, password, email, username)
	if err != nil {
		return nil, err
	}
	if err := s.store.Users().UpdateRole(ctx, user.ID, model.RoleManager); err != nil {
		return nil, dbError(s.logger, "failed to promote user", err)
	}
	user.Role = model.RoleManager
	return user, nil
}
