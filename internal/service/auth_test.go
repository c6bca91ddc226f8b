package service

import (
	"time"

	"github.com/bingooyong/apphub/internal/model"
	"github.com/bingooyong/apphub/internal/repository"
	"github.com/bingooyong/apphub/internal/testutil"
	"github.com/bingooyong/apphub/pkg/errors"
	"github.com/bingooyong/apphub/pkg/jwt"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *ServiceTestSuite) newAuthService() (AuthService, *jwt.Manager) {
	manager := jwt.NewManager("test-secret", "apphub", time.Hour)
	return NewAuthService(s.store, manager, s.logger), manager
}

// TestAuth_RegisterAndLogin 测试注册与登录
func (s *ServiceTestSuite) TestAuth_RegisterAndLogin() {
	auth, manager := s.newAuthService()

	user, err := auth.Register(s.ctx, "dave", "secret123", "dave@example.com", "Dave")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.RoleUser, user.Role)
	assert.NotEqual(s.T(), "secret123", user.Password, "密码应该加密存储")

	_, err = auth.Register(s.ctx, "dave", "secret123", "other@example.com", "Dave")
	assert.ErrorIs(s.T(), err, errors.ErrUserAlreadyExistsMsg)
	_, err = auth.Register(s.ctx, "dave2", "secret123", "dave@example.com", "Dave")
	assert.ErrorIs(s.T(), err, errors.ErrUserAlreadyExistsMsg)

	token, loggedIn, err := auth.Login(s.ctx, "dave", "secret123")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), user.ID, loggedIn.ID)

	claims, err := manager.ParseToken(token)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), user.ID.String(), claims.UserID)
	assert.Equal(s.T(), "dave", claims.Username)

	stored, err := s.store.Users().GetByID(s.ctx, user.ID)
	require.NoError(s.T(), err)
	assert.NotNil(s.T(), stored.LastLoginAt)

	_, _, err = auth.Login(s.ctx, "dave", "wrong")
	assert.ErrorIs(s.T(), err, errors.ErrInvalidCredentialsMsg)
	_, _, err = auth.Login(s.ctx, "nobody", "secret123")
	assert.ErrorIs(s.T(), err, errors.ErrInvalidCredentialsMsg)
}

// TestAuth_DisabledUserCannotLogin 测试禁用用户
func (s *ServiceTestSuite) TestAuth_DisabledUserCannotLogin() {
	auth, _ := s.newAuthService()

	require.NoError(s.T(), auth.DisableUser(s.ctx, s.alice.ID))
	_, _, err := auth.Login(s.ctx, "alice", testutil.Password)
	assert.ErrorIs(s.T(), err, errors.ErrUserDisabledMsg)

	require.NoError(s.T(), auth.EnableUser(s.ctx, s.alice.ID))
	_, _, err = auth.Login(s.ctx, "alice", testutil.Password)
	assert.NoError(s.T(), err)

	assert.ErrorIs(s.T(), auth.DisableUser(s.ctx, uuid.New()), errors.ErrUserNotFoundMsg)
}

// TestAuth_RefreshUsesStoredRole 测试刷新 token 时角色与状态以数据库为准
func (s *ServiceTestSuite) TestAuth_RefreshUsesStoredRole() {
	auth, manager := s.newAuthService()

	token, err := manager.GenerateToken(s.root.ID.String(), s.root.Username, model.RoleManager)
	require.NoError(s.T(), err)

	require.NoError(s.T(), auth.SetRole(s.ctx, s.root.ID, model.RoleUser))
	refreshed, err := auth.RefreshToken(s.ctx, token)
	require.NoError(s.T(), err)
	claims, err := manager.ParseToken(refreshed)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.RoleUser, claims.Role, "降级后刷新不能保留审核员角色")

	require.NoError(s.T(), auth.DisableUser(s.ctx, s.root.ID))
	_, err = auth.RefreshToken(s.ctx, token)
	assert.ErrorIs(s.T(), err, errors.ErrUserDisabledMsg)

	ghost, err := manager.GenerateToken(uuid.NewString(), "ghost", model.RoleManager)
	require.NoError(s.T(), err)
	_, err = auth.RefreshToken(s.ctx, ghost)
	assert.ErrorIs(s.T(), err, errors.ErrInvalidTokenMsg)

	_, err = auth.RefreshToken(s.ctx, "not-a-token")
	assert.ErrorIs(s.T(), err, errors.ErrInvalidTokenMsg)
}

// TestAuth_ChangePassword 测试修改密码
func (s *ServiceTestSuite) TestAuth_ChangePassword() {
	auth, _ := s.newAuthService()

	err := auth.ChangePassword(s.ctx, s.alice.ID, "wrong", "newpassword")
	assert.ErrorIs(s.T(), err, errors.ErrInvalidParamsMsg)

	require.NoError(s.T(), auth.ChangePassword(s.ctx, s.alice.ID, testutil.Password, "newpassword"))
	_, _, err = auth.Login(s.ctx, "alice", "newpassword")
	assert.NoError(s.T(), err)
}

// TestAuth_RolesAndManagers 测试角色管理与审核员初始化
func (s *ServiceTestSuite) TestAuth_RolesAndManagers() {
	auth, _ := s.newAuthService()

	assert.ErrorIs(s.T(), auth.SetRole(s.ctx, s.alice.ID, "admin"), errors.ErrInvalidParamsMsg)
	require.NoError(s.T(), auth.SetRole(s.ctx, s.alice.ID, model.RoleManager))
	user, err := auth.GetUserByID(s.ctx, s.alice.ID)
	require.NoError(s.T(), err)
	assert.True(s.T(), user.IsManager())

	promoted, err := auth.EnsureManager(s.ctx, "bob", "ignored", "bob@example.com")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), s.bob.ID, promoted.ID)
	assert.Equal(s.T(), model.RoleManager, promoted.Role)

	created, err := auth.EnsureManager(s.ctx, "admin", "adminpass", "admin@example.com")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.RoleManager, created.Role)
	_, _, err = auth.Login(s.ctx, "admin", "adminpass")
	assert.NoError(s.T(), err)

	users, total, err := auth.ListUsers(s.ctx, 1, 10)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(4), total)
	assert.Len(s.T(), users, 4)
}

// TestAudit_RecordSearchPrune 测试审计日志
func (s *ServiceTestSuite) TestAudit_RecordSearchPrune() {
	audit := NewAuditService(s.store, s.logger)

	audit.Record(s.ctx, &model.AuditLog{
		UserID:   s.root.ID,
		Username: "root",
		Action:   "POST /v1/apps/:appId/status",
		Method:   "POST",
		Path:     "/v1/apps/x/status",
		Status:   200,
	})
	audit.Record(s.ctx, &model.AuditLog{
		UserID:   s.alice.ID,
		Username: "alice",
		Action:   "POST /v1/apps",
		Method:   "POST",
		Path:     "/v1/apps",
		Status:   201,
	})

	_, _, err := audit.Search(s.ctx, s.actor(s.alice), repository.AuditLogFilter{}, 1, 10)
	assert.ErrorIs(s.T(), err, errors.ErrForbiddenMsg)

	logs, total, err := audit.Search(s.ctx, s.actor(s.root), repository.AuditLogFilter{UserID: s.alice.ID}, 0, 0)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), total)
	require.Len(s.T(), logs, 1)
	assert.Equal(s.T(), "POST /v1/apps", logs[0].Action)

	_, err = audit.Prune(s.ctx, 0)
	assert.ErrorIs(s.T(), err, errors.ErrInvalidParamsMsg)

	deleted, err := audit.Prune(s.ctx, time.Hour)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(0), deleted, "刚写入的日志不应被清理")

	old := time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(s.T(), s.db.Model(&model.AuditLog{}).Where("username = ?", "root").Update("created_at", old).Error)
	deleted, err = audit.Prune(s.ctx, 24*time.Hour)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), deleted)
}
