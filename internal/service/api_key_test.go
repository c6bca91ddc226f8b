package service

import (
	"strings"

	"github.com/bingooyong/apphub/internal/model"
	"github.com/bingooyong/apphub/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAPIKey_GenerateAndAuthenticate 测试生成与校验 API Key
func (s *ServiceTestSuite) TestAPIKey_GenerateAndAuthenticate() {
	keys := NewAPIKeyService(s.store, s.logger)
	alice := s.actor(s.alice)

	status, err := keys.Status(s.ctx, alice)
	require.NoError(s.T(), err)
	assert.False(s.T(), status.HasAPIKey)
	assert.Nil(s.T(), status.CreatedAt)

	generated, err := keys.Generate(s.ctx, alice)
	require.NoError(s.T(), err)
	keyID, secret, ok := strings.Cut(generated.APIKey, ".")
	require.True(s.T(), ok, "API Key 格式为 <id>.<secret>")
	assert.NotEmpty(s.T(), secret)

	var stored model.APIKey
	require.NoError(s.T(), s.db.Where("user_id = ?", s.alice.ID).First(&stored).Error)
	assert.Equal(s.T(), keyID, stored.ID.String())
	assert.NotContains(s.T(), stored.KeyHash, secret, "数据库只保存哈希")

	status, err = keys.Status(s.ctx, alice)
	require.NoError(s.T(), err)
	assert.True(s.T(), status.HasAPIKey)
	require.NotNil(s.T(), status.CreatedAt)

	user, err := keys.Authenticate(s.ctx, generated.APIKey)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), s.alice.ID, user.ID)

	for _, bad := range []string{"", "no-dot", keyID + ".wrong", "not-a-uuid." + secret, keyID + "."} {
		_, err = keys.Authenticate(s.ctx, bad)
		assert.ErrorIs(s.T(), err, errors.ErrInvalidAPIKeyMsg, "key %q 应该无效", bad)
	}
}

// TestAPIKey_RegenerateRevokesOld 测试重新生成后旧 Key 失效
func (s *ServiceTestSuite) TestAPIKey_RegenerateRevokesOld() {
	keys := NewAPIKeyService(s.store, s.logger)
	alice := s.actor(s.alice)

	first, err := keys.Generate(s.ctx, alice)
	require.NoError(s.T(), err)
	second, err := keys.Generate(s.ctx, alice)
	require.NoError(s.T(), err)
	assert.NotEqual(s.T(), first.APIKey, second.APIKey)
	assert.Equal(s.T(), int64(1), s.count(&model.APIKey{}), "每个用户只有一个 API Key")

	_, err = keys.Authenticate(s.ctx, first.APIKey)
	assert.ErrorIs(s.T(), err, errors.ErrInvalidAPIKeyMsg)
	_, err = keys.Authenticate(s.ctx, second.APIKey)
	assert.NoError(s.T(), err)

	require.NoError(s.T(), keys.Delete(s.ctx, alice))
	_, err = keys.Authenticate(s.ctx, second.APIKey)
	assert.ErrorIs(s.T(), err, errors.ErrInvalidAPIKeyMsg)
	assert.ErrorIs(s.T(), keys.Delete(s.ctx, alice), errors.ErrAPIKeyNotFoundMsg)
}

// TestAPIKey_DisabledUser 测试禁用用户的 API Key 不可用
func (s *ServiceTestSuite) TestAPIKey_DisabledUser() {
	keys := NewAPIKeyService(s.store, s.logger)
	auth, _ := s.newAuthService()

	generated, err := keys.Generate(s.ctx, s.actor(s.alice))
	require.NoError(s.T(), err)
	require.NoError(s.T(), auth.DisableUser(s.ctx, s.alice.ID))

	_, err = keys.Authenticate(s.ctx, generated.APIKey)
	assert.ErrorIs(s.T(), err, errors.ErrUserDisabledMsg)

	_, err = keys.Generate(s.ctx, nil)
	assert.ErrorIs(s.T(), err, errors.ErrUnauthorizedMsg)
}
