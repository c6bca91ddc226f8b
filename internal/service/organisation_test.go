package service

import (
	"github.com/bingooyong/apphub/internal/model"
	"github.com/bingooyong/apphub/internal/testutil"
	"github.com/bingooyong/apphub/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestOrganisation_CreateAndGet 测试创建组织
func (s *ServiceTestSuite) TestOrganisation_CreateAndGet() {
	orgs := NewOrganisationService(s.store, s.logger)

	org, err := orgs.Create(s.ctx, s.actor(s.bob), "  Globex Corp ")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Globex Corp", org.Name)
	assert.Equal(s.T(), "globex-corp", org.Slug)

	detail, err := orgs.Get(s.ctx, org.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), detail.Members, 1, "创建者自动成为成员")
	assert.Equal(s.T(), s.bob.ID, detail.Members[0].ID)

	_, err = orgs.Create(s.ctx, s.actor(s.alice), "Globex Corp")
	assert.ErrorIs(s.T(), err, errors.ErrOrganisationAlreadyExistsMsg)

	_, err = orgs.Create(s.ctx, s.actor(s.alice), "!!!")
	assert.ErrorIs(s.T(), err, errors.ErrInvalidParamsMsg)

	_, err = orgs.Get(s.ctx, uuid.New())
	assert.ErrorIs(s.T(), err, errors.ErrOrganisationNotFoundMsg)

	list, err := orgs.List(s.ctx, "glob")
	require.NoError(s.T(), err)
	require.Len(s.T(), list, 1)
	assert.Equal(s.T(), org.ID, list[0].ID)
}

// TestOrganisation_AddMember 测试添加组织成员
func (s *ServiceTestSuite) TestOrganisation_AddMember() {
	orgs := NewOrganisationService(s.store, s.logger)
	carol := testutil.CreateUser(s.T(), s.db, "carol", model.RoleUser)

	err := orgs.AddMember(s.ctx, s.actor(s.bob), s.acme.ID, carol.Email)
	assert.ErrorIs(s.T(), err, errors.ErrForbiddenMsg, "非成员不能添加成员")

	require.NoError(s.T(), orgs.AddMember(s.ctx, s.actor(s.alice), s.acme.ID, carol.Email))

	err = orgs.AddMember(s.ctx, s.actor(carol), s.acme.ID, carol.Email)
	assert.ErrorIs(s.T(), err, errors.ErrAlreadyMemberMsg)

	err = orgs.AddMember(s.ctx, s.actor(s.alice), s.acme.ID, "nobody@example.com")
	assert.ErrorIs(s.T(), err, errors.ErrUserNotFoundMsg)

	require.NoError(s.T(), orgs.AddMember(s.ctx, s.actor(s.root), s.acme.ID, s.bob.Email), "审核员可以添加成员")

	isMember, err := s.store.Organisations().IsMember(s.ctx, s.acme.ID, s.bob.ID)
	require.NoError(s.T(), err)
	assert.True(s.T(), isMember)
}

// TestOrganisation_Delete 测试删除组织
func (s *ServiceTestSuite) TestOrganisation_Delete() {
	orgs := NewOrganisationService(s.store, s.logger)
	app := testutil.CreateApp(s.T(), s.db, s.acme, s.alice, "widget", model.StatusPending)

	err := orgs.Delete(s.ctx, s.actor(s.alice), s.acme.ID)
	assert.ErrorIs(s.T(), err, errors.ErrForbiddenMsg)

	err = orgs.Delete(s.ctx, s.actor(s.root), s.acme.ID)
	assert.ErrorIs(s.T(), err, errors.ErrOrganisationHasAppsMsg)

	require.NoError(s.T(), s.apps.Delete(s.ctx, s.actor(s.root), app.ID))
	require.NoError(s.T(), orgs.Delete(s.ctx, s.actor(s.root), s.acme.ID))

	_, err = orgs.Get(s.ctx, s.acme.ID)
	assert.ErrorIs(s.T(), err, errors.ErrOrganisationNotFoundMsg)
	assert.Equal(s.T(), int64(0), s.count(&model.UserOrganisation{}))
}

// TestChannels 测试渠道管理
func (s *ServiceTestSuite) TestChannels() {
	channels := NewChannelService(s.store, s.logger)

	list, err := channels.List(s.ctx)
	require.NoError(s.T(), err)
	assert.Len(s.T(), list, 3, "迁移预置 stable、development、canary")

	_, err = channels.Create(s.ctx, s.actor(s.alice), "beta")
	assert.ErrorIs(s.T(), err, errors.ErrForbiddenMsg)

	created, err := channels.Create(s.ctx, s.actor(s.root), " beta ")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "beta", created.Name)

	_, err = channels.Create(s.ctx, s.actor(s.root), "stable")
	assert.ErrorIs(s.T(), err, errors.ErrChannelAlreadyExistsMsg)

	_, err = channels.Create(s.ctx, s.actor(s.root), "")
	assert.ErrorIs(s.T(), err, errors.ErrInvalidParamsMsg)
}
