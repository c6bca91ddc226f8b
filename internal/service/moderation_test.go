package service

import (
	"strings"

	"github.com/bingooyong/apphub/internal/model"
	"github.com/bingooyong/apphub/internal/testutil"
	"github.com/bingooyong/apphub/pkg/errors"
	prom "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSetStatus_HistoryFollowsTransitions 测试状态历史与流转一一对应
func (s *ServiceTestSuite) TestSetStatus_HistoryFollowsTransitions() {
	app := testutil.CreateApp(s.T(), s.db, s.acme, s.alice, "widget", model.StatusPending)

	steps := []model.Status{
		model.StatusApproved,
		model.StatusRejected,
		model.StatusPending,
		model.StatusRejected,
		model.StatusPending,
		model.StatusApproved,
	}
	for _, status := range steps {
		record, err := s.moderation.SetStatus(s.ctx, s.actor(s.root), app.ID, status, "review "+string(status))
		require.NoError(s.T(), err, "流转到 %s 应该成功", status)
		assert.Equal(s.T(), status, record.Status)
	}

	history, err := s.moderation.History(s.ctx, s.actor(s.alice), app.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), history, len(steps)+1)
	assert.Equal(s.T(), model.StatusPending, history[0].Status)
	for i, status := range steps {
		assert.Equal(s.T(), status, history[i+1].Status)
		assert.Equal(s.T(), s.root.ID, history[i+1].CreatedByUserID)
	}

	expected := `
# HELP apphub_moderation_transitions_total Total number of moderation status transitions by target status.
# TYPE apphub_moderation_transitions_total counter
apphub_moderation_transitions_total{status="approved"} 2
apphub_moderation_transitions_total{status="pending"} 2
apphub_moderation_transitions_total{status="rejected"} 2
`
	assert.NoError(s.T(), prom.GatherAndCompare(s.metrics.Registry(), strings.NewReader(expected), "apphub_moderation_transitions_total"))
}

// TestSetStatus_RejectsInvalidTransitions 测试非法流转不写入历史
func (s *ServiceTestSuite) TestSetStatus_RejectsInvalidTransitions() {
	pending := testutil.CreateApp(s.T(), s.db, s.acme, s.alice, "pending-app", model.StatusPending)
	approved := testutil.CreateApp(s.T(), s.db, s.acme, s.alice, "approved-app", model.StatusApproved)

	cases := []struct {
		app    *model.App
		status model.Status
	}{
		{pending, model.StatusPending},
		{approved, model.StatusApproved},
		{approved, model.StatusPending},
	}
	for _, tc := range cases {
		_, err := s.moderation.SetStatus(s.ctx, s.actor(s.root), tc.app.ID, tc.status, "")
		assert.ErrorIs(s.T(), err, errors.ErrInvalidStatusTransitionMsg, "%s -> %s", tc.app.Slug, tc.status)
	}

	_, err := s.moderation.SetStatus(s.ctx, s.actor(s.root), pending.ID, "published", "")
	assert.ErrorIs(s.T(), err, errors.ErrInvalidParamsMsg)

	assert.Equal(s.T(), int64(2), s.count(&model.AppStatus{}), "非法流转不应写入状态记录")
}

// TestSetStatus_RequiresManager 测试只有审核员可以审核
func (s *ServiceTestSuite) TestSetStatus_RequiresManager() {
	app := testutil.CreateApp(s.T(), s.db, s.acme, s.alice, "widget", model.StatusPending)

	_, err := s.moderation.SetStatus(s.ctx, s.actor(s.alice), app.ID, model.StatusApproved, "")
	assert.ErrorIs(s.T(), err, errors.ErrForbiddenMsg)

	_, err = s.moderation.SetStatus(s.ctx, nil, app.ID, model.StatusApproved, "")
	assert.ErrorIs(s.T(), err, errors.ErrForbiddenMsg)

	_, err = s.moderation.SetStatus(s.ctx, s.actor(s.root), s.alice.ID, model.StatusApproved, "")
	assert.ErrorIs(s.T(), err, errors.ErrAppNotFoundMsg)
}

// TestHistory_Access 测试状态历史的访问权限
func (s *ServiceTestSuite) TestHistory_Access() {
	app := testutil.CreateApp(s.T(), s.db, s.acme, s.alice, "widget", model.StatusPending)

	_, err := s.moderation.History(s.ctx, s.actor(s.bob), app.ID)
	assert.ErrorIs(s.T(), err, errors.ErrAppNotFoundMsg, "未公开应用对无关用户表现为不存在")
	_, err = s.moderation.History(s.ctx, nil, app.ID)
	assert.ErrorIs(s.T(), err, errors.ErrAppNotFoundMsg)

	history, err := s.moderation.History(s.ctx, s.actor(s.root), app.ID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), history, 1)

	_, err = s.moderation.SetStatus(s.ctx, s.actor(s.root), app.ID, model.StatusApproved, "")
	require.NoError(s.T(), err)
	_, err = s.moderation.History(s.ctx, s.actor(s.bob), app.ID)
	assert.ErrorIs(s.T(), err, errors.ErrForbiddenMsg, "已公开应用的审核记录仍仅限有权限的用户")
}
