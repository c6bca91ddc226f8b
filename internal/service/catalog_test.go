package service

import (
	"context"

	"github.com/bingooyong/apphub/internal/formatter"
	"github.com/bingooyong/apphub/internal/model"
	"github.com/bingooyong/apphub/internal/repository"
	"github.com/bingooyong/apphub/internal/testutil"
	"github.com/bingooyong/apphub/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var catalogOpts = formatter.Options{ServerURL: "https://hub.example.com"}

// TestList_OnlyApproved 测试公开列表只包含已审核应用
func (s *ServiceTestSuite) TestList_OnlyApproved() {
	approved := testutil.CreateApp(s.T(), s.db, s.acme, s.alice, "approved", model.StatusApproved)
	testutil.CreateVersion(s.T(), s.db, approved, "1.0.0", model.DefaultChannel)
	pending := testutil.CreateApp(s.T(), s.db, s.acme, s.alice, "pending", model.StatusPending)
	testutil.CreateVersion(s.T(), s.db, pending, "1.0.0", model.DefaultChannel)

	apps, err := s.catalog.List(s.ctx, ListQuery{}, catalogOpts)
	require.NoError(s.T(), err)
	require.Len(s.T(), apps, 1)
	assert.Equal(s.T(), approved.ID, apps[0].ID)
	require.Len(s.T(), apps[0].Versions, 1)
	assert.Equal(s.T(), "https://hub.example.com/v1/apps/download/acme/approved/1.0.0/app.zip", apps[0].Versions[0].DownloadURL)

	apps, err = s.catalog.List(s.ctx, ListQuery{Channel: "canary"}, catalogOpts)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), apps)

	_, err = s.catalog.List(s.ctx, ListQuery{AppType: "PLUGIN"}, catalogOpts)
	assert.ErrorIs(s.T(), err, errors.ErrInvalidParamsMsg)
}

// TestList_LanguageFallback 测试语言选择与英文回退
func (s *ServiceTestSuite) TestList_LanguageFallback() {
	app := testutil.CreateApp(s.T(), s.db, s.acme, s.alice, "widget", model.StatusApproved)
	v1 := testutil.CreateVersion(s.T(), s.db, app, "1.0.0", model.DefaultChannel)
	testutil.CreateVersion(s.T(), s.db, app, "2.0.0", model.DefaultChannel)
	testutil.CreateLocalised(s.T(), s.db, v1, "fr", "Gadget", "gadget")

	apps, err := s.catalog.List(s.ctx, ListQuery{Language: "fr"}, catalogOpts)
	require.NoError(s.T(), err)
	require.Len(s.T(), apps, 1)
	require.Len(s.T(), apps[0].Versions, 2, "缺少法语的版本应回退到英文")

	apps, err = s.catalog.List(s.ctx, ListQuery{Language: "de"}, catalogOpts)
	require.NoError(s.T(), err)
	require.Len(s.T(), apps, 1)
	assert.Equal(s.T(), "widget", apps[0].Name)
}

// TestGet_Visibility 测试单个应用的可见性
func (s *ServiceTestSuite) TestGet_Visibility() {
	app := testutil.CreateApp(s.T(), s.db, s.acme, s.alice, "widget", model.StatusPending)
	testutil.CreateVersion(s.T(), s.db, app, "1.0.0", model.DefaultChannel)

	_, err := s.catalog.Get(s.ctx, nil, app.ID, "", catalogOpts)
	assert.ErrorIs(s.T(), err, errors.ErrAppNotFoundMsg)
	_, err = s.catalog.Get(s.ctx, s.actor(s.bob), app.ID, "", catalogOpts)
	assert.ErrorIs(s.T(), err, errors.ErrAppNotFoundMsg)

	got, err := s.catalog.Get(s.ctx, s.actor(s.alice), app.ID, "", catalogOpts)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.StatusPending, got.Status)
	assert.Equal(s.T(), "acme", got.Developer.OrganisationSlug)

	_, err = s.catalog.Get(s.ctx, s.actor(s.root), app.ID, "", catalogOpts)
	assert.NoError(s.T(), err)

	_, err = s.catalog.Get(s.ctx, s.actor(s.root), uuid.New(), "", catalogOpts)
	assert.ErrorIs(s.T(), err, errors.ErrAppNotFoundMsg)
}

// TestAll_ManagerOnly 测试全部应用列表
func (s *ServiceTestSuite) TestAll_ManagerOnly() {
	for slug, status := range map[string]model.Status{
		"one":   model.StatusPending,
		"two":   model.StatusApproved,
		"three": model.StatusRejected,
	} {
		app := testutil.CreateApp(s.T(), s.db, s.acme, s.alice, slug, status)
		testutil.CreateVersion(s.T(), s.db, app, "1.0.0", model.DefaultChannel)
	}

	_, err := s.catalog.All(s.ctx, s.actor(s.alice), "", catalogOpts)
	assert.ErrorIs(s.T(), err, errors.ErrForbiddenMsg)

	apps, err := s.catalog.All(s.ctx, s.actor(s.root), "", catalogOpts)
	require.NoError(s.T(), err)
	assert.Len(s.T(), apps, 3)

	apps, err = s.catalog.All(s.ctx, s.actor(s.root), model.StatusRejected, catalogOpts)
	require.NoError(s.T(), err)
	require.Len(s.T(), apps, 1)
	assert.Equal(s.T(), model.StatusRejected, apps[0].Status)
}

// TestMyApps 测试我的应用列表
func (s *ServiceTestSuite) TestMyApps() {
	mine := testutil.CreateApp(s.T(), s.db, s.acme, s.alice, "mine", model.StatusPending)
	testutil.CreateVersion(s.T(), s.db, mine, "1.0.0", model.DefaultChannel)

	globex := testutil.CreateOrganisation(s.T(), s.db, "Globex", "globex", s.bob)
	theirs := testutil.CreateApp(s.T(), s.db, globex, s.bob, "theirs", model.StatusApproved)
	testutil.CreateVersion(s.T(), s.db, theirs, "1.0.0", model.DefaultChannel)

	apps, err := s.catalog.MyApps(s.ctx, s.actor(s.alice), catalogOpts)
	require.NoError(s.T(), err)
	require.Len(s.T(), apps, 1)
	assert.Equal(s.T(), mine.ID, apps[0].ID)

	_, err = s.catalog.MyApps(s.ctx, nil, catalogOpts)
	assert.ErrorIs(s.T(), err, errors.ErrUnauthorizedMsg)
}

// TestDownload_EndToEnd 测试上传、审核与下载的完整流程
func (s *ServiceTestSuite) TestDownload_EndToEnd() {
	result, err := s.apps.Create(s.ctx, s.actor(s.alice), s.uploadInput("1.0.0"))
	require.NoError(s.T(), err)

	_, err = s.catalog.Download(s.ctx, "acme", "widget", "1.0.0")
	assert.ErrorIs(s.T(), err, errors.ErrVersionNotFoundMsg, "审核通过前不可下载")

	_, err = s.moderation.SetStatus(s.ctx, s.actor(s.root), result.App.ID, model.StatusApproved, "")
	require.NoError(s.T(), err)

	file, err := s.catalog.Download(s.ctx, "acme", "widget", "1.0.0")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(len(zipBytes)), file.ContentLength)
	assert.Equal(s.T(), zipBytes, s.readFile(file))

	_, err = s.catalog.Download(s.ctx, "acme", "widget", "9.9.9")
	assert.ErrorIs(s.T(), err, errors.ErrVersionNotFoundMsg)
	_, err = s.catalog.Download(s.ctx, "globex", "widget", "1.0.0")
	assert.ErrorIs(s.T(), err, errors.ErrVersionNotFoundMsg)
}

// TestDownload_MissingArchive 测试数据库有记录但文件缺失
func (s *ServiceTestSuite) TestDownload_MissingArchive() {
	app := testutil.CreateApp(s.T(), s.db, s.acme, s.alice, "widget", model.StatusApproved)
	testutil.CreateVersion(s.T(), s.db, app, "1.0.0", model.DefaultChannel)

	_, err := s.catalog.Download(s.ctx, "acme", "widget", "1.0.0")
	assert.ErrorIs(s.T(), err, errors.ErrArchiveNotFoundMsg)
}

// ambiguousStore 下载解析返回多个结果的 Store
type ambiguousStore struct {
	repository.Store
	view repository.AppViewRepository
}

func (a *ambiguousStore) AppsView() repository.AppViewRepository {
	return a.view
}

type stubAppsView struct {
	repository.AppViewRepository
	targets []*model.DownloadTarget
}

func (v *stubAppsView) FindDownloadTargets(ctx context.Context, orgSlug, appverSlug, version string) ([]*model.DownloadTarget, error) {
	return v.targets, nil
}

// TestDownload_Ambiguous 测试匹配到多个版本时返回冲突
func (s *ServiceTestSuite) TestDownload_Ambiguous() {
	store := &ambiguousStore{
		Store: s.store,
		view: &stubAppsView{targets: []*model.DownloadTarget{
			{AppID: uuid.New(), VersionID: uuid.New()},
			{AppID: uuid.New(), VersionID: uuid.New()},
		}},
	}
	catalog := NewCatalogService(store, s.storage, s.metrics, s.logger)

	_, err := catalog.Download(s.ctx, "acme", "widget", "1.0.0")
	assert.ErrorIs(s.T(), err, errors.ErrAmbiguousDownloadMsg)
	assert.Equal(s.T(), 409, errors.ErrAmbiguousDownloadMsg.GetHTTPStatus())
}
