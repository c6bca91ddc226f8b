package service

import (
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"strings"

	"github.com/bingooyong/apphub/internal/config"
	"github.com/bingooyong/apphub/internal/model"
	"github.com/bingooyong/apphub/internal/storage"
	"github.com/bingooyong/apphub/internal/testutil"
	"github.com/bingooyong/apphub/pkg/errors"
	prom "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCreate_NewAppIsPending 测试上传新应用
func (s *ServiceTestSuite) TestCreate_NewAppIsPending() {
	result, err := s.apps.Create(s.ctx, s.actor(s.alice), s.uploadInput("1.0.0"))
	require.NoError(s.T(), err)

	assert.True(s.T(), result.Created)
	assert.Equal(s.T(), model.StatusPending, result.Status)
	assert.Equal(s.T(), "widget", result.App.Slug)
	assert.Equal(s.T(), s.alice.ID, result.App.DeveloperUserID)

	sum := sha256.Sum256(zipBytes)
	assert.Equal(s.T(), hex.EncodeToString(sum[:]), result.Version.Sha256)
	assert.Equal(s.T(), int64(len(zipBytes)), result.Version.Size)

	file, err := s.storage.GetFile(s.ctx, model.ArchiveDir(result.App.ID, result.Version.ID), model.ArchiveName)
	require.NoError(s.T(), err, "应用包应该已保存")
	assert.Equal(s.T(), zipBytes, s.readFile(file))

	localised, err := s.store.Versions().ListLocalised(s.ctx, result.Version.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), localised, 1)
	assert.Equal(s.T(), "widget", localised[0].Slug, "英文本地化 slug 应该与应用 slug 一致")

	expected := `
# HELP apphub_uploads_total Total number of stored uploads by kind.
# TYPE apphub_uploads_total counter
apphub_uploads_total{kind="archive"} 1
`
	assert.NoError(s.T(), prom.GatherAndCompare(s.metrics.Registry(), strings.NewReader(expected), "apphub_uploads_total"))
}

// TestCreate_SameNameAppendsVersion 测试同名应用追加版本
func (s *ServiceTestSuite) TestCreate_SameNameAppendsVersion() {
	first, err := s.apps.Create(s.ctx, s.actor(s.alice), s.uploadInput("1.0.0"))
	require.NoError(s.T(), err)

	second, err := s.apps.Create(s.ctx, s.actor(s.alice), s.uploadInput("1.1.0"))
	require.NoError(s.T(), err)

	assert.False(s.T(), second.Created)
	assert.Equal(s.T(), first.App.ID, second.App.ID)
	assert.Equal(s.T(), int64(1), s.count(&model.App{}))
	assert.Equal(s.T(), int64(2), s.count(&model.AppVersion{}))

	history, err := s.store.Statuses().History(s.ctx, first.App.ID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), history, 1, "pending 应用追加版本不应产生新的状态记录")
}

// TestCreate_DuplicateVersionWritesNothing 测试重复版本不写入任何数据
func (s *ServiceTestSuite) TestCreate_DuplicateVersionWritesNothing() {
	_, err := s.apps.Create(s.ctx, s.actor(s.alice), s.uploadInput("1.0.0"))
	require.NoError(s.T(), err)

	versions := s.count(&model.AppVersion{})
	localised := s.count(&model.AppVersionLocalised{})
	channels := s.count(&model.AppChannel{})
	statuses := s.count(&model.AppStatus{})

	_, err = s.apps.Create(s.ctx, s.actor(s.alice), s.uploadInput("1.0.0"))
	assert.ErrorIs(s.T(), err, errors.ErrVersionAlreadyExistsMsg)

	assert.Equal(s.T(), versions, s.count(&model.AppVersion{}))
	assert.Equal(s.T(), localised, s.count(&model.AppVersionLocalised{}))
	assert.Equal(s.T(), channels, s.count(&model.AppChannel{}))
	assert.Equal(s.T(), statuses, s.count(&model.AppStatus{}))
}

// TestCreate_Validation 测试上传参数校验
func (s *ServiceTestSuite) TestCreate_Validation() {
	cases := []struct {
		name   string
		mutate func(in *CreateAppInput)
		want   *errors.APIError
	}{
		{"空版本号", func(in *CreateAppInput) { in.Version = "" }, errors.ErrInvalidVersionMsg},
		{"版本号含斜杠", func(in *CreateAppInput) { in.Version = "1.0/2" }, errors.ErrInvalidVersionMsg},
		{"版本号过长", func(in *CreateAppInput) { in.Version = strings.Repeat("1", 51) }, errors.ErrInvalidVersionMsg},
		{"缺少名称", func(in *CreateAppInput) { in.Name = "  " }, errors.ErrInvalidParamsMsg},
		{"缺少应用包", func(in *CreateAppInput) { in.Archive = nil }, errors.ErrInvalidParamsMsg},
		{"非法应用类型", func(in *CreateAppInput) { in.AppType = "PLUGIN" }, errors.ErrInvalidParamsMsg},
		{"非法语言代码", func(in *CreateAppInput) { in.LanguageCode = "not a language" }, errors.ErrInvalidParamsMsg},
		{"logo 不是图片", func(in *CreateAppInput) { in.Logo = &ImageUpload{Filename: "logo.txt", Data: []byte("hello")} }, errors.ErrInvalidImageMsg},
	}

	for _, tc := range cases {
		input := s.uploadInput("1.0.0")
		tc.mutate(input)
		_, err := s.apps.Create(s.ctx, s.actor(s.alice), input)
		assert.ErrorIs(s.T(), err, tc.want, tc.name)
	}
	assert.Equal(s.T(), int64(0), s.count(&model.App{}))
}

// TestCreate_RequiresMembership 测试非组织成员不能上传
func (s *ServiceTestSuite) TestCreate_RequiresMembership() {
	_, err := s.apps.Create(s.ctx, s.actor(s.bob), s.uploadInput("1.0.0"))
	assert.ErrorIs(s.T(), err, errors.ErrNotOrganisationMemberMsg)

	// 审核员不受限制
	_, err = s.apps.Create(s.ctx, s.actor(s.root), s.uploadInput("1.0.0"))
	assert.NoError(s.T(), err)
}

// TestCreate_UnknownChannelRollsBack 测试渠道不存在时新应用也不会写入
func (s *ServiceTestSuite) TestCreate_UnknownChannelRollsBack() {
	input := s.uploadInput("1.0.0")
	input.Channel = "nightly"

	_, err := s.apps.Create(s.ctx, s.actor(s.alice), input)
	assert.ErrorIs(s.T(), err, errors.ErrChannelNotFoundMsg)
	assert.Equal(s.T(), int64(0), s.count(&model.App{}))
	assert.Equal(s.T(), int64(0), s.count(&model.AppStatus{}))
}

// TestCreate_StorageFailureRollsBack 测试存储失败时事务回滚
func (s *ServiceTestSuite) TestCreate_StorageFailureRollsBack() {
	apps := s.newAppService(&failingStorage{Storage: s.storage, err: stderrors.New("disk full")}, config.ModerationConfig{})

	_, err := apps.Create(s.ctx, s.actor(s.alice), s.uploadInput("1.0.0"))
	assert.ErrorIs(s.T(), err, errors.ErrStorageMsg)

	assert.Equal(s.T(), int64(0), s.count(&model.App{}))
	assert.Equal(s.T(), int64(0), s.count(&model.AppVersion{}))
	assert.Equal(s.T(), int64(0), s.count(&model.AppChannel{}))
}

// TestCreate_WithLogoAndLanguage 测试带 logo 与非英文语言的上传
func (s *ServiceTestSuite) TestCreate_WithLogoAndLanguage() {
	input := s.uploadInput("1.0.0")
	input.LanguageCode = "fr"
	input.Name = "Widget Deluxe"
	input.Logo = &ImageUpload{Filename: "logo.png", Data: pngBytes}

	result, err := s.apps.Create(s.ctx, s.actor(s.alice), input)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "widget-deluxe", result.App.Slug)

	localised, err := s.store.Versions().ListLocalised(s.ctx, result.Version.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), localised, 2)
	assert.Equal(s.T(), model.DefaultLanguage, localised[0].LanguageCode)
	assert.Equal(s.T(), result.App.Slug, localised[0].Slug)
	assert.Equal(s.T(), "fr", localised[1].LanguageCode)

	media, err := s.store.Media().ListByApp(s.ctx, result.App.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), media, 1)
	assert.Equal(s.T(), model.ImageTypeLogo, media[0].ImageType)
	assert.Equal(s.T(), "image/png", media[0].MimeType)

	file, err := s.storage.GetFile(s.ctx, media[0].BlobDir(), media[0].MediaID.String())
	require.NoError(s.T(), err)
	assert.Equal(s.T(), pngBytes, s.readFile(file))
}

// TestAddVersion_ResubmitsRejectedApp 测试被拒绝的应用追加版本后重新进入待审核
func (s *ServiceTestSuite) TestAddVersion_ResubmitsRejectedApp() {
	app := testutil.CreateApp(s.T(), s.db, s.acme, s.alice, "widget", model.StatusRejected)
	testutil.CreateVersion(s.T(), s.db, app, "1.0.0", model.DefaultChannel)

	input := s.uploadInput("1.1.0").VersionInput
	result, err := s.apps.AddVersion(s.ctx, s.actor(s.alice), app.ID, &input)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.StatusPending, result.Status)

	history, err := s.store.Statuses().History(s.ctx, app.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), history, 2)
	assert.Equal(s.T(), model.StatusRejected, history[0].Status)
	assert.Equal(s.T(), model.StatusPending, history[1].Status)
}

// TestAddVersion_ApprovedStatusPolicy 测试已审核应用追加版本的状态策略
func (s *ServiceTestSuite) TestAddVersion_ApprovedStatusPolicy() {
	app := testutil.CreateApp(s.T(), s.db, s.acme, s.alice, "widget", model.StatusApproved)
	testutil.CreateVersion(s.T(), s.db, app, "1.0.0", model.DefaultChannel)

	input := s.uploadInput("1.1.0").VersionInput
	result, err := s.apps.AddVersion(s.ctx, s.actor(s.alice), app.ID, &input)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.StatusApproved, result.Status, "默认配置下保持已审核状态")

	reset := s.newAppService(s.storage, config.ModerationConfig{ResetApprovalOnNewVersion: true})
	input = s.uploadInput("1.2.0").VersionInput
	result, err = reset.AddVersion(s.ctx, s.actor(s.alice), app.ID, &input)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.StatusPending, result.Status)

	current, err := s.store.Statuses().Current(s.ctx, app.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.StatusPending, current.Status)
}

// TestAddVersion_Access 测试追加版本的权限与应用不存在
func (s *ServiceTestSuite) TestAddVersion_Access() {
	app := testutil.CreateApp(s.T(), s.db, s.acme, s.alice, "widget", model.StatusPending)
	input := s.uploadInput("1.0.0").VersionInput

	_, err := s.apps.AddVersion(s.ctx, s.actor(s.bob), app.ID, &input)
	assert.ErrorIs(s.T(), err, errors.ErrForbiddenMsg)

	_, err = s.apps.AddVersion(s.ctx, s.actor(s.alice), s.bob.ID, &input)
	assert.ErrorIs(s.T(), err, errors.ErrAppNotFoundMsg)

	_, err = s.apps.AddVersion(s.ctx, s.actor(s.root), app.ID, &input)
	assert.NoError(s.T(), err)
}

// TestDelete_RemovesEverything 测试删除应用及其文件
func (s *ServiceTestSuite) TestDelete_RemovesEverything() {
	input := s.uploadInput("1.0.0")
	input.Logo = &ImageUpload{Filename: "logo.png", Data: pngBytes}
	result, err := s.apps.Create(s.ctx, s.actor(s.alice), input)
	require.NoError(s.T(), err)

	media, err := s.store.Media().ListByApp(s.ctx, result.App.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), media, 1)

	err = s.apps.Delete(s.ctx, s.actor(s.bob), result.App.ID)
	assert.ErrorIs(s.T(), err, errors.ErrForbiddenMsg)

	require.NoError(s.T(), s.apps.Delete(s.ctx, s.actor(s.alice), result.App.ID))

	for _, value := range []interface{}{&model.App{}, &model.AppVersion{}, &model.AppStatus{}, &model.Media{}, &model.AppMedia{}} {
		assert.Equal(s.T(), int64(0), s.count(value))
	}

	_, err = s.storage.GetFile(s.ctx, model.ArchiveDir(result.App.ID, result.Version.ID), model.ArchiveName)
	assert.ErrorIs(s.T(), err, storage.ErrNotFound)
	_, err = s.storage.GetFile(s.ctx, media[0].BlobDir(), media[0].MediaID.String())
	assert.ErrorIs(s.T(), err, storage.ErrNotFound)

	err = s.apps.Delete(s.ctx, s.actor(s.root), result.App.ID)
	assert.ErrorIs(s.T(), err, errors.ErrAppNotFoundMsg)
}

// TestTransferOwnership 测试变更应用归属
func (s *ServiceTestSuite) TestTransferOwnership() {
	app := testutil.CreateApp(s.T(), s.db, s.acme, s.alice, "widget", model.StatusPending)
	globex := testutil.CreateOrganisation(s.T(), s.db, "Globex", "globex", s.bob)

	_, err := s.apps.TransferOwnership(s.ctx, s.actor(s.alice), app.ID, globex.ID, s.bob.ID)
	assert.ErrorIs(s.T(), err, errors.ErrForbiddenMsg, "只有审核员可以变更归属")

	_, err = s.apps.TransferOwnership(s.ctx, s.actor(s.root), app.ID, globex.ID, s.alice.ID)
	assert.ErrorIs(s.T(), err, errors.ErrNotOrganisationMemberMsg, "新开发者必须是目标组织成员")

	updated, err := s.apps.TransferOwnership(s.ctx, s.actor(s.root), app.ID, globex.ID, s.bob.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), globex.ID, updated.OrganisationID)
	assert.Equal(s.T(), s.bob.ID, updated.DeveloperUserID)

	stored, err := s.store.Apps().GetByID(s.ctx, app.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), globex.ID, stored.OrganisationID)

	// 目标组织已有同 slug 应用
	testutil.CreateApp(s.T(), s.db, s.acme, s.alice, "widget", model.StatusPending)
	_, err = s.apps.TransferOwnership(s.ctx, s.actor(s.root), app.ID, s.acme.ID, s.alice.ID)
	assert.ErrorIs(s.T(), err, errors.ErrAppAlreadyExistsMsg)
}
