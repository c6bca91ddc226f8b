package service

import (
	"strings"
	"sync"

	"github.com/bingooyong/apphub/internal/model"
	"github.com/bingooyong/apphub/internal/storage"
	"github.com/bingooyong/apphub/internal/testutil"
	"github.com/bingooyong/apphub/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func screenshots(names ...string) []*ImageUpload {
	files := make([]*ImageUpload, 0, len(names))
	for _, name := range names {
		files = append(files, &ImageUpload{Filename: name, Data: pngBytes})
	}
	return files
}

// TestUpload_AppAndVersionImages 测试应用级与版本级图片上传
func (s *ServiceTestSuite) TestUpload_AppAndVersionImages() {
	app := testutil.CreateApp(s.T(), s.db, s.acme, s.alice, "widget", model.StatusPending)
	version := testutil.CreateVersion(s.T(), s.db, app, "1.0.0", model.DefaultChannel)

	views, err := s.media.Upload(s.ctx, s.actor(s.alice), app.ID, &MediaUploadInput{
		Caption: "home",
		Files:   screenshots("a.png", "b.png"),
	})
	require.NoError(s.T(), err)
	require.Len(s.T(), views, 2)
	assert.Equal(s.T(), model.ImageTypeScreenshot, views[0].ImageType, "默认为截图")
	assert.Equal(s.T(), "image/png", views[0].MimeType)

	versionViews, err := s.media.Upload(s.ctx, s.actor(s.alice), app.ID, &MediaUploadInput{
		VersionID: uuid.NullUUID{UUID: version.ID, Valid: true},
		Files:     screenshots("c.png"),
	})
	require.NoError(s.T(), err)
	require.Len(s.T(), versionViews, 1)

	stored, err := s.store.Media().GetView(s.ctx, versionViews[0].MediaID)
	require.NoError(s.T(), err)
	assert.True(s.T(), stored.AppVersionID.Valid)
	assert.Equal(s.T(), app.ID.String()+"/"+version.ID.String(), stored.BlobDir())

	for _, v := range append(views, versionViews...) {
		file, err := s.storage.GetFile(s.ctx, v.BlobDir(), v.MediaID.String())
		require.NoError(s.T(), err)
		assert.Equal(s.T(), pngBytes, s.readFile(file))
	}
}

// TestUpload_Validation 测试图片上传校验
func (s *ServiceTestSuite) TestUpload_Validation() {
	app := testutil.CreateApp(s.T(), s.db, s.acme, s.alice, "widget", model.StatusPending)
	other := testutil.CreateApp(s.T(), s.db, s.acme, s.alice, "other", model.StatusPending)
	otherVersion := testutil.CreateVersion(s.T(), s.db, other, "1.0.0", model.DefaultChannel)
	alice := s.actor(s.alice)

	_, err := s.media.Upload(s.ctx, alice, app.ID, &MediaUploadInput{})
	assert.ErrorIs(s.T(), err, errors.ErrInvalidParamsMsg, "至少需要一个文件")

	_, err = s.media.Upload(s.ctx, alice, app.ID, &MediaUploadInput{ImageType: "banner", Files: screenshots("a.png")})
	assert.ErrorIs(s.T(), err, errors.ErrInvalidParamsMsg)

	_, err = s.media.Upload(s.ctx, alice, app.ID, &MediaUploadInput{ImageType: model.ImageTypeLogo, Files: screenshots("a.png", "b.png")})
	assert.ErrorIs(s.T(), err, errors.ErrInvalidParamsMsg, "一次只能上传一个 logo")

	_, err = s.media.Upload(s.ctx, alice, app.ID, &MediaUploadInput{
		ImageType: model.ImageTypeLogo,
		VersionID: uuid.NullUUID{UUID: otherVersion.ID, Valid: true},
		Files:     screenshots("a.png"),
	})
	assert.ErrorIs(s.T(), err, errors.ErrInvalidParamsMsg, "版本不能设置 logo")

	_, err = s.media.Upload(s.ctx, alice, app.ID, &MediaUploadInput{
		VersionID: uuid.NullUUID{UUID: otherVersion.ID, Valid: true},
		Files:     screenshots("a.png"),
	})
	assert.ErrorIs(s.T(), err, errors.ErrVersionNotFoundMsg, "版本必须属于该应用")

	_, err = s.media.Upload(s.ctx, alice, app.ID, &MediaUploadInput{Files: []*ImageUpload{{Filename: "a.txt", Data: []byte("plain text")}}})
	assert.ErrorIs(s.T(), err, errors.ErrInvalidImageMsg)

	_, err = s.media.Upload(s.ctx, s.actor(s.bob), app.ID, &MediaUploadInput{Files: screenshots("a.png")})
	assert.ErrorIs(s.T(), err, errors.ErrUnauthorizedMsg)

	_, err = s.media.Upload(s.ctx, alice, uuid.New(), &MediaUploadInput{Files: screenshots("a.png")})
	assert.ErrorIs(s.T(), err, errors.ErrAppNotFoundMsg)

	assert.Equal(s.T(), int64(0), s.count(&model.Media{}))
}

// TestUpload_LogoReplacesLogo 测试上传 logo 替换原 logo
func (s *ServiceTestSuite) TestUpload_LogoReplacesLogo() {
	app := testutil.CreateApp(s.T(), s.db, s.acme, s.alice, "widget", model.StatusPending)

	first, err := s.media.Upload(s.ctx, s.actor(s.alice), app.ID, &MediaUploadInput{ImageType: model.ImageTypeLogo, Files: screenshots("1.png")})
	require.NoError(s.T(), err)
	second, err := s.media.Upload(s.ctx, s.actor(s.alice), app.ID, &MediaUploadInput{ImageType: model.ImageTypeLogo, Files: screenshots("2.png")})
	require.NoError(s.T(), err)

	logos, err := s.store.Media().CountLogos(s.ctx, app.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), logos)

	old, err := s.store.Media().GetView(s.ctx, first[0].MediaID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.ImageTypeScreenshot, old.ImageType)

	current, err := s.store.Media().GetView(s.ctx, second[0].MediaID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.ImageTypeLogo, current.ImageType)
}

// TestUpload_ConcurrentLogos 测试并发设置 logo 后恰好只有一个 logo。
// 测试库只有一个连接，这些事务实际上依次执行，这里验证的是降级旧 logo 与
// app_media_single_logo 唯一索引的组合；FOR UPDATE 行锁下的真实并发见
// media_postgres_test.go（-tags postgres）
func (s *ServiceTestSuite) TestUpload_ConcurrentLogos() {
	app := testutil.CreateApp(s.T(), s.db, s.acme, s.alice, "widget", model.StatusPending)
	alice := s.actor(s.alice)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.media.Upload(s.ctx, alice, app.ID, &MediaUploadInput{
				ImageType: model.ImageTypeLogo,
				Files:     screenshots("logo.png"),
			})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(s.T(), err)
	}

	logos, err := s.store.Media().CountLogos(s.ctx, app.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), logos)

	media, err := s.store.Media().ListByApp(s.ctx, app.ID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), media, workers)
}

// TestSetLogo 测试将已有图片设为 logo
func (s *ServiceTestSuite) TestSetLogo() {
	app := testutil.CreateApp(s.T(), s.db, s.acme, s.alice, "widget", model.StatusPending)
	version := testutil.CreateVersion(s.T(), s.db, app, "1.0.0", model.DefaultChannel)
	alice := s.actor(s.alice)

	logo, err := s.media.Upload(s.ctx, alice, app.ID, &MediaUploadInput{ImageType: model.ImageTypeLogo, Files: screenshots("logo.png")})
	require.NoError(s.T(), err)
	shot, err := s.media.Upload(s.ctx, alice, app.ID, &MediaUploadInput{Files: screenshots("shot.png")})
	require.NoError(s.T(), err)
	versionShot, err := s.media.Upload(s.ctx, alice, app.ID, &MediaUploadInput{
		VersionID: uuid.NullUUID{UUID: version.ID, Valid: true},
		Files:     screenshots("v.png"),
	})
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.media.SetLogo(s.ctx, alice, app.ID, shot[0].MediaID))

	demoted, err := s.store.Media().GetView(s.ctx, logo[0].MediaID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.ImageTypeScreenshot, demoted.ImageType)
	promoted, err := s.store.Media().GetView(s.ctx, shot[0].MediaID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.ImageTypeLogo, promoted.ImageType)

	// 重复设置是幂等的
	assert.NoError(s.T(), s.media.SetLogo(s.ctx, alice, app.ID, shot[0].MediaID))

	err = s.media.SetLogo(s.ctx, alice, app.ID, versionShot[0].MediaID)
	assert.ErrorIs(s.T(), err, errors.ErrInvalidParamsMsg)

	err = s.media.SetLogo(s.ctx, alice, app.ID, uuid.New())
	assert.ErrorIs(s.T(), err, errors.ErrMediaNotFoundMsg)

	err = s.media.SetLogo(s.ctx, s.actor(s.bob), app.ID, logo[0].MediaID)
	assert.ErrorIs(s.T(), err, errors.ErrUnauthorizedMsg)
}

// TestUpdateMeta 测试修改应用级与版本级图片的说明
func (s *ServiceTestSuite) TestUpdateMeta() {
	app := testutil.CreateApp(s.T(), s.db, s.acme, s.alice, "widget", model.StatusPending)
	other := testutil.CreateApp(s.T(), s.db, s.acme, s.alice, "other", model.StatusPending)
	version := testutil.CreateVersion(s.T(), s.db, app, "1.0.0", model.DefaultChannel)
	alice := s.actor(s.alice)

	appViews, err := s.media.Upload(s.ctx, alice, app.ID, &MediaUploadInput{Caption: "home", Files: screenshots("a.png")})
	require.NoError(s.T(), err)
	versionViews, err := s.media.Upload(s.ctx, alice, app.ID, &MediaUploadInput{
		VersionID: uuid.NullUUID{UUID: version.ID, Valid: true},
		Files:     screenshots("b.png"),
	})
	require.NoError(s.T(), err)

	view, err := s.media.UpdateMeta(s.ctx, alice, app.ID, appViews[0].MediaID, "settings page")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "settings page", view.Caption)
	assert.False(s.T(), view.AppVersionID.Valid)

	view, err = s.media.UpdateMeta(s.ctx, s.actor(s.root), app.ID, versionViews[0].MediaID, "release notes")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "release notes", view.Caption)
	assert.Equal(s.T(), version.ID, view.AppVersionID.UUID)

	_, err = s.media.UpdateMeta(s.ctx, s.actor(s.bob), app.ID, appViews[0].MediaID, "x")
	assert.ErrorIs(s.T(), err, errors.ErrUnauthorizedMsg)
	_, err = s.media.UpdateMeta(s.ctx, alice, other.ID, appViews[0].MediaID, "x")
	assert.ErrorIs(s.T(), err, errors.ErrMediaNotFoundMsg, "图片必须属于该应用")
	_, err = s.media.UpdateMeta(s.ctx, alice, app.ID, uuid.New(), "x")
	assert.ErrorIs(s.T(), err, errors.ErrMediaNotFoundMsg)
	_, err = s.media.UpdateMeta(s.ctx, alice, app.ID, appViews[0].MediaID, strings.Repeat("字", maxCaptionLength+1))
	assert.ErrorIs(s.T(), err, errors.ErrInvalidParamsMsg)

	stored, err := s.store.Media().GetView(s.ctx, appViews[0].MediaID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "settings page", stored.Caption, "失败的修改不应生效")
}

// TestDeleteMedia 测试删除图片
func (s *ServiceTestSuite) TestDeleteMedia() {
	app := testutil.CreateApp(s.T(), s.db, s.acme, s.alice, "widget", model.StatusPending)
	other := testutil.CreateApp(s.T(), s.db, s.acme, s.alice, "other", model.StatusPending)

	views, err := s.media.Upload(s.ctx, s.actor(s.alice), app.ID, &MediaUploadInput{Files: screenshots("a.png")})
	require.NoError(s.T(), err)
	mediaID := views[0].MediaID

	err = s.media.Delete(s.ctx, s.actor(s.alice), other.ID, mediaID)
	assert.ErrorIs(s.T(), err, errors.ErrMediaNotFoundMsg, "图片必须属于该应用")

	require.NoError(s.T(), s.media.Delete(s.ctx, s.actor(s.root), app.ID, mediaID))

	assert.Equal(s.T(), int64(0), s.count(&model.Media{}))
	_, err = s.storage.GetFile(s.ctx, views[0].BlobDir(), mediaID.String())
	assert.ErrorIs(s.T(), err, storage.ErrNotFound)
}

// TestGetMedia_Visibility 测试未审核应用的图片不公开
func (s *ServiceTestSuite) TestGetMedia_Visibility() {
	app := testutil.CreateApp(s.T(), s.db, s.acme, s.alice, "widget", model.StatusPending)
	views, err := s.media.Upload(s.ctx, s.actor(s.alice), app.ID, &MediaUploadInput{Files: screenshots("a.png")})
	require.NoError(s.T(), err)
	mediaID := views[0].MediaID

	_, err = s.media.Get(s.ctx, nil, mediaID)
	assert.ErrorIs(s.T(), err, errors.ErrMediaNotFoundMsg)
	_, err = s.media.Get(s.ctx, s.actor(s.bob), mediaID)
	assert.ErrorIs(s.T(), err, errors.ErrMediaNotFoundMsg)

	content, err := s.media.Get(s.ctx, s.actor(s.alice), mediaID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "image/png", content.View.MimeType)
	assert.False(s.T(), content.Public, "未审核应用的图片不可公共缓存")
	assert.Equal(s.T(), pngBytes, s.readFile(content.File))

	_, err = s.moderation.SetStatus(s.ctx, s.actor(s.root), app.ID, model.StatusApproved, "")
	require.NoError(s.T(), err)

	content, err = s.media.Get(s.ctx, nil, mediaID)
	require.NoError(s.T(), err, "已审核应用的图片公开可见")
	assert.True(s.T(), content.Public)
	assert.Equal(s.T(), pngBytes, s.readFile(content.File))

	_, err = s.media.Get(s.ctx, nil, uuid.New())
	assert.ErrorIs(s.T(), err, errors.ErrMediaNotFoundMsg)
}
