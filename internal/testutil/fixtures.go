package testutil

import (
	"testing"

	"github.com/bingooyong/apphub/internal/model"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Password 测试用户的默认密码
const Password = "password123"

// CreateUser 创建测试用户
func CreateUser(t testing.TB, db *gorm.DB, username, role string) *model.User {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &model.User{
		Username: username,
		Password: string(hashed),
		Email:    username + "@example.com",
		Name:     username,
		Role:     role,
		Status:   model.UserStatusActive,
	}
	require.NoError(t, db.Create(user).Error, "创建用户失败")
	return user
}

// CreateOrganisation 创建组织并将创建者加入成员
func CreateOrganisation(t testing.TB, db *gorm.DB, name, slug string, creator *model.User) *model.Organisation {
	t.Helper()

	org := &model.Organisation{
		Name:            name,
		Slug:            slug,
		CreatedByUserID: creator.ID,
	}
	require.NoError(t, db.Create(org).Error, "创建组织失败")
	require.NoError(t, db.Create(&model.UserOrganisation{
		OrganisationID: org.ID,
		UserID:         creator.ID,
	}).Error, "添加组织成员失败")
	return org
}

// CreateApp 创建应用并写入初始状态
func CreateApp(t testing.TB, db *gorm.DB, org *model.Organisation, developer *model.User, slug string, status model.Status) *model.App {
	t.Helper()

	app := &model.App{
		Type:            model.AppTypeApp,
		Slug:            slug,
		DeveloperUserID: developer.ID,
		OrganisationID:  org.ID,
		CreatedByUserID: developer.ID,
	}
	require.NoError(t, db.Create(app).Error, "创建应用失败")
	require.NoError(t, db.Create(&model.AppStatus{
		AppID:           app.ID,
		Status:          status,
		CreatedByUserID: developer.ID,
	}).Error, "写入应用状态失败")
	return app
}

// CreateVersion 创建版本及其英文本地化与渠道信息，本地化 slug 与应用 slug 相同
func CreateVersion(t testing.TB, db *gorm.DB, app *model.App, version, channelName string) *model.AppVersion {
	t.Helper()

	var channel model.Channel
	require.NoError(t, db.Where("name = ?", channelName).First(&channel).Error, "渠道不存在")

	v := &model.AppVersion{
		AppID:           app.ID,
		Version:         version,
		SourceURL:       "https://example.com/src",
		DemoURL:         "https://example.com/demo",
		CreatedByUserID: app.DeveloperUserID,
	}
	require.NoError(t, db.Create(v).Error, "创建版本失败")
	require.NoError(t, db.Create(&model.AppVersionLocalised{
		AppVersionID: v.ID,
		LanguageCode: model.DefaultLanguage,
		Name:         app.Slug,
		Description:  "description of " + app.Slug,
		Slug:         app.Slug,
	}).Error, "创建本地化信息失败")
	require.NoError(t, db.Create(&model.AppChannel{
		AppVersionID:       v.ID,
		ChannelID:          channel.ID,
		MinPlatformVersion: "2.30",
		MaxPlatformVersion: "2.40",
	}).Error, "创建渠道信息失败")
	return v
}

// CreateLocalised 为版本追加一种语言的本地化信息
func CreateLocalised(t testing.TB, db *gorm.DB, version *model.AppVersion, lang, name, slug string) {
	t.Helper()

	require.NoError(t, db.Create(&model.AppVersionLocalised{
		AppVersionID: version.ID,
		LanguageCode: lang,
		Name:         name,
		Slug:         slug,
	}).Error, "创建本地化信息失败")
}
