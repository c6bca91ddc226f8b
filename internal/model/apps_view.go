package model

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// AppViewRow apps_view 的一行：应用 × 版本 × 图片 × 语言
// 每个字段都显式对应视图中的一列
type AppViewRow struct {
	AppID           uuid.UUID `gorm:"column:app_id"`
	AppType         AppType   `gorm:"column:app_type"`
	AppSlug         string    `gorm:"column:app_slug"`
	AppCreatedAt    time.Time `gorm:"column:app_created_at"`
	Status          Status    `gorm:"column:status"`
	StatusCreatedAt time.Time `gorm:"column:status_created_at"`

	VersionID        uuid.UUID `gorm:"column:version_id"`
	Version          string    `gorm:"column:version"`
	VersionCreatedAt time.Time `gorm:"column:version_created_at"`
	SourceURL        string    `gorm:"column:source_url"`
	DemoURL          string    `gorm:"column:demo_url"`

	LanguageCode string `gorm:"column:language_code"`
	Name         string `gorm:"column:name"`
	Description  string `gorm:"column:description"`
	AppverSlug   string `gorm:"column:appver_slug"`

	ChannelID          uuid.UUID `gorm:"column:channel_id"`
	ChannelName        string    `gorm:"column:channel_name"`
	MinPlatformVersion string    `gorm:"column:min_platform_version"`
	MaxPlatformVersion string    `gorm:"column:max_platform_version"`

	DeveloperID    uuid.UUID `gorm:"column:developer_id"`
	DeveloperName  string    `gorm:"column:developer_name"`
	DeveloperEmail string    `gorm:"column:developer_email"`

	OrganisationID   uuid.UUID `gorm:"column:organisation_id"`
	Organisation     string    `gorm:"column:organisation"`
	OrganisationSlug string    `gorm:"column:organisation_slug"`

	// 以下字段来自 LEFT JOIN，应用没有图片时为空
	MediaID          uuid.NullUUID  `gorm:"column:media_id"`
	MediaVersionID   uuid.NullUUID  `gorm:"column:media_version_id"`
	ImageType        sql.NullString `gorm:"column:image_type"`
	Caption          sql.NullString `gorm:"column:caption"`
	OriginalFilename sql.NullString `gorm:"column:original_filename"`
	MimeType         sql.NullString `gorm:"column:mime_type"`
}

// DownloadTarget 下载解析结果
type DownloadTarget struct {
	AppID     uuid.UUID `gorm:"column:app_id"`
	VersionID uuid.UUID `gorm:"column:version_id"`
}

// ArchiveDir 应用包所在目录 {appId}/{versionId}
func ArchiveDir(appID, versionID uuid.UUID) string {
	return appID.String() + "/" + versionID.String()
}

// ArchiveName 应用包文件名
const ArchiveName = "app.zip"
