package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ImageType 图片类型
type ImageType string

const (
	ImageTypeLogo       ImageType = "logo"
	ImageTypeScreenshot ImageType = "screenshot"
)

// IsValid 是否为合法的图片类型
func (t ImageType) IsValid() bool {
	return t == ImageTypeLogo || t == ImageTypeScreenshot
}

// Media 已存储的图片文件元信息，文件内容上传后不可变
type Media struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OriginalFilename string    `gorm:"size:255;not null" json:"original_filename"`
	MimeType         string    `gorm:"size:100;not null" json:"mime_type"`
	Size             int64     `gorm:"not null" json:"size"`
	CreatedByUserID  uuid.UUID `gorm:"type:uuid;not null" json:"created_by_user_id"`
	CreatedAt        time.Time `json:"created_at"`
}

// TableName 指定表名
func (Media) TableName() string {
	return "media"
}

// BeforeCreate 生成主键
func (m *Media) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// AppMedia 应用级图片，同一应用最多一个 logo
type AppMedia struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AppID     uuid.UUID `gorm:"type:uuid;not null;index" json:"app_id"`
	MediaID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"media_id"`
	ImageType ImageType `gorm:"size:20;not null" json:"image_type"`
	Caption   string    `gorm:"size:255;not null" json:"caption"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名
func (AppMedia) TableName() string {
	return "app_media"
}

// BeforeCreate 生成主键
func (m *AppMedia) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// AppVersionMedia 版本级图片
type AppVersionMedia struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AppVersionID uuid.UUID `gorm:"type:uuid;not null;index" json:"app_version_id"`
	MediaID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"media_id"`
	ImageType    ImageType `gorm:"size:20;not null" json:"image_type"`
	Caption      string    `gorm:"size:255;not null" json:"caption"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName 指定表名
func (AppVersionMedia) TableName() string {
	return "app_version_media"
}

// BeforeCreate 生成主键
func (m *AppVersionMedia) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// MediaView app_all_media_view 的一行，应用级图片的 AppVersionID 为空
type MediaView struct {
	MediaID          uuid.UUID     `gorm:"column:media_id"`
	AppID            uuid.UUID     `gorm:"column:app_id"`
	AppVersionID     uuid.NullUUID `gorm:"column:app_version_id"`
	ImageType        ImageType     `gorm:"column:image_type"`
	Caption          string        `gorm:"column:caption"`
	OriginalFilename string        `gorm:"column:original_filename"`
	MimeType         string        `gorm:"column:mime_type"`
	Size             int64         `gorm:"column:size"`
}

// BlobDir 图片文件所在目录
func (m *MediaView) BlobDir() string {
	return MediaBlobDir(m.AppID, m.AppVersionID)
}

// MediaBlobDir 应用级图片存放在 {appId}，版本级存放在 {appId}/{versionId}
func MediaBlobDir(appID uuid.UUID, versionID uuid.NullUUID) string {
	if versionID.Valid {
		return appID.String() + "/" + versionID.UUID.String()
	}
	return appID.String()
}
