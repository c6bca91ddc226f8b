package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultLanguage 默认语言，每个版本至少有该语言的本地化信息
const DefaultLanguage = "en"

// AppVersion 应用版本模型，只追加不修改
type AppVersion struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AppID   uuid.UUID `gorm:"type:uuid;not null;index" json:"app_id"`
	Version string    `gorm:"size:50;not null" json:"version"` // 应用内唯一

	SourceURL string `gorm:"size:500;not null" json:"source_url"`
	DemoURL   string `gorm:"size:500;not null" json:"demo_url"`

	Sha256 string `gorm:"size:64;not null" json:"sha256"` // 应用包 SHA-256
	Size   int64  `gorm:"not null" json:"size"`           // 应用包大小（字节）

	CreatedByUserID uuid.UUID `gorm:"type:uuid;not null" json:"created_by_user_id"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName 指定表名
func (AppVersion) TableName() string {
	return "app_version"
}

// BeforeCreate 生成主键
func (v *AppVersion) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// AppVersionLocalised 版本的本地化信息，每个 (版本, 语言) 一行
type AppVersionLocalised struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AppVersionID uuid.UUID `gorm:"type:uuid;not null" json:"app_version_id"`
	LanguageCode string    `gorm:"size:10;not null" json:"language_code"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	Description  string    `gorm:"type:text;not null" json:"description"`
	Slug         string    `gorm:"size:100;not null" json:"slug"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName 指定表名
func (AppVersionLocalised) TableName() string {
	return "app_version_localised"
}

// BeforeCreate 生成主键
func (l *AppVersionLocalised) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// AppChannel 版本的渠道与平台兼容范围，每个版本恰好一行
type AppChannel struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AppVersionID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"app_version_id"`
	ChannelID          uuid.UUID `gorm:"type:uuid;not null" json:"channel_id"`
	MinPlatformVersion string    `gorm:"size:50;not null" json:"min_platform_version"`
	MaxPlatformVersion string    `gorm:"size:50;not null" json:"max_platform_version"`
	CreatedAt          time.Time `json:"created_at"`
}

// TableName 指定表名
func (AppChannel) TableName() string {
	return "app_channel"
}

// BeforeCreate 生成主键
func (c *AppChannel) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
