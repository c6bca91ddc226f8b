package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// APIKey 用户的 API Key，每个用户至多一个，仅保存密钥部分的 bcrypt 哈希
type APIKey struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	KeyHash   string    `gorm:"size:100;not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名
func (APIKey) TableName() string {
	return "api_key"
}

// BeforeCreate 生成主键
func (k *APIKey) BeforeCreate(tx *gorm.DB) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	return nil
}
