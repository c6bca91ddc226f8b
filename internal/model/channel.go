package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Channel 发布渠道，如 stable、development、canary
type Channel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:50;not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名
func (Channel) TableName() string {
	return "channel"
}

// BeforeCreate 生成主键
func (c *Channel) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// DefaultChannel 未指定渠道时使用
const DefaultChannel = "stable"
