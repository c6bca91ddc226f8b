package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Organisation 组织模型，应用归属于组织
type Organisation struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name            string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Slug            string    `gorm:"size:100;not null;uniqueIndex" json:"slug"`
	CreatedByUserID uuid.UUID `gorm:"type:uuid;not null" json:"created_by_user_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Organisation) TableName() string {
	return "organisation"
}

// BeforeCreate 生成主键
func (o *Organisation) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// UserOrganisation 组织成员关系
type UserOrganisation struct {
	OrganisationID uuid.UUID `gorm:"type:uuid;primaryKey" json:"organisation_id"`
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName 指定表名
func (UserOrganisation) TableName() string {
	return "user_organisation"
}
