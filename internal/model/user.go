package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 用户角色
const (
	RoleUser    = "user"
	RoleManager = "manager" // 审核员，可审核应用、管理渠道与用户
)

// 用户状态
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// User 用户模型
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Username string `gorm:"size:50;not null;uniqueIndex" json:"username"`
	Password string `gorm:"size:100;not null" json:"-"` // 加密后的密码
	Email    string `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Name     string `gorm:"size:100" json:"name"`

	Role   string `gorm:"size:20;not null" json:"role"`   // user, manager
	Status string `gorm:"size:20;not null" json:"status"` // active, disabled

	LastLoginAt *time.Time `json:"last_login_at"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// BeforeCreate 生成主键
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// IsManager 是否为审核员
func (u *User) IsManager() bool {
	return u.Role == RoleManager
}

// IsActive 是否为活跃用户
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}
