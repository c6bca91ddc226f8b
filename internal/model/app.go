package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AppType 应用类型
type AppType string

const (
	AppTypeApp                    AppType = "APP"
	AppTypeDashboardWidget        AppType = "DASHBOARD_WIDGET"
	AppTypeTrackerDashboardWidget AppType = "TRACKER_DASHBOARD_WIDGET"
)

// IsValid 是否为合法的应用类型
func (t AppType) IsValid() bool {
	switch t {
	case AppTypeApp, AppTypeDashboardWidget, AppTypeTrackerDashboardWidget:
		return true
	}
	return false
}

// App 应用模型，创建后除状态与归属外不可变
type App struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Type            AppType   `gorm:"size:50;not null" json:"type"`
	Slug            string    `gorm:"size:100;not null" json:"slug"` // 组织内唯一
	DeveloperUserID uuid.UUID `gorm:"type:uuid;not null;index" json:"developer_user_id"`
	OrganisationID  uuid.UUID `gorm:"type:uuid;not null;index" json:"organisation_id"`
	CreatedByUserID uuid.UUID `gorm:"type:uuid;not null" json:"created_by_user_id"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName 指定表名
func (App) TableName() string {
	return "app"
}

// BeforeCreate 生成主键
func (a *App) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Status 审核状态
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// IsValid 是否为合法的审核状态
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// allowedTransitions 允许的状态流转
var allowedTransitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusRejected: {StatusPending},
	StatusApproved: {StatusRejected},
}

// CanTransition 判断 from -> to 是否为允许的状态流转
func CanTransition(from, to Status) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// AppStatus 应用状态历史，只追加不修改，ID 最大者为当前状态
type AppStatus struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	AppID           uuid.UUID `gorm:"type:uuid;not null;index" json:"app_id"`
	Status          Status    `gorm:"size:20;not null" json:"status"`
	Reason          string    `gorm:"size:500" json:"reason,omitempty"`
	CreatedByUserID uuid.UUID `gorm:"type:uuid;not null" json:"created_by_user_id"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName 指定表名
func (AppStatus) TableName() string {
	return "app_status"
}
