package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog 审计日志模型
type AuditLog struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UserID   uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"` // 操作用户ID
	Username string    `gorm:"size:50;not null" json:"username"`        // 冗余字段，方便查询

	Action string `gorm:"size:100;not null" json:"action"` // 路由模板，如：POST /v1/apps/:appId/status
	Method string `gorm:"size:10" json:"method"`           // HTTP方法：POST, PUT, DELETE
	Path   string `gorm:"size:200" json:"path"`            // 请求路径
	IP     string `gorm:"size:50" json:"ip"`               // 操作者IP

	Status   int   `gorm:"not null" json:"status"` // 操作结果状态码：200, 400, 500等
	Duration int64 `json:"duration"`               // 请求耗时（毫秒）
}

// TableName 指定表名
func (AuditLog) TableName() string {
	return "audit_logs"
}

// IsSuccess 操作是否成功
func (a *AuditLog) IsSuccess() bool {
	return a.Status >= 200 && a.Status < 300
}
