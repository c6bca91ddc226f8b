package repository

import (
	"context"
	"time"

	"github.com/bingooyong/apphub/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditLogFilter 审计日志查询条件
type AuditLogFilter struct {
	UserID uuid.UUID
	Method string
	Action string
	Start  *time.Time
	End    *time.Time
}

// AuditLogRepository 审计日志数据访问接口
type AuditLogRepository interface {
	// Create 创建审计日志
	Create(ctx context.Context, log *model.AuditLog) error
	// Search 多条件搜索审计日志
	Search(ctx context.Context, filter AuditLogFilter, page, pageSize int) ([]*model.AuditLog, int64, error)
	// DeleteOlderThan 删除指定时间之前的审计日志
	DeleteOlderThan(ctx context.Context, duration time.Duration) (int64, error)
}

// auditLogRepository 审计日志数据访问实现
type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository 创建审计日志数据访问实例
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

// Create 创建审计日志
func (r *auditLogRepository) Create(ctx context.Context, log *model.AuditLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// Search 多条件搜索审计日志
func (r *auditLogRepository) Search(ctx context.Context, filter AuditLogFilter, page, pageSize int) ([]*model.AuditLog, int64, error) {
	var logs []*model.AuditLog
	var total int64

	query := r.db.WithContext(ctx).Model(&model.AuditLog{})

	// 构建查询条件
	if filter.UserID != uuid.Nil {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Method != "" {
		query = query.Where("method = ?", filter.Method)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.Start != nil {
		query = query.Where("created_at >= ?", *filter.Start)
	}
	if filter.End != nil {
		query = query.Where("created_at < ?", *filter.End)
	}

	// 计算总数
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 分页查询
	offset := (page - 1) * pageSize
	err := query.
		Offset(offset).
		Limit(pageSize).
		Order("id DESC").
		Find(&logs).Error

	return logs, total, err
}

// DeleteOlderThan 删除指定时间之前的审计日志
func (r *auditLogRepository) DeleteOlderThan(ctx context.Context, duration time.Duration) (int64, error) {
	cutoffTime := time.Now().UTC().Add(-duration)
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoffTime).
		Delete(&model.AuditLog{})
	return result.RowsAffected, result.Error
}
