package repository

import (
	"context"

	"github.com/bingooyong/apphub/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StatusRepository 应用审核状态数据访问接口，状态只追加
type StatusRepository interface {
	// Append 追加一条状态记录
	Append(ctx context.Context, status *model.AppStatus) error
	// Current 获取应用当前状态（ID 最大的记录）
	Current(ctx context.Context, appID uuid.UUID) (*model.AppStatus, error)
	// History 获取应用的状态历史，按时间顺序
	History(ctx context.Context, appID uuid.UUID) ([]*model.AppStatus, error)
}

// statusRepository 应用审核状态数据访问实现
type statusRepository struct {
	db *gorm.DB
}

// NewStatusRepository 创建应用审核状态数据访问实例
func NewStatusRepository(db *gorm.DB) StatusRepository {
	return &statusRepository{db: db}
}

// Append 追加一条状态记录
func (r *statusRepository) Append(ctx context.Context, status *model.AppStatus) error {
	return r.db.WithContext(ctx).Create(status).Error
}

// Current 获取应用当前状态
func (r *statusRepository) Current(ctx context.Context, appID uuid.UUID) (*model.AppStatus, error) {
	var status model.AppStatus
	err := r.db.WithContext(ctx).
		Where("app_id = ?", appID).
		Order("id DESC").
		First(&status).Error
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// History 获取应用的状态历史
func (r *statusRepository) History(ctx context.Context, appID uuid.UUID) ([]*model.AppStatus, error) {
	var history []*model.AppStatus
	err := r.db.WithContext(ctx).
		Where("app_id = ?", appID).
		Order("id").
		Find(&history).Error
	return history, err
}
