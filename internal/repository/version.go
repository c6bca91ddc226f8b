package repository

import (
	"context"

	"github.com/bingooyong/apphub/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VersionRepository 应用版本数据访问接口
type VersionRepository interface {
	// Create 创建版本
	Create(ctx context.Context, version *model.AppVersion) error
	// CreateLocalised 创建版本的本地化信息
	CreateLocalised(ctx context.Context, localised *model.AppVersionLocalised) error
	// CreateChannel 创建版本的渠道信息
	CreateChannel(ctx context.Context, channel *model.AppChannel) error
	// GetByID 根据ID获取版本
	GetByID(ctx context.Context, id uuid.UUID) (*model.AppVersion, error)
	// GetByAppAndVersion 根据应用与版本号获取版本
	GetByAppAndVersion(ctx context.Context, appID uuid.UUID, version string) (*model.AppVersion, error)
	// ListByApp 获取应用的全部版本，按创建时间倒序
	ListByApp(ctx context.Context, appID uuid.UUID) ([]*model.AppVersion, error)
	// ListLocalised 获取版本的全部本地化信息
	ListLocalised(ctx context.Context, versionID uuid.UUID) ([]*model.AppVersionLocalised, error)
}

// versionRepository 应用版本数据访问实现
type versionRepository struct {
	db *gorm.DB
}

// NewVersionRepository 创建应用版本数据访问实例
func NewVersionRepository(db *gorm.DB) VersionRepository {
	return &versionRepository{db: db}
}

// Create 创建版本
func (r *versionRepository) Create(ctx context.Context, version *model.AppVersion) error {
	return r.db.WithContext(ctx).Create(version).Error
}

// CreateLocalised 创建版本的本地化信息
func (r *versionRepository) CreateLocalised(ctx context.Context, localised *model.AppVersionLocalised) error {
	return r.db.WithContext(ctx).Create(localised).Error
}

// CreateChannel 创建版本的渠道信息
func (r *versionRepository) CreateChannel(ctx context.Context, channel *model.AppChannel) error {
	return r.db.WithContext(ctx).Create(channel).Error
}

// GetByID 根据ID获取版本
func (r *versionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.AppVersion, error) {
	var version model.AppVersion
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&version).Error; err != nil {
		return nil, err
	}
	return &version, nil
}

// GetByAppAndVersion 根据应用与版本号获取版本
func (r *versionRepository) GetByAppAndVersion(ctx context.Context, appID uuid.UUID, version string) (*model.AppVersion, error) {
	var v model.AppVersion
	err := r.db.WithContext(ctx).
		Where("app_id = ? AND version = ?", appID, version).
		First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListByApp 获取应用的全部版本
func (r *versionRepository) ListByApp(ctx context.Context, appID uuid.UUID) ([]*model.AppVersion, error) {
	var versions []*model.AppVersion
	err := r.db.WithContext(ctx).
		Where("app_id = ?", appID).
		Order("created_at DESC").
		Order("id").
		Find(&versions).Error
	return versions, err
}

// ListLocalised 获取版本的全部本地化信息
func (r *versionRepository) ListLocalised(ctx context.Context, versionID uuid.UUID) ([]*model.AppVersionLocalised, error) {
	var rows []*model.AppVersionLocalised
	err := r.db.WithContext(ctx).
		Where("app_version_id = ?", versionID).
		Order("language_code").
		Find(&rows).Error
	return rows, err
}
