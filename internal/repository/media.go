package repository

import (
	"context"

	"github.com/bingooyong/apphub/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MediaRepository 图片数据访问接口
type MediaRepository interface {
	// Create 创建图片元信息
	Create(ctx context.Context, media *model.Media) error
	// AddToApp 关联为应用级图片
	AddToApp(ctx context.Context, appMedia *model.AppMedia) error
	// AddToVersion 关联为版本级图片
	AddToVersion(ctx context.Context, versionMedia *model.AppVersionMedia) error
	// ClearAppLogo 将应用现有的 logo 降级为截图，返回受影响行数
	ClearAppLogo(ctx context.Context, appID uuid.UUID) (int64, error)
	// SetAppMediaType 修改应用级图片的类型
	SetAppMediaType(ctx context.Context, appID, mediaID uuid.UUID, imageType model.ImageType) error
	// UpdateMeta 修改图片说明，应用级与版本级图片均适用
	UpdateMeta(ctx context.Context, mediaID uuid.UUID, caption string) error
	// GetView 获取单个图片的视图信息
	GetView(ctx context.Context, mediaID uuid.UUID) (*model.MediaView, error)
	// ListByApp 获取应用的全部图片（含版本级）
	ListByApp(ctx context.Context, appID uuid.UUID) ([]*model.MediaView, error)
	// CountLogos 统计应用级 logo 数量
	CountLogos(ctx context.Context, appID uuid.UUID) (int64, error)
	// Delete 删除图片及其关联，需在事务中调用
	Delete(ctx context.Context, mediaID uuid.UUID) error
}

// mediaRepository 图片数据访问实现
type mediaRepository struct {
	db *gorm.DB
}

// NewMediaRepository 创建图片数据访问实例
func NewMediaRepository(db *gorm.DB) MediaRepository {
	return &mediaRepository{db: db}
}

// Create 创建图片元信息
func (r *mediaRepository) Create(ctx context.Context, media *model.Media) error {
	return r.db.WithContext(ctx).Create(media).Error
}

// AddToApp 关联为应用级图片
func (r *mediaRepository) AddToApp(ctx context.Context, appMedia *model.AppMedia) error {
	return r.db.WithContext(ctx).Create(appMedia).Error
}

// AddToVersion 关联为版本级图片
func (r *mediaRepository) AddToVersion(ctx context.Context, versionMedia *model.AppVersionMedia) error {
	return r.db.WithContext(ctx).Create(versionMedia).Error
}

// ClearAppLogo 将应用现有的 logo 降级为截图
func (r *mediaRepository) ClearAppLogo(ctx context.Context, appID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.AppMedia{}).
		Where("app_id = ? AND image_type = ?", appID, model.ImageTypeLogo).
		Update("image_type", model.ImageTypeScreenshot)
	return result.RowsAffected, result.Error
}

// SetAppMediaType 修改应用级图片的类型
func (r *mediaRepository) SetAppMediaType(ctx context.Context, appID, mediaID uuid.UUID, imageType model.ImageType) error {
	result := r.db.WithContext(ctx).
		Model(&model.AppMedia{}).
		Where("app_id = ? AND media_id = ?", appID, mediaID).
		Update("image_type", imageType)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateMeta 修改图片说明
func (r *mediaRepository) UpdateMeta(ctx context.Context, mediaID uuid.UUID, caption string) error {
	db := r.db.WithContext(ctx)
	result := db.Model(&model.AppMedia{}).Where("media_id = ?", mediaID).Update("caption", caption)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	result = db.Model(&model.AppVersionMedia{}).Where("media_id = ?", mediaID).Update("caption", caption)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetView 获取单个图片的视图信息
func (r *mediaRepository) GetView(ctx context.Context, mediaID uuid.UUID) (*model.MediaView, error) {
	var view model.MediaView
	err := r.db.WithContext(ctx).
		Table("app_all_media_view").
		Where("media_id = ?", mediaID).
		Take(&view).Error
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// ListByApp 获取应用的全部图片
func (r *mediaRepository) ListByApp(ctx context.Context, appID uuid.UUID) ([]*model.MediaView, error) {
	var views []*model.MediaView
	err := r.db.WithContext(ctx).
		Table("app_all_media_view").
		Where("app_id = ?", appID).
		Order("media_id").
		Find(&views).Error
	return views, err
}

// CountLogos 统计应用级 logo 数量
func (r *mediaRepository) CountLogos(ctx context.Context, appID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.AppMedia{}).
		Where("app_id = ? AND image_type = ?", appID, model.ImageTypeLogo).
		Count(&count).Error
	return count, err
}

// Delete 删除图片及其关联
func (r *mediaRepository) Delete(ctx context.Context, mediaID uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("media_id = ?", mediaID).Delete(&model.AppMedia{}).Error; err != nil {
		return err
	}
	if err := db.Where("media_id = ?", mediaID).Delete(&model.AppVersionMedia{}).Error; err != nil {
		return err
	}
	result := db.Where("id = ?", mediaID).Delete(&model.Media{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
