package repository

import (
	"context"

	"github.com/bingooyong/apphub/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AppRepository 应用数据访问接口
type AppRepository interface {
	// Create 创建应用
	Create(ctx context.Context, app *model.App) error
	// GetByID 根据ID获取应用
	GetByID(ctx context.Context, id uuid.UUID) (*model.App, error)
	// GetByIDForUpdate 根据ID获取应用并加行锁，需在事务中调用
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.App, error)
	// GetBySlug 根据组织与 slug 获取应用
	GetBySlug(ctx context.Context, orgID uuid.UUID, slug string) (*model.App, error)
	// ListByDeveloper 获取开发者名下的应用
	ListByDeveloper(ctx context.Context, developerID uuid.UUID) ([]*model.App, error)
	// UpdateOwner 变更应用的开发者与组织
	UpdateOwner(ctx context.Context, id, developerID, orgID uuid.UUID) error
	// Delete 删除应用及其版本、状态、图片记录，需在事务中调用
	Delete(ctx context.Context, id uuid.UUID) error
}

// appRepository 应用数据访问实现
type appRepository struct {
	db *gorm.DB
}

// NewAppRepository 创建应用数据访问实例
func NewAppRepository(db *gorm.DB) AppRepository {
	return &appRepository{db: db}
}

// Create 创建应用
func (r *appRepository) Create(ctx context.Context, app *model.App) error {
	return r.db.WithContext(ctx).Create(app).Error
}

// GetByID 根据ID获取应用
func (r *appRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.App, error) {
	var app model.App
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

// GetByIDForUpdate 根据ID获取应用并加行锁
// SQLite 不支持 FOR UPDATE，gorm 会忽略该子句，写事务本身已串行
func (r *appRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.App, error) {
	var app model.App
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&app).Error
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// GetBySlug 根据组织与 slug 获取应用
func (r *appRepository) GetBySlug(ctx context.Context, orgID uuid.UUID, slug string) (*model.App, error) {
	var app model.App
	err := r.db.WithContext(ctx).
		Where("organisation_id = ? AND slug = ?", orgID, slug).
		First(&app).Error
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// ListByDeveloper 获取开发者名下的应用
func (r *appRepository) ListByDeveloper(ctx context.Context, developerID uuid.UUID) ([]*model.App, error) {
	var apps []*model.App
	err := r.db.WithContext(ctx).
		Where("developer_user_id = ?", developerID).
		Order("created_at DESC").
		Find(&apps).Error
	return apps, err
}

// UpdateOwner 变更应用的开发者与组织
func (r *appRepository) UpdateOwner(ctx context.Context, id, developerID, orgID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&model.App{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"developer_user_id": developerID,
			"organisation_id":   orgID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete 删除应用
// 按依赖顺序显式删除子表，不依赖数据库的级联配置
func (r *appRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)

	versionIDs := db.Model(&model.AppVersion{}).Select("id").Where("app_id = ?", id)

	var mediaIDs []uuid.UUID
	if err := db.Model(&model.AppMedia{}).Where("app_id = ?", id).Pluck("media_id", &mediaIDs).Error; err != nil {
		return err
	}
	var versionMediaIDs []uuid.UUID
	if err := db.Model(&model.AppVersionMedia{}).Where("app_version_id IN (?)", versionIDs).Pluck("media_id", &versionMediaIDs).Error; err != nil {
		return err
	}
	mediaIDs = append(mediaIDs, versionMediaIDs...)

	steps := []func() error{
		func() error {
			return db.Where("app_version_id IN (?)", versionIDs).Delete(&model.AppVersionMedia{}).Error
		},
		func() error { return db.Where("app_id = ?", id).Delete(&model.AppMedia{}).Error },
		func() error {
			if len(mediaIDs) == 0 {
				return nil
			}
			return db.Where("id IN ?", mediaIDs).Delete(&model.Media{}).Error
		},
		func() error {
			return db.Where("app_version_id IN (?)", versionIDs).Delete(&model.AppChannel{}).Error
		},
		func() error {
			return db.Where("app_version_id IN (?)", versionIDs).Delete(&model.AppVersionLocalised{}).Error
		},
		func() error { return db.Where("app_id = ?", id).Delete(&model.AppVersion{}).Error },
		func() error { return db.Where("app_id = ?", id).Delete(&model.AppStatus{}).Error },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	result := db.Where("id = ?", id).Delete(&model.App{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
