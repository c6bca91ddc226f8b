package repository

import (
	"context"

	"github.com/bingooyong/apphub/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AppViewFilter apps_view 查询条件，零值字段不参与过滤
type AppViewFilter struct {
	AppID     uuid.UUID
	Status    model.Status
	AppType   model.AppType
	Channel   string
	Languages []string // 需要的语言，通常为请求语言与默认语言

	// MemberUserID 非空时只返回该用户开发的或其所在组织的应用
	MemberUserID uuid.UUID
}

// AppViewRepository apps_view 读模型查询接口
type AppViewRepository interface {
	// List 按条件查询 apps_view 的扁平行
	List(ctx context.Context, filter AppViewFilter) ([]*model.AppViewRow, error)
	// FindDownloadTargets 按组织 slug、本地化 slug 与版本号解析可下载的已审核版本
	FindDownloadTargets(ctx context.Context, orgSlug, appverSlug, version string) ([]*model.DownloadTarget, error)
}

// appViewRepository apps_view 读模型查询实现
type appViewRepository struct {
	db *gorm.DB
}

// NewAppViewRepository 创建 apps_view 查询实例
func NewAppViewRepository(db *gorm.DB) AppViewRepository {
	return &appViewRepository{db: db}
}

// List 按条件查询 apps_view 的扁平行
func (r *appViewRepository) List(ctx context.Context, filter AppViewFilter) ([]*model.AppViewRow, error) {
	query := r.db.WithContext(ctx).Table("apps_view")

	if filter.AppID != uuid.Nil {
		query = query.Where("app_id = ?", filter.AppID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.AppType != "" {
		query = query.Where("app_type = ?", filter.AppType)
	}
	if filter.Channel != "" {
		query = query.Where("channel_name = ?", filter.Channel)
	}
	if len(filter.Languages) > 0 {
		query = query.Where("language_code IN ?", filter.Languages)
	}
	if filter.MemberUserID != uuid.Nil {
		memberOrgs := r.db.Model(&model.UserOrganisation{}).
			Select("organisation_id").
			Where("user_id = ?", filter.MemberUserID)
		query = query.Where("(developer_id = ? OR organisation_id IN (?))", filter.MemberUserID, memberOrgs)
	}

	var rows []*model.AppViewRow
	err := query.Order("app_id").Order("version_id").Order("language_code").Find(&rows).Error
	return rows, err
}

// FindDownloadTargets 解析下载目标
// 视图按图片展开，同一版本可能对应多行，因此按 (app_id, version_id) 去重
func (r *appViewRepository) FindDownloadTargets(ctx context.Context, orgSlug, appverSlug, version string) ([]*model.DownloadTarget, error) {
	var targets []*model.DownloadTarget
	err := r.db.WithContext(ctx).
		Table("apps_view").
		Distinct("app_id", "version_id").
		Where("status = ?", model.StatusApproved).
		Where("language_code = ?", model.DefaultLanguage).
		Where("organisation_slug = ? AND appver_slug = ? AND version = ?", orgSlug, appverSlug, version).
		Find(&targets).Error
	return targets, err
}
