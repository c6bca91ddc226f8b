package repository

import (
	"context"
	"strings"

	"github.com/bingooyong/apphub/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrganisationRepository 组织数据访问接口
type OrganisationRepository interface {
	// Create 创建组织
	Create(ctx context.Context, org *model.Organisation) error
	// GetByID 根据ID获取组织
	GetByID(ctx context.Context, id uuid.UUID) (*model.Organisation, error)
	// GetBySlug 根据 slug 获取组织
	GetBySlug(ctx context.Context, slug string) (*model.Organisation, error)
	// GetByName 根据名称获取组织
	GetByName(ctx context.Context, name string) (*model.Organisation, error)
	// List 获取组织列表，name 非空时按名称模糊匹配（忽略大小写）
	List(ctx context.Context, name string) ([]*model.Organisation, error)
	// Delete 删除组织及其成员关系
	Delete(ctx context.Context, id uuid.UUID) error

	// AddMember 添加组织成员
	AddMember(ctx context.Context, orgID, userID uuid.UUID) error
	// IsMember 判断用户是否为组织成员
	IsMember(ctx context.Context, orgID, userID uuid.UUID) (bool, error)
	// ListMembers 获取组织成员
	ListMembers(ctx context.Context, orgID uuid.UUID) ([]*model.User, error)
	// CountApps 统计组织下的应用数量
	CountApps(ctx context.Context, orgID uuid.UUID) (int64, error)
}

// organisationRepository 组织数据访问实现
type organisationRepository struct {
	db *gorm.DB
}

// NewOrganisationRepository 创建组织数据访问实例
func NewOrganisationRepository(db *gorm.DB) OrganisationRepository {
	return &organisationRepository{db: db}
}

// Create 创建组织
func (r *organisationRepository) Create(ctx context.Context, org *model.Organisation) error {
	return r.db.WithContext(ctx).Create(org).Error
}

// GetByID 根据ID获取组织
func (r *organisationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Organisation, error) {
	var org model.Organisation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

// GetBySlug 根据 slug 获取组织
func (r *organisationRepository) GetBySlug(ctx context.Context, slug string) (*model.Organisation, error) {
	var org model.Organisation
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

// GetByName 根据名称获取组织
func (r *organisationRepository) GetByName(ctx context.Context, name string) (*model.Organisation, error) {
	var org model.Organisation
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

// List 获取组织列表
func (r *organisationRepository) List(ctx context.Context, name string) ([]*model.Organisation, error) {
	var orgs []*model.Organisation
	query := r.db.WithContext(ctx).Model(&model.Organisation{})
	if name != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}
	err := query.Order("name").Find(&orgs).Error
	return orgs, err
}

// Delete 删除组织及其成员关系
func (r *organisationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("organisation_id = ?", id).Delete(&model.UserOrganisation{}).Error; err != nil {
		return err
	}
	result := db.Where("id = ?", id).Delete(&model.Organisation{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AddMember 添加组织成员
func (r *organisationRepository) AddMember(ctx context.Context, orgID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Create(&model.UserOrganisation{
		OrganisationID: orgID,
		UserID:         userID,
	}).Error
}

// IsMember 判断用户是否为组织成员
func (r *organisationRepository) IsMember(ctx context.Context, orgID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.UserOrganisation{}).
		Where("organisation_id = ? AND user_id = ?", orgID, userID).
		Count(&count).Error
	return count > 0, err
}

// ListMembers 获取组织成员
func (r *organisationRepository) ListMembers(ctx context.Context, orgID uuid.UUID) ([]*model.User, error) {
	var users []*model.User
	err := r.db.WithContext(ctx).
		Joins("INNER JOIN user_organisation ON user_organisation.user_id = users.id").
		Where("user_organisation.organisation_id = ?", orgID).
		Order("users.username").
		Find(&users).Error
	return users, err
}

// CountApps 统计组织下的应用数量
func (r *organisationRepository) CountApps(ctx context.Context, orgID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.App{}).
		Where("organisation_id = ?", orgID).
		Count(&count).Error
	return count, err
}
