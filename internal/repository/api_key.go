package repository

import (
	"context"

	"github.com/bingooyong/apphub/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// APIKeyRepository API Key 数据访问接口
type APIKeyRepository interface {
	// Create 保存新的 API Key
	Create(ctx context.Context, key *model.APIKey) error
	// GetByID 根据ID获取 API Key
	GetByID(ctx context.Context, id uuid.UUID) (*model.APIKey, error)
	// GetByUserID 获取用户的 API Key
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.APIKey, error)
	// DeleteByUserID 删除用户的 API Key，返回受影响行数
	DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
}

type apiKeyRepository struct {
	db *gorm.DB
}

// NewAPIKeyRepository 创建 API Key 数据访问实例
func NewAPIKeyRepository(db *gorm.DB) APIKeyRepository {
	return &apiKeyRepository{db: db}
}

func (r *apiKeyRepository) Create(ctx context.Context, key *model.APIKey) error {
	return r.db.WithContext(ctx).Create(key).Error
}

func (r *apiKeyRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.APIKey, error) {
	var key model.APIKey
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&key).Error; err != nil {
		return nil, err
	}
	return &key, nil
}

func (r *apiKeyRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.APIKey, error) {
	var key model.APIKey
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&key).Error; err != nil {
		return nil, err
	}
	return &key, nil
}

func (r *apiKeyRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.APIKey{})
	return result.RowsAffected, result.Error
}
