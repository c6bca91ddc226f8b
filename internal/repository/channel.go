package repository

import (
	"context"

	"github.com/bingooyong/apphub/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChannelRepository 发布渠道数据访问接口
type ChannelRepository interface {
	// Create 创建渠道
	Create(ctx context.Context, channel *model.Channel) error
	// GetByID 根据ID获取渠道
	GetByID(ctx context.Context, id uuid.UUID) (*model.Channel, error)
	// GetByName 根据名称获取渠道
	GetByName(ctx context.Context, name string) (*model.Channel, error)
	// List 获取全部渠道
	List(ctx context.Context) ([]*model.Channel, error)
}

// channelRepository 发布渠道数据访问实现
type channelRepository struct {
	db *gorm.DB
}

// NewChannelRepository 创建发布渠道数据访问实例
func NewChannelRepository(db *gorm.DB) ChannelRepository {
	return &channelRepository{db: db}
}

// Create 创建渠道
func (r *channelRepository) Create(ctx context.Context, channel *model.Channel) error {
	return r.db.WithContext(ctx).Create(channel).Error
}

// GetByID 根据ID获取渠道
func (r *channelRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Channel, error) {
	var channel model.Channel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&channel).Error; err != nil {
		return nil, err
	}
	return &channel, nil
}

// GetByName 根据名称获取渠道
func (r *channelRepository) GetByName(ctx context.Context, name string) (*model.Channel, error) {
	var channel model.Channel
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&channel).Error; err != nil {
		return nil, err
	}
	return &channel, nil
}

// List 获取全部渠道
func (r *channelRepository) List(ctx context.Context) ([]*model.Channel, error) {
	var channels []*model.Channel
	err := r.db.WithContext(ctx).Order("name").Find(&channels).Error
	return channels, err
}
