package service

import (
	"context"
	"strings"

	"github.com/bingooyong/apphub/internal/model"
	"github.com/bingooyong/apphub/internal/repository"
	"github.com/bingooyong/apphub/pkg/errors"
	"go.uber.org/zap"
)

// ChannelService 发布渠道服务接口
type ChannelService interface {
	// List 获取全部渠道
	List(ctx context.Context) ([]*model.Channel, error)
	// Create 创建渠道，仅审核员可操作
	Create(ctx context.Context, actor *Actor, name string) (*model.Channel, error)
}

// channelService 发布渠道服务实现
type channelService struct {
	store  repository.Store
	logger *zap.Logger
}

// NewChannelService 创建发布渠道服务实例
func NewChannelService(store repository.Store, logger *zap.Logger) ChannelService {
	return &channelService{store: store, logger: logger}
}

// List 获取全部渠道
func (s *channelService) List(ctx context.Context) ([]*model.Channel, error) {
	channels, err := s.store.Channels().List(ctx)
	if err != nil {
		return nil, dbError(s.logger, "failed to list channels", err)
	}
	return channels, nil
}

// Create 创建渠道
func (s *channelService) Create(ctx context.Context, actor *Actor, name string) (*model.Channel, error) {
	if !actor.IsManager() {
		return nil, errors.ErrForbiddenMsg
	}
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 50 {
		return nil, errors.ErrInvalidParamsMsg.WithDetails("channel name must be 1-50 characters")
	}

	channel := &model.Channel{Name: name}
	if err := s.store.Channels().Create(ctx, channel); err != nil {
		if isDuplicate(err) {
			return nil, errors.ErrChannelAlreadyExistsMsg
		}
		return nil, dbError(s.logger, "failed to create channel", err)
	}

	s.logger.Info("channel created", zap.String("name", name), zap.String("created_by", actor.Username))
	return channel, nil
}
