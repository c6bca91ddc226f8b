package service

import (
	"context"
	"strings"

	"github.com/bingooyong/apphub/internal/metrics"
	"github.com/bingooyong/apphub/internal/model"
	"github.com/bingooyong/apphub/internal/repository"
	"github.com/bingooyong/apphub/pkg/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ModerationService 应用审核
type ModerationService interface {
	// SetStatus 变更应用审核状态，仅审核员可操作
	SetStatus(ctx context.Context, actor *Actor, appID uuid.UUID, status model.Status, reason string) (*model.AppStatus, error)
	// History 查询应用的状态历史，按时间先后排列
	History(ctx context.Context, actor *Actor, appID uuid.UUID) ([]*model.AppStatus, error)
}

// moderationService 审核服务实现
type moderationService struct {
	store   repository.Store
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewModerationService 创建审核服务实例
func NewModerationService(store repository.Store, metrics *metrics.Metrics, logger *zap.Logger) ModerationService {
	return &moderationService{
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
}

// SetStatus 变更应用审核状态
func (s *moderationService) SetStatus(ctx context.Context, actor *Actor, appID uuid.UUID, status model.Status, reason string) (*model.AppStatus, error) {
	if !actor.IsManager() {
		return nil, errors.ErrForbiddenMsg
	}
	status = model.Status(strings.ToLower(strings.TrimSpace(string(status))))
	if !status.IsValid() {
		return nil, errors.ErrInvalidParamsMsg.WithDetails("invalid status: " + string(status))
	}

	var (
		record *model.AppStatus
		from   model.Status
	)
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		// 锁住应用行，并发的状态变更串行执行
		if _, err := getApp(ctx, tx, s.logger, appID, true); err != nil {
			return err
		}
		current, err := tx.Statuses().Current(ctx, appID)
		if err != nil {
			return err
		}
		from = current.Status
		if !model.CanTransition(from, status) {
			return errors.ErrInvalidStatusTransitionMsg.WithDetails(string(from) + " -> " + string(status))
		}

		record = &model.AppStatus{
			AppID:           appID,
			Status:          status,
			Reason:          reason,
			CreatedByUserID: actor.UserID,
		}
		return tx.Statuses().Append(ctx, record)
	})
	if err != nil {
		return nil, txError(s.logger, "failed to set app status", err)
	}

	s.metrics.RecordTransition(string(status))
	s.logger.Info("app status changed",
		zap.String("app_id", appID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(status)),
		zap.String("moderator", actor.Username),
	)
	return record, nil
}

// History 查询应用的状态历史
func (s *moderationService) History(ctx context.Context, actor *Actor, appID uuid.UUID) ([]*model.AppStatus, error) {
	app, err := getApp(ctx, s.store, s.logger, appID, false)
	if err != nil {
		return nil, err
	}
	allowed, err := canManageApp(ctx, s.store, actor, app)
	if err != nil {
		return nil, dbError(s.logger, "failed to check app access", err)
	}
	if !allowed {
		// 与目录一致，未公开的应用对无关用户表现为不存在
		current, err := s.store.Statuses().Current(ctx, appID)
		if err != nil {
			return nil, dbError(s.logger, "failed to get app status", err)
		}
		if current.Status != model.StatusApproved {
			return nil, errors.ErrAppNotFoundMsg
		}
		return nil, errors.ErrForbiddenMsg
	}

	history, err := s.store.Statuses().History(ctx, appID)
	if err != nil {
		return nil, dbError(s.logger, "failed to list status history", err)
	}
	return history, nil
}
