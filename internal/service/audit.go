package service

import (
	"context"
	"time"

	"github.com/bingooyong/apphub/internal/model"
	"github.com/bingooyong/apphub/internal/repository"
	"github.com/bingooyong/apphub/pkg/errors"
	"go.uber.org/zap"
)

// AuditService 审计日志记录、查询与清理
type AuditService interface {
	// Record 写入一条审计日志，失败只记录日志
	Record(ctx context.Context, log *model.AuditLog)
	// Search 查询审计日志，仅审核员可用
	Search(ctx context.Context, actor *Actor, filter repository.AuditLogFilter, page, pageSize int) ([]*model.AuditLog, int64, error)
	// Prune 删除超过保留期的审计日志
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

// auditService 审计日志服务实现
type auditService struct {
	store  repository.Store
	logger *zap.Logger
}

// NewAuditService 创建审计日志服务实例
func NewAuditService(store repository.Store, logger *zap.Logger) AuditService {
	return &auditService{
		store:  store,
		logger: logger,
	}
}

// Record 写入审计日志
func (s *auditService) Record(ctx context.Context, log *model.AuditLog) {
	if err := s.store.AuditLogs().Create(ctx, log); err != nil {
		s.logger.Error("failed to create audit log",
			zap.String("action", log.Action),
			zap.String("username", log.Username),
			zap.Error(err),
		)
	}
}

// Search 查询审计日志
func (s *auditService) Search(ctx context.Context, actor *Actor, filter repository.AuditLogFilter, page, pageSize int) ([]*model.AuditLog, int64, error) {
	if !actor.IsManager() {
		return nil, 0, errors.ErrForbiddenMsg
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	logs, total, err := s.store.AuditLogs().Search(ctx, filter, page, pageSize)
	if err != nil {
		return nil, 0, dbError(s.logger, "failed to search audit logs", err)
	}
	return logs, total, nil
}

// Prune 清理过期审计日志
func (s *auditService) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, errors.ErrInvalidParamsMsg.WithDetails("retention must be positive")
	}

	s.logger.Info("starting audit log cleanup", zap.Duration("retention", retention))
	deleted, err := s.store.AuditLogs().DeleteOlderThan(ctx, retention)
	if err != nil {
		return 0, dbError(s.logger, "failed to prune audit logs", err)
	}

	s.logger.Info("audit log cleanup completed", zap.Int64("deleted", deleted))
	return deleted, nil
}
