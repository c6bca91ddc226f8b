// Package service 业务逻辑层
package service

import (
	"context"
	stderrors "errors"

	"github.com/bingooyong/apphub/internal/model"
	"github.com/bingooyong/apphub/internal/repository"
	"github.com/bingooyong/apphub/pkg/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Actor 发起请求的已认证用户
type Actor struct {
	UserID   uuid.UUID
	Username string
	Role     string
}

// IsManager 是否为审核员
func (a *Actor) IsManager() bool {
	return a != nil && a.Role == model.RoleManager
}

// isNotFound 是否为记录不存在
func isNotFound(err error) bool {
	return stderrors.Is(err, gorm.ErrRecordNotFound)
}

// isDuplicate 是否为唯一约束冲突
func isDuplicate(err error) bool {
	return stderrors.Is(err, gorm.ErrDuplicatedKey)
}

// dbError 记录并包装数据库错误
func dbError(logger *zap.Logger, msg string, err error) error {
	logger.Error(msg, zap.Error(err))
	return errors.Wrap(errors.ErrDatabase, "数据库错误", err)
}

// txError 转换事务返回的错误：业务错误原样返回，其余视为数据库错误
func txError(logger *zap.Logger, msg string, err error) error {
	if apiErr, ok := errors.As(err); ok {
		return apiErr
	}
	return dbError(logger, msg, err)
}

// canManageApp 审核员、应用开发者或应用所属组织成员可以管理应用
func canManageApp(ctx context.Context, store repository.Store, actor *Actor, app *model.App) (bool, error) {
	if actor == nil {
		return false, nil
	}
	if actor.IsManager() || actor.UserID == app.DeveloperUserID {
		return true, nil
	}
	return store.Organisations().IsMember(ctx, app.OrganisationID, actor.UserID)
}

// getApp 获取应用，不存在时返回 ErrAppNotFound
func getApp(ctx context.Context, store repository.Store, logger *zap.Logger, appID uuid.UUID, forUpdate bool) (*model.App, error) {
	var (
		app *model.App
		err error
	)
	if forUpdate {
		app, err = store.Apps().GetByIDForUpdate(ctx, appID)
	} else {
		app, err = store.Apps().GetByID(ctx, appID)
	}
	if err != nil {
		if isNotFound(err) {
			return nil, errors.ErrAppNotFoundMsg
		}
		return nil, dbError(logger, "failed to get app", err)
	}
	return app, nil
}
