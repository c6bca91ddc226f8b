package service

import (
	"context"
	"strings"

	"github.com/bingooyong/apphub/internal/model"
	"github.com/bingooyong/apphub/internal/repository"
	"github.com/bingooyong/apphub/pkg/errors"
	"github.com/bingooyong/apphub/pkg/slug"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrganisationDetail 组织及其成员
type OrganisationDetail struct {
	*model.Organisation
	Members []*model.User `json:"members"`
}

// OrganisationService 组织服务接口
type OrganisationService interface {
	// List 获取组织列表，name 非空时模糊过滤
	List(ctx context.Context, name string) ([]*model.Organisation, error)
	// Get 获取组织及其成员
	Get(ctx context.Context, id uuid.UUID) (*OrganisationDetail, error)
	// Create 创建组织，创建者自动成为成员
	Create(ctx context.Context, actor *Actor, name string) (*model.Organisation, error)
	// AddMember 按邮箱添加组织成员
	AddMember(ctx context.Context, actor *Actor, orgID uuid.UUID, email string) error
	// Delete 删除组织，仍有应用时拒绝
	Delete(ctx context.Context, actor *Actor, orgID uuid.UUID) error
}

// organisationService 组织服务实现
type organisationService struct {
	store  repository.Store
	logger *zap.Logger
}

// NewOrganisationService 创建组织服务实例
func NewOrganisationService(store repository.Store, logger *zap.Logger) OrganisationService {
	return &organisationService{store: store, logger: logger}
}

// List 获取组织列表
func (s *organisationService) List(ctx context.Context, name string) ([]*model.Organisation, error) {
	orgs, err := s.store.Organisations().List(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, dbError(s.logger, "failed to list organisations", err)
	}
	return orgs, nil
}

// Get 获取组织及其成员
func (s *organisationService) Get(ctx context.Context, id uuid.UUID) (*OrganisationDetail, error) {
	org, err := s.getOrganisation(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	members, err := s.store.Organisations().ListMembers(ctx, id)
	if err != nil {
		return nil, dbError(s.logger, "failed to list organisation members", err)
	}
	return &OrganisationDetail{Organisation: org, Members: members}, nil
}

// Create 创建组织
func (s *organisationService) Create(ctx context.Context, actor *Actor, name string) (*model.Organisation, error) {
	name = strings.TrimSpace(name)
	orgSlug := slug.Make(name)
	if name == "" || orgSlug == "" || len(name) > 100 {
		return nil, errors.ErrInvalidParamsMsg.WithDetails("organisation name must contain letters or digits and be at most 100 characters")
	}

	org := &model.Organisation{
		Name:            name,
		Slug:            orgSlug,
		CreatedByUserID: actor.UserID,
	}
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Organisations().Create(ctx, org); err != nil {
			if isDuplicate(err) {
				return errors.ErrOrganisationAlreadyExistsMsg
			}
			return err
		}
		return tx.Organisations().AddMember(ctx, org.ID, actor.UserID)
	})
	if err != nil {
		return nil, txError(s.logger, "failed to create organisation", err)
	}

	s.logger.Info("organisation created",
		zap.String("organisation_id", org.ID.String()),
		zap.String("slug", org.Slug),
		zap.String("created_by", actor.Username),
	)
	return org, nil
}

// AddMember 按邮箱添加组织成员
func (s *organisationService) AddMember(ctx context.Context, actor *Actor, orgID uuid.UUID, email string) error {
	org, err := s.getOrganisation(ctx, s.store, orgID)
	if err != nil {
		return err
	}

	if !actor.IsManager() && org.CreatedByUserID != actor.UserID {
		isMember, err := s.store.Organisations().IsMember(ctx, orgID, actor.UserID)
		if err != nil {
			return dbError(s.logger, "failed to check membership", err)
		}
		if !isMember {
			return errors.ErrForbiddenMsg.WithDetails("only members can add users to an organisation")
		}
	}

	user, err := s.store.Users().GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if isNotFound(err) {
			return errors.ErrUserNotFoundMsg
		}
		return dbError(s.logger, "failed to get user by email", err)
	}

	if err := s.store.Organisations().AddMember(ctx, orgID, user.ID); err != nil {
		if isDuplicate(err) {
			return errors.ErrAlreadyMemberMsg
		}
		return dbError(s.logger, "failed to add organisation member", err)
	}

	s.logger.Info("organisation member added",
		zap.String("organisation_id", orgID.String()),
		zap.String("user_id", user.ID.String()),
		zap.String("added_by", actor.Username),
	)
	return nil
}

// Delete 删除组织
func (s *organisationService) Delete(ctx context.Context, actor *Actor, orgID uuid.UUID) error {
	if !actor.IsManager() {
		return errors.ErrForbiddenMsg
	}

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := s.getOrganisation(ctx, tx, orgID); err != nil {
			return err
		}
		count, err := tx.Organisations().CountApps(ctx, orgID)
		if err != nil {
			return err
		}
		if count > 0 {
			return errors.ErrOrganisationHasAppsMsg
		}
		return tx.Organisations().Delete(ctx, orgID)
	})
	if err != nil {
		return txError(s.logger, "failed to delete organisation", err)
	}

	s.logger.Info("organisation deleted", zap.String("organisation_id", orgID.String()))
	return nil
}

func (s *organisationService) getOrganisation(ctx context.Context, store repository.Store, id uuid.UUID) (*model.Organisation, error) {
	org, err := store.Organisations().GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.ErrOrganisationNotFoundMsg
		}
		return nil, dbError(s.logger, "failed to get organisation", err)
	}
	return org, nil
}
