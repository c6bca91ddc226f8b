package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store 仓储集合，绑定到数据库连接或某个事务
// 事务内的所有读写都必须通过回调收到的 Store 进行
type Store interface {
	Users() UserRepository
	Organisations() OrganisationRepository
	Channels() ChannelRepository
	Apps() AppRepository
	Versions() VersionRepository
	Statuses() StatusRepository
	Media() MediaRepository
	AppsView() AppViewRepository
	AuditLogs() AuditLogRepository
	APIKeys() APIKeyRepository

	// Transaction 在单个数据库事务中执行 fn，fn 返回错误或 panic 时整体回滚
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// store Store 的 gorm 实现
type store struct {
	db *gorm.DB
}

// NewStore 创建仓储集合
func NewStore(db *gorm.DB) Store {
	return &store{db: db}
}

func (s *store) Users() UserRepository                 { return NewUserRepository(s.db) }
func (s *store) Organisations() OrganisationRepository { return NewOrganisationRepository(s.db) }
func (s *store) Channels() ChannelRepository           { return NewChannelRepository(s.db) }
func (s *store) Apps() AppRepository                   { return NewAppRepository(s.db) }
func (s *store) Versions() VersionRepository           { return NewVersionRepository(s.db) }
func (s *store) Statuses() StatusRepository            { return NewStatusRepository(s.db) }
func (s *store) Media() MediaRepository                { return NewMediaRepository(s.db) }
func (s *store) AppsView() AppViewRepository           { return NewAppViewRepository(s.db) }
func (s *store) AuditLogs() AuditLogRepository         { return NewAuditLogRepository(s.db) }
func (s *store) APIKeys() APIKeyRepository             { return NewAPIKeyRepository(s.db) }

// Transaction 执行事务
func (s *store) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&store{db: tx})
	})
}
