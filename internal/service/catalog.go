package service

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/bingooyong/apphub/internal/formatter"
	"github.com/bingooyong/apphub/internal/metrics"
	"github.com/bingooyong/apphub/internal/model"
	"github.com/bingooyong/apphub/internal/repository"
	"github.com/bingooyong/apphub/internal/storage"
	"github.com/bingooyong/apphub/pkg/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 下载结果，用于 metrics
const (
	downloadOK        = "ok"
	downloadNotFound  = "not_found"
	downloadAmbiguous = "ambiguous"
	downloadError     = "error"
)

// ListQuery 公开应用列表的查询条件
type ListQuery struct {
	Language string
	Channel  string
	AppType  model.AppType
}

// CatalogService 应用目录查询与下载
type CatalogService interface {
	// List 列出已审核通过的应用
	List(ctx context.Context, query ListQuery, opts formatter.Options) ([]*formatter.App, error)
	// Get 获取单个应用，未通过审核的应用仅开发者、组织成员与审核员可见，actor 可为空
	Get(ctx context.Context, actor *Actor, appID uuid.UUID, lang string, opts formatter.Options) (*formatter.App, error)
	// All 列出全部应用，仅审核员可用，status 为空时不过滤
	All(ctx context.Context, actor *Actor, status model.Status, opts formatter.Options) ([]*formatter.App, error)
	// MyApps 列出调用者开发的或其所在组织的应用
	MyApps(ctx context.Context, actor *Actor, opts formatter.Options) ([]*formatter.App, error)
	// Download 按组织 slug、应用 slug 与版本号读取已审核版本的应用包
	Download(ctx context.Context, orgSlug, appverSlug, version string) (*storage.File, error)
}

// catalogService 应用目录服务实现
type catalogService struct {
	store   repository.Store
	storage storage.Storage
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewCatalogService 创建应用目录服务实例
func NewCatalogService(store repository.Store, storage storage.Storage, metrics *metrics.Metrics, logger *zap.Logger) CatalogService {
	return &catalogService{
		store:   store,
		storage: storage,
		metrics: metrics,
		logger:  logger,
	}
}

// List 列出已审核通过的应用
func (s *catalogService) List(ctx context.Context, query ListQuery, opts formatter.Options) ([]*formatter.App, error) {
	lang := normalizeLanguage(query.Language)
	if query.AppType != "" && !query.AppType.IsValid() {
		return nil, errors.ErrInvalidParamsMsg.WithDetails("invalid type: " + string(query.AppType))
	}

	rows, err := s.store.AppsView().List(ctx, repository.AppViewFilter{
		Status:    model.StatusApproved,
		AppType:   query.AppType,
		Channel:   query.Channel,
		Languages: languages(lang),
	})
	if err != nil {
		return nil, dbError(s.logger, "failed to list apps", err)
	}
	return formatter.Format(rows, lang, opts), nil
}

// Get 获取单个应用
func (s *catalogService) Get(ctx context.Context, actor *Actor, appID uuid.UUID, lang string, opts formatter.Options) (*formatter.App, error) {
	lang = normalizeLanguage(lang)
	rows, err := s.store.AppsView().List(ctx, repository.AppViewFilter{
		AppID:     appID,
		Languages: languages(lang),
	})
	if err != nil {
		return nil, dbError(s.logger, "failed to get app", err)
	}

	apps := formatter.Format(rows, lang, opts)
	if len(apps) == 0 {
		return nil, errors.ErrAppNotFoundMsg
	}
	app := apps[0]

	if app.Status != model.StatusApproved {
		allowed, err := canManageApp(ctx, s.store, actor, &model.App{
			ID:              app.ID,
			DeveloperUserID: app.Developer.ID,
			OrganisationID:  app.Developer.OrganisationID,
		})
		if err != nil {
			return nil, dbError(s.logger, "failed to check app access", err)
		}
		if !allowed {
			return nil, errors.ErrAppNotFoundMsg
		}
	}
	return app, nil
}

// All 列出全部应用
func (s *catalogService) All(ctx context.Context, actor *Actor, status model.Status, opts formatter.Options) ([]*formatter.App, error) {
	if !actor.IsManager() {
		return nil, errors.ErrForbiddenMsg
	}
	if status != "" && !status.IsValid() {
		return nil, errors.ErrInvalidParamsMsg.WithDetails("invalid status: " + string(status))
	}

	rows, err := s.store.AppsView().List(ctx, repository.AppViewFilter{
		Status:    status,
		Languages: languages(model.DefaultLanguage),
	})
	if err != nil {
		return nil, dbError(s.logger, "failed to list apps", err)
	}
	return formatter.Format(rows, model.DefaultLanguage, opts), nil
}

// MyApps 列出调用者相关的应用
func (s *catalogService) MyApps(ctx context.Context, actor *Actor, opts formatter.Options) ([]*formatter.App, error) {
	if actor == nil {
		return nil, errors.ErrUnauthorizedMsg
	}

	rows, err := s.store.AppsView().List(ctx, repository.AppViewFilter{
		MemberUserID: actor.UserID,
		Languages:    languages(model.DefaultLanguage),
	})
	if err != nil {
		return nil, dbError(s.logger, "failed to list apps", err)
	}
	return formatter.Format(rows, model.DefaultLanguage, opts), nil
}

// Download 读取应用包
func (s *catalogService) Download(ctx context.Context, orgSlug, appverSlug, version string) (*storage.File, error) {
	targets, err := s.store.AppsView().FindDownloadTargets(ctx, orgSlug, appverSlug, version)
	if err != nil {
		s.metrics.RecordDownload(downloadError)
		return nil, dbError(s.logger, "failed to resolve download", err)
	}

	switch len(targets) {
	case 0:
		s.metrics.RecordDownload(downloadNotFound)
		return nil, errors.ErrVersionNotFoundMsg
	case 1:
	default:
		s.metrics.RecordDownload(downloadAmbiguous)
		s.logger.Error("download matches more than one version",
			zap.String("organisation", orgSlug),
			zap.String("slug", appverSlug),
			zap.String("version", version),
			zap.Int("matches", len(targets)),
		)
		return nil, errors.ErrAmbiguousDownloadMsg
	}

	target := targets[0]
	file, err := s.storage.GetFile(ctx, model.ArchiveDir(target.AppID, target.VersionID), model.ArchiveName)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			s.metrics.RecordDownload(downloadNotFound)
			s.logger.Warn("app archive is missing",
				zap.String("app_id", target.AppID.String()),
				zap.String("version_id", target.VersionID.String()),
			)
			return nil, errors.ErrArchiveNotFoundMsg
		}
		s.metrics.RecordDownload(downloadError)
		s.logger.Error("failed to read app archive", zap.String("app_id", target.AppID.String()), zap.Error(err))
		return nil, errors.Wrap(errors.ErrStorage, "读取应用包失败", err)
	}

	s.metrics.RecordDownload(downloadOK)
	return file, nil
}

// normalizeLanguage 未指定语言时使用默认语言
func normalizeLanguage(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return model.DefaultLanguage
	}
	return lang
}

// languages 查询所需的语言：请求语言与默认语言
func languages(lang string) []string {
	if lang == model.DefaultLanguage {
		return []string{lang}
	}
	return []string{lang, model.DefaultLanguage}
}
