package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"regexp"
	"strings"

	"github.com/bingooyong/apphub/internal/config"
	"github.com/bingooyong/apphub/internal/metrics"
	"github.com/bingooyong/apphub/internal/model"
	"github.com/bingooyong/apphub/internal/repository"
	"github.com/bingooyong/apphub/internal/storage"
	"github.com/bingooyong/apphub/pkg/errors"
	"github.com/bingooyong/apphub/pkg/slug"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// languageCodePattern 语言代码，如 en、fr、pt_BR
var languageCodePattern = regexp.MustCompile(`^[a-z]{2,3}([_-][A-Za-z]{2,4})?$`)

// ImageUpload 上传的图片
type ImageUpload struct {
	Filename string
	Data     []byte
}

// VersionInput 新版本的元信息与应用包
type VersionInput struct {
	Version            string
	Name               string
	Description        string
	LanguageCode       string
	Channel            string
	MinPlatformVersion string
	MaxPlatformVersion string
	SourceURL          string
	DemoURL            string
	Archive            []byte
}

// CreateAppInput 上传应用的输入，同名应用已存在时追加版本
type CreateAppInput struct {
	VersionInput
	AppType        model.AppType
	OrganisationID uuid.UUID
	Logo           *ImageUpload
}

// UploadResult 上传结果
type UploadResult struct {
	App     *model.App        `json:"app"`
	Version *model.AppVersion `json:"version"`
	Status  model.Status      `json:"status"`
	Created bool              `json:"created"` // 是否新建了应用
}

// AppService 应用创建、版本追加、删除与归属变更
type AppService interface {
	// Create 上传应用：组织内不存在同 slug 应用时新建（状态 pending），否则追加版本
	Create(ctx context.Context, actor *Actor, input *CreateAppInput) (*UploadResult, error)
	// AddVersion 为已有应用追加版本
	AddVersion(ctx context.Context, actor *Actor, appID uuid.UUID, input *VersionInput) (*UploadResult, error)
	// Delete 删除应用及其全部版本、状态与图片
	Delete(ctx context.Context, actor *Actor, appID uuid.UUID) error
	// TransferOwnership 变更应用的组织与开发者，仅审核员可操作
	TransferOwnership(ctx context.Context, actor *Actor, appID, orgID, developerID uuid.UUID) (*model.App, error)
}

// appService 应用服务实现
type appService struct {
	store      repository.Store
	storage    storage.Storage
	metrics    *metrics.Metrics
	moderation config.ModerationConfig
	logger     *zap.Logger
}

// NewAppService 创建应用服务实例
func NewAppService(
	store repository.Store,
	storage storage.Storage,
	metrics *metrics.Metrics,
	moderation config.ModerationConfig,
	logger *zap.Logger,
) AppService {
	return &appService{
		store:      store,
		storage:    storage,
		metrics:    metrics,
		moderation: moderation,
		logger:     logger,
	}
}

// Create 上传应用
func (s *appService) Create(ctx context.Context, actor *Actor, input *CreateAppInput) (*UploadResult, error) {
	if input.AppType == "" {
		input.AppType = model.AppTypeApp
	}
	if !input.AppType.IsValid() {
		return nil, errors.ErrInvalidParamsMsg.WithDetails("invalid appType: " + string(input.AppType))
	}
	if err := normalizeVersionInput(&input.VersionInput); err != nil {
		return nil, err
	}
	appSlug := slug.Make(input.Name)
	if appSlug == "" || len(appSlug) > 100 {
		return nil, errors.ErrInvalidParamsMsg.WithDetails("name must contain letters or digits and be at most 100 characters")
	}

	var logoMime string
	if input.Logo != nil {
		mime, err := detectImage(input.Logo.Data)
		if err != nil {
			return nil, err
		}
		logoMime = mime
	}

	// 调用者必须是组织成员
	if _, err := s.store.Organisations().GetByID(ctx, input.OrganisationID); err != nil {
		if isNotFound(err) {
			return nil, errors.ErrOrganisationNotFoundMsg
		}
		return nil, dbError(s.logger, "failed to get organisation", err)
	}
	if !actor.IsManager() {
		isMember, err := s.store.Organisations().IsMember(ctx, input.OrganisationID, actor.UserID)
		if err != nil {
			return nil, dbError(s.logger, "failed to check membership", err)
		}
		if !isMember {
			return nil, errors.ErrNotOrganisationMemberMsg
		}
	}

	result := &UploadResult{}
	var saved []blobRef
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		app, err := tx.Apps().GetBySlug(ctx, input.OrganisationID, appSlug)
		switch {
		case err == nil:
			// 同名应用已存在：加锁后追加版本
			app, err = tx.Apps().GetByIDForUpdate(ctx, app.ID)
			if err != nil {
				return err
			}
		case isNotFound(err):
			app = &model.App{
				Type:            input.AppType,
				Slug:            appSlug,
				DeveloperUserID: actor.UserID,
				OrganisationID:  input.OrganisationID,
				CreatedByUserID: actor.UserID,
			}
			if err := tx.Apps().Create(ctx, app); err != nil {
				if isDuplicate(err) {
					return errors.ErrAppAlreadyExistsMsg
				}
				return err
			}
			if err := tx.Statuses().Append(ctx, &model.AppStatus{
				AppID:           app.ID,
				Status:          model.StatusPending,
				CreatedByUserID: actor.UserID,
			}); err != nil {
				return err
			}
			result.Created = true
		default:
			return err
		}

		if input.Logo != nil {
			ref, err := s.attachLogo(ctx, tx, actor, app, input.Logo, logoMime)
			if ref != nil {
				saved = append(saved, *ref)
			}
			if err != nil {
				return err
			}
		}

		result.App = app
		return s.appendVersion(ctx, tx, actor, app, &input.VersionInput, result, &saved)
	})
	if err != nil {
		s.cleanupBlobs(saved)
		return nil, txError(s.logger, "failed to upload app", err)
	}

	s.metrics.RecordUpload(metrics.UploadArchive)
	if input.Logo != nil {
		s.metrics.RecordUpload(metrics.UploadImage)
	}
	s.logger.Info("app uploaded",
		zap.String("app_id", result.App.ID.String()),
		zap.String("version", result.Version.Version),
		zap.Bool("new_app", result.Created),
		zap.String("status", string(result.Status)),
		zap.String("uploaded_by", actor.Username),
	)
	return result, nil
}

// AddVersion 为已有应用追加版本
func (s *appService) AddVersion(ctx context.Context, actor *Actor, appID uuid.UUID, input *VersionInput) (*UploadResult, error) {
	if err := normalizeVersionInput(input); err != nil {
		return nil, err
	}

	result := &UploadResult{}
	var saved []blobRef
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		app, err := getApp(ctx, tx, s.logger, appID, true)
		if err != nil {
			return err
		}
		allowed, err := canManageApp(ctx, tx, actor, app)
		if err != nil {
			return err
		}
		if !allowed {
			return errors.ErrForbiddenMsg
		}
		result.App = app
		return s.appendVersion(ctx, tx, actor, app, input, result, &saved)
	})
	if err != nil {
		s.cleanupBlobs(saved)
		return nil, txError(s.logger, "failed to add version", err)
	}

	s.metrics.RecordUpload(metrics.UploadArchive)
	s.logger.Info("app version added",
		zap.String("app_id", appID.String()),
		zap.String("version", result.Version.Version),
		zap.String("status", string(result.Status)),
		zap.String("uploaded_by", actor.Username),
	)
	return result, nil
}

// appendVersion 在事务内写入版本、本地化、渠道与应用包，并按策略调整审核状态
// 应用包最后写入，存储失败时整个事务回滚
func (s *appService) appendVersion(
	ctx context.Context,
	tx repository.Store,
	actor *Actor,
	app *model.App,
	input *VersionInput,
	result *UploadResult,
	saved *[]blobRef,
) error {
	channel, err := tx.Channels().GetByName(ctx, input.Channel)
	if err != nil {
		if isNotFound(err) {
			return errors.ErrChannelNotFoundMsg.WithDetails(input.Channel)
		}
		return err
	}

	if _, err := tx.Versions().GetByAppAndVersion(ctx, app.ID, input.Version); err == nil {
		return errors.ErrVersionAlreadyExistsMsg.WithDetails(input.Version)
	} else if !isNotFound(err) {
		return err
	}

	sum := sha256.Sum256(input.Archive)
	version := &model.AppVersion{
		AppID:           app.ID,
		Version:         input.Version,
		SourceURL:       input.SourceURL,
		DemoURL:         input.DemoURL,
		Sha256:          hex.EncodeToString(sum[:]),
		Size:            int64(len(input.Archive)),
		CreatedByUserID: actor.UserID,
	}
	if err := tx.Versions().Create(ctx, version); err != nil {
		if isDuplicate(err) {
			return errors.ErrVersionAlreadyExistsMsg.WithDetails(input.Version)
		}
		return err
	}

	// 英文本地化必须存在，且 slug 与应用 slug 一致，下载地址依赖这一点
	localised := []*model.AppVersionLocalised{{
		AppVersionID: version.ID,
		LanguageCode: model.DefaultLanguage,
		Name:         input.Name,
		Description:  input.Description,
		Slug:         app.Slug,
	}}
	if input.LanguageCode != model.DefaultLanguage {
		localised = append(localised, &model.AppVersionLocalised{
			AppVersionID: version.ID,
			LanguageCode: input.LanguageCode,
			Name:         input.Name,
			Description:  input.Description,
			Slug:         slug.Make(input.Name),
		})
	}
	for _, l := range localised {
		if err := tx.Versions().CreateLocalised(ctx, l); err != nil {
			return err
		}
	}

	if err := tx.Versions().CreateChannel(ctx, &model.AppChannel{
		AppVersionID:       version.ID,
		ChannelID:          channel.ID,
		MinPlatformVersion: input.MinPlatformVersion,
		MaxPlatformVersion: input.MaxPlatformVersion,
	}); err != nil {
		return err
	}

	status, err := s.applyVersionStatusPolicy(ctx, tx, actor, app)
	if err != nil {
		return err
	}

	dir := model.ArchiveDir(app.ID, version.ID)
	if err := s.storage.SaveFile(ctx, dir, model.ArchiveName, input.Archive); err != nil {
		s.logger.Error("failed to store app archive", zap.String("dir", dir), zap.Error(err))
		return errors.Wrap(errors.ErrStorage, "保存应用包失败", err)
	}
	*saved = append(*saved, blobRef{dir: dir, name: model.ArchiveName})

	result.Version = version
	result.Status = status
	return nil
}

// applyVersionStatusPolicy 新版本对审核状态的影响：
// rejected 的应用重新进入 pending；approved 的应用仅在配置要求时回到 pending
func (s *appService) applyVersionStatusPolicy(ctx context.Context, tx repository.Store, actor *Actor, app *model.App) (model.Status, error) {
	current, err := tx.Statuses().Current(ctx, app.ID)
	if err != nil {
		return "", err
	}

	resubmit := current.Status == model.StatusRejected ||
		(current.Status == model.StatusApproved && s.moderation.ResetApprovalOnNewVersion)
	if !resubmit {
		return current.Status, nil
	}

	if err := tx.Statuses().Append(ctx, &model.AppStatus{
		AppID:           app.ID,
		Status:          model.StatusPending,
		Reason:          "new version uploaded",
		CreatedByUserID: actor.UserID,
	}); err != nil {
		return "", err
	}
	return model.StatusPending, nil
}

// attachLogo 保存 logo 并替换应用现有的 logo
func (s *appService) attachLogo(ctx context.Context, tx repository.Store, actor *Actor, app *model.App, logo *ImageUpload, mime string) (*blobRef, error) {
	media := &model.Media{
		OriginalFilename: logo.Filename,
		MimeType:         mime,
		Size:             int64(len(logo.Data)),
		CreatedByUserID:  actor.UserID,
	}
	if err := tx.Media().Create(ctx, media); err != nil {
		return nil, err
	}
	if _, err := tx.Media().ClearAppLogo(ctx, app.ID); err != nil {
		return nil, err
	}
	if err := tx.Media().AddToApp(ctx, &model.AppMedia{
		AppID:     app.ID,
		MediaID:   media.ID,
		ImageType: model.ImageTypeLogo,
	}); err != nil {
		return nil, err
	}

	dir := model.MediaBlobDir(app.ID, uuid.NullUUID{})
	if err := s.storage.SaveFile(ctx, dir, media.ID.String(), logo.Data); err != nil {
		s.logger.Error("failed to store logo", zap.String("dir", dir), zap.Error(err))
		return nil, errors.Wrap(errors.ErrStorage, "保存图片失败", err)
	}
	return &blobRef{dir: dir, name: media.ID.String()}, nil
}

// Delete 删除应用
func (s *appService) Delete(ctx context.Context, actor *Actor, appID uuid.UUID) error {
	var blobs []blobRef
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		app, err := getApp(ctx, tx, s.logger, appID, true)
		if err != nil {
			return err
		}
		if !actor.IsManager() && actor.UserID != app.DeveloperUserID {
			return errors.ErrForbiddenMsg
		}

		versions, err := tx.Versions().ListByApp(ctx, appID)
		if err != nil {
			return err
		}
		for _, v := range versions {
			blobs = append(blobs, blobRef{dir: model.ArchiveDir(appID, v.ID), name: model.ArchiveName})
		}
		media, err := tx.Media().ListByApp(ctx, appID)
		if err != nil {
			return err
		}
		for _, m := range media {
			blobs = append(blobs, blobRef{dir: m.BlobDir(), name: m.MediaID.String()})
		}

		return tx.Apps().Delete(ctx, appID)
	})
	if err != nil {
		return txError(s.logger, "failed to delete app", err)
	}

	// 数据库已提交，文件删除失败只记录日志
	s.cleanupBlobs(blobs)

	s.logger.Info("app deleted", zap.String("app_id", appID.String()), zap.String("deleted_by", actor.Username))
	return nil
}

// TransferOwnership 变更应用归属
func (s *appService) TransferOwnership(ctx context.Context, actor *Actor, appID, orgID, developerID uuid.UUID) (*model.App, error) {
	if !actor.IsManager() {
		return nil, errors.ErrForbiddenMsg
	}

	var app *model.App
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		app, err = getApp(ctx, tx, s.logger, appID, true)
		if err != nil {
			return err
		}
		if _, err := tx.Organisations().GetByID(ctx, orgID); err != nil {
			if isNotFound(err) {
				return errors.ErrOrganisationNotFoundMsg
			}
			return err
		}
		if _, err := tx.Users().GetByID(ctx, developerID); err != nil {
			if isNotFound(err) {
				return errors.ErrUserNotFoundMsg
			}
			return err
		}
		isMember, err := tx.Organisations().IsMember(ctx, orgID, developerID)
		if err != nil {
			return err
		}
		if !isMember {
			return errors.ErrNotOrganisationMemberMsg.WithDetails("developer must be a member of the target organisation")
		}
		if err := tx.Apps().UpdateOwner(ctx, appID, developerID, orgID); err != nil {
			if isDuplicate(err) {
				return errors.ErrAppAlreadyExistsMsg.WithDetails("target organisation already has an app with slug " + app.Slug)
			}
			return err
		}
		app.DeveloperUserID = developerID
		app.OrganisationID = orgID
		return nil
	})
	if err != nil {
		return nil, txError(s.logger, "failed to transfer app ownership", err)
	}

	s.logger.Info("app ownership transferred",
		zap.String("app_id", appID.String()),
		zap.String("organisation_id", orgID.String()),
		zap.String("developer_id", developerID.String()),
	)
	return app, nil
}

// blobRef 已写入存储的文件
type blobRef struct {
	dir  string
	name string
}

// cleanupBlobs 尽力删除文件，失败只记录日志
func (s *appService) cleanupBlobs(blobs []blobRef) {
	removeBlobs(s.storage, s.logger, blobs)
}

func removeBlobs(store storage.Storage, logger *zap.Logger, blobs []blobRef) {
	for _, b := range blobs {
		// 调用方的 ctx 可能已取消，清理使用独立的 ctx
		if err := store.DeleteFile(context.Background(), b.dir, b.name); err != nil {
			logger.Warn("failed to remove blob", zap.String("dir", b.dir), zap.String("name", b.name), zap.Error(err))
		}
	}
}

// normalizeVersionInput 校验并补全版本输入
func normalizeVersionInput(input *VersionInput) error {
	input.Version = strings.TrimSpace(input.Version)
	input.Name = strings.TrimSpace(input.Name)
	input.Channel = strings.TrimSpace(input.Channel)
	input.LanguageCode = strings.TrimSpace(input.LanguageCode)

	if input.Version == "" || len(input.Version) > 50 || strings.ContainsAny(input.Version, "/\\") {
		return errors.ErrInvalidVersionMsg.WithDetails("version must be 1-50 characters without slashes")
	}
	if input.Name == "" {
		return errors.ErrInvalidParamsMsg.WithDetails("name is required")
	}
	if len(input.Archive) == 0 {
		return errors.ErrInvalidParamsMsg.WithDetails("app archive is required")
	}
	if input.Channel == "" {
		input.Channel = model.DefaultChannel
	}
	if input.LanguageCode == "" {
		input.LanguageCode = model.DefaultLanguage
	}
	if !languageCodePattern.MatchString(input.LanguageCode) {
		return errors.ErrInvalidParamsMsg.WithDetails("invalid languageCode: " + input.LanguageCode)
	}
	return nil
}

// detectImage 根据内容判断是否为图片，返回 MIME 类型
func detectImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.ErrInvalidImageMsg.WithDetails("empty file")
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "", errors.ErrInvalidImageMsg.WithDetails("unsupported content type " + mime)
	}
	return mime, nil
}
