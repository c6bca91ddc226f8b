package service

import (
	"context"
	stderrors "errors"
	"unicode/utf8"

	"github.com/bingooyong/apphub/internal/metrics"
	"github.com/bingooyong/apphub/internal/model"
	"github.com/bingooyong/apphub/internal/repository"
	"github.com/bingooyong/apphub/internal/storage"
	"github.com/bingooyong/apphub/pkg/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxCaptionLength 图片说明的最大字符数，与数据库列宽一致
const maxCaptionLength = 255

// MediaUploadInput 图片上传参数
type MediaUploadInput struct {
	VersionID uuid.NullUUID // 为空时为应用级图片
	ImageType model.ImageType
	Caption   string
	Files     []*ImageUpload
}

// MediaService 应用图片管理
type MediaService interface {
	// Upload 上传一张或多张图片
	Upload(ctx context.Context, actor *Actor, appID uuid.UUID, input *MediaUploadInput) ([]*model.MediaView, error)
	// SetLogo 将已有的应用级图片设为 logo，原 logo 降为截图
	SetLogo(ctx context.Context, actor *Actor, appID, mediaID uuid.UUID) error
	// UpdateMeta 修改图片说明
	UpdateMeta(ctx context.Context, actor *Actor, appID, mediaID uuid.UUID, caption string) (*model.MediaView, error)
	// Delete 删除图片
	Delete(ctx context.Context, actor *Actor, appID, mediaID uuid.UUID) error
	// Get 读取图片，未审核通过的应用仅开发者、组织成员与审核员可见，actor 可为空
	Get(ctx context.Context, actor *Actor, mediaID uuid.UUID) (*MediaContent, error)
}

// MediaContent 读取到的图片，调用方负责关闭 File.Body
type MediaContent struct {
	View *model.MediaView
	File *storage.File
	// Public 所属应用已审核通过，内容可被共享缓存
	Public bool
}

// mediaService 图片服务实现
type mediaService struct {
	store   repository.Store
	storage storage.Storage
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewMediaService 创建图片服务实例
func NewMediaService(store repository.Store, storage storage.Storage, metrics *metrics.Metrics, logger *zap.Logger) MediaService {
	return &mediaService{
		store:   store,
		storage: storage,
		metrics: metrics,
		logger:  logger,
	}
}

// Upload 上传图片
func (s *mediaService) Upload(ctx context.Context, actor *Actor, appID uuid.UUID, input *MediaUploadInput) ([]*model.MediaView, error) {
	if input.ImageType == "" {
		input.ImageType = model.ImageTypeScreenshot
	}
	if !input.ImageType.IsValid() {
		return nil, errors.ErrInvalidParamsMsg.WithDetails("invalid imageType: " + string(input.ImageType))
	}
	if len(input.Files) == 0 {
		return nil, errors.ErrInvalidParamsMsg.WithDetails("at least one file is required")
	}
	if utf8.RuneCountInString(input.Caption) > maxCaptionLength {
		return nil, errors.ErrInvalidParamsMsg.WithDetails("caption is too long")
	}
	if input.ImageType == model.ImageTypeLogo {
		if input.VersionID.Valid {
			return nil, errors.ErrInvalidParamsMsg.WithDetails("logo can only be set on the app")
		}
		if len(input.Files) > 1 {
			return nil, errors.ErrInvalidParamsMsg.WithDetails("only one logo can be uploaded")
		}
	}

	mimes := make([]string, len(input.Files))
	for i, f := range input.Files {
		mime, err := detectImage(f.Data)
		if err != nil {
			return nil, err
		}
		mimes[i] = mime
	}

	var (
		views []*model.MediaView
		saved []blobRef
	)
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		app, err := s.authorize(ctx, tx, actor, appID)
		if err != nil {
			return err
		}

		if input.VersionID.Valid {
			version, err := tx.Versions().GetByID(ctx, input.VersionID.UUID)
			if err != nil {
				if isNotFound(err) {
					return errors.ErrVersionNotFoundMsg
				}
				return err
			}
			if version.AppID != app.ID {
				return errors.ErrVersionNotFoundMsg.WithDetails("version does not belong to the app")
			}
		} else if input.ImageType == model.ImageTypeLogo {
			if _, err := tx.Media().ClearAppLogo(ctx, app.ID); err != nil {
				return err
			}
		}

		dir := model.MediaBlobDir(app.ID, input.VersionID)
		for i, f := range input.Files {
			media := &model.Media{
				OriginalFilename: f.Filename,
				MimeType:         mimes[i],
				Size:             int64(len(f.Data)),
				CreatedByUserID:  actor.UserID,
			}
			if err := tx.Media().Create(ctx, media); err != nil {
				return err
			}

			if input.VersionID.Valid {
				err = tx.Media().AddToVersion(ctx, &model.AppVersionMedia{
					AppVersionID: input.VersionID.UUID,
					MediaID:      media.ID,
					ImageType:    input.ImageType,
					Caption:      input.Caption,
				})
			} else {
				err = tx.Media().AddToApp(ctx, &model.AppMedia{
					AppID:     app.ID,
					MediaID:   media.ID,
					ImageType: input.ImageType,
					Caption:   input.Caption,
				})
			}
			if err != nil {
				return err
			}

			if err := s.storage.SaveFile(ctx, dir, media.ID.String(), f.Data); err != nil {
				s.logger.Error("failed to store image", zap.String("dir", dir), zap.Error(err))
				return errors.Wrap(errors.ErrStorage, "保存图片失败", err)
			}
			saved = append(saved, blobRef{dir: dir, name: media.ID.String()})

			views = append(views, &model.MediaView{
				MediaID:          media.ID,
				AppID:            app.ID,
				AppVersionID:     input.VersionID,
				ImageType:        input.ImageType,
				Caption:          input.Caption,
				OriginalFilename: media.OriginalFilename,
				MimeType:         media.MimeType,
				Size:             media.Size,
			})
		}
		return nil
	})
	if err != nil {
		removeBlobs(s.storage, s.logger, saved)
		return nil, txError(s.logger, "failed to upload images", err)
	}

	for range views {
		s.metrics.RecordUpload(metrics.UploadImage)
	}
	s.logger.Info("images uploaded",
		zap.String("app_id", appID.String()),
		zap.Int("count", len(views)),
		zap.String("image_type", string(input.ImageType)),
		zap.String("uploaded_by", actor.Username),
	)
	return views, nil
}

// SetLogo 设置 logo
func (s *mediaService) SetLogo(ctx context.Context, actor *Actor, appID, mediaID uuid.UUID) error {
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := s.authorize(ctx, tx, actor, appID); err != nil {
			return err
		}
		view, err := s.appMedia(ctx, tx, appID, mediaID)
		if err != nil {
			return err
		}
		if view.AppVersionID.Valid {
			return errors.ErrInvalidParamsMsg.WithDetails("version images cannot be used as logo")
		}
		if view.ImageType == model.ImageTypeLogo {
			return nil
		}
		if _, err := tx.Media().ClearAppLogo(ctx, appID); err != nil {
			return err
		}
		return tx.Media().SetAppMediaType(ctx, appID, mediaID, model.ImageTypeLogo)
	})
	if err != nil {
		return txError(s.logger, "failed to set logo", err)
	}

	s.logger.Info("app logo changed", zap.String("app_id", appID.String()), zap.String("media_id", mediaID.String()))
	return nil
}

// UpdateMeta 修改图片说明
func (s *mediaService) UpdateMeta(ctx context.Context, actor *Actor, appID, mediaID uuid.UUID, caption string) (*model.MediaView, error) {
	if utf8.RuneCountInString(caption) > maxCaptionLength {
		return nil, errors.ErrInvalidParamsMsg.WithDetails("caption is too long")
	}

	var view *model.MediaView
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := s.authorize(ctx, tx, actor, appID); err != nil {
			return err
		}
		if _, err := s.appMedia(ctx, tx, appID, mediaID); err != nil {
			return err
		}
		if err := tx.Media().UpdateMeta(ctx, mediaID, caption); err != nil {
			if isNotFound(err) {
				return errors.ErrMediaNotFoundMsg
			}
			return err
		}

		var err error
		view, err = tx.Media().GetView(ctx, mediaID)
		return err
	})
	if err != nil {
		return nil, txError(s.logger, "failed to update image", err)
	}

	s.logger.Info("image updated", zap.String("app_id", appID.String()), zap.String("media_id", mediaID.String()))
	return view, nil
}

// Delete 删除图片
func (s *mediaService) Delete(ctx context.Context, actor *Actor, appID, mediaID uuid.UUID) error {
	var blob blobRef
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := s.authorize(ctx, tx, actor, appID); err != nil {
			return err
		}
		view, err := s.appMedia(ctx, tx, appID, mediaID)
		if err != nil {
			return err
		}
		blob = blobRef{dir: view.BlobDir(), name: mediaID.String()}
		return tx.Media().Delete(ctx, mediaID)
	})
	if err != nil {
		return txError(s.logger, "failed to delete image", err)
	}

	removeBlobs(s.storage, s.logger, []blobRef{blob})
	s.logger.Info("image deleted", zap.String("app_id", appID.String()), zap.String("media_id", mediaID.String()))
	return nil
}

// Get 读取图片
func (s *mediaService) Get(ctx context.Context, actor *Actor, mediaID uuid.UUID) (*MediaContent, error) {
	view, err := s.store.Media().GetView(ctx, mediaID)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.ErrMediaNotFoundMsg
		}
		return nil, dbError(s.logger, "failed to get media", err)
	}

	current, err := s.store.Statuses().Current(ctx, view.AppID)
	if err != nil {
		return nil, dbError(s.logger, "failed to get app status", err)
	}
	public := current.Status == model.StatusApproved
	if !public {
		app, err := getApp(ctx, s.store, s.logger, view.AppID, false)
		if err != nil {
			return nil, err
		}
		allowed, err := canManageApp(ctx, s.store, actor, app)
		if err != nil {
			return nil, dbError(s.logger, "failed to check app access", err)
		}
		// 不暴露未公开应用的图片是否存在
		if !allowed {
			return nil, errors.ErrMediaNotFoundMsg
		}
	}

	file, err := s.storage.GetFile(ctx, view.BlobDir(), mediaID.String())
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return nil, errors.ErrMediaNotFoundMsg.WithDetails("image file is missing")
		}
		s.logger.Error("failed to read image", zap.String("media_id", mediaID.String()), zap.Error(err))
		return nil, errors.Wrap(errors.ErrStorage, "读取图片失败", err)
	}
	return &MediaContent{View: view, File: file, Public: public}, nil
}

// authorize 锁定应用并校验管理权限，无权限时返回 401
func (s *mediaService) authorize(ctx context.Context, tx repository.Store, actor *Actor, appID uuid.UUID) (*model.App, error) {
	app, err := getApp(ctx, tx, s.logger, appID, true)
	if err != nil {
		return nil, err
	}
	allowed, err := canManageApp(ctx, tx, actor, app)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, errors.ErrUnauthorizedMsg.WithDetails("not allowed to manage images of this app")
	}
	return app, nil
}

// appMedia 获取属于该应用的图片
func (s *mediaService) appMedia(ctx context.Context, tx repository.Store, appID, mediaID uuid.UUID) (*model.MediaView, error) {
	view, err := tx.Media().GetView(ctx, mediaID)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.ErrMediaNotFoundMsg
		}
		return nil, err
	}
	if view.AppID != appID {
		return nil, errors.ErrMediaNotFoundMsg
	}
	return view, nil
}
