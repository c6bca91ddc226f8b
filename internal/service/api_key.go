package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"time"

	"github.com/bingooyong/apphub/internal/model"
	"github.com/bingooyong/apphub/internal/repository"
	"github.com/bingooyong/apphub/pkg/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// apiKeySecretBytes API Key 密钥部分的随机字节数
const apiKeySecretBytes = 32

// APIKeyStatus 用户 API Key 的状态，不含密钥本身
type APIKeyStatus struct {
	HasAPIKey bool       `json:"hasApiKey"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// GeneratedAPIKey 新生成的 API Key，明文只在生成时返回一次
type GeneratedAPIKey struct {
	APIKey    string    `json:"apiKey"`
	CreatedAt time.Time `json:"createdAt"`
}

// APIKeyService 用户 API Key 管理，供脚本与 CI 上传应用使用
type APIKeyService interface {
	// Generate 生成新的 API Key，已有的 Key 立即失效
	Generate(ctx context.Context, actor *Actor) (*GeneratedAPIKey, error)
	// Status 查询当前用户是否已有 API Key
	Status(ctx context.Context, actor *Actor) (*APIKeyStatus, error)
	// Delete 删除当前用户的 API Key
	Delete(ctx context.Context, actor *Actor) error
	// Authenticate 校验 API Key，返回其所属的活跃用户
	Authenticate(ctx context.Context, key string) (*model.User, error)
}

type apiKeyService struct {
	store  repository.Store
	logger *zap.Logger
}

// NewAPIKeyService 创建 API Key 服务实例
func NewAPIKeyService(store repository.Store, logger *zap.Logger) APIKeyService {
	return &apiKeyService{
		store:  store,
		logger: logger,
	}
}

// Generate 生成 API Key，格式为 <keyID>.<secret>，数据库只保存 secret 的哈希
func (s *apiKeyService) Generate(ctx context.Context, actor *Actor) (*GeneratedAPIKey, error) {
	if actor == nil {
		return nil, errors.ErrUnauthorizedMsg
	}

	raw := make([]byte, apiKeySecretBytes)
	if _, err := rand.Read(raw); err != nil {
		s.logger.Error("failed to generate api key", zap.Error(err))
		return nil, errors.Wrap(errors.ErrInternalServer, "生成 API Key 失败", err)
	}
	secret := base64.RawURLEncoding.EncodeToString(raw)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash api key", zap.Error(err))
		return nil, errors.Wrap(errors.ErrInternalServer, "生成 API Key 失败", err)
	}

	key := &model.APIKey{
		ID:      uuid.New(),
		UserID:  actor.UserID,
		KeyHash: string(hash),
	}
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := tx.APIKeys().DeleteByUserID(ctx, actor.UserID); err != nil {
			return err
		}
		return tx.APIKeys().Create(ctx, key)
	})
	if err != nil {
		return nil, txError(s.logger, "failed to save api key", err)
	}

	s.logger.Info("api key generated", zap.String("user_id", actor.UserID.String()), zap.String("key_id", key.ID.String()))
	return &GeneratedAPIKey{
		APIKey:    key.ID.String() + "." + secret,
		CreatedAt: key.CreatedAt,
	}, nil
}

// Status 查询 API Key 状态
func (s *apiKeyService) Status(ctx context.Context, actor *Actor) (*APIKeyStatus, error) {
	if actor == nil {
		return nil, errors.ErrUnauthorizedMsg
	}

	key, err := s.store.APIKeys().GetByUserID(ctx, actor.UserID)
	if err != nil {
		if isNotFound(err) {
			return &APIKeyStatus{}, nil
		}
		return nil, dbError(s.logger, "failed to get api key", err)
	}
	return &APIKeyStatus{HasAPIKey: true, CreatedAt: &key.CreatedAt}, nil
}

// Delete 删除 API Key
func (s *apiKeyService) Delete(ctx context.Context, actor *Actor) error {
	if actor == nil {
		return errors.ErrUnauthorizedMsg
	}

	affected, err := s.store.APIKeys().DeleteByUserID(ctx, actor.UserID)
	if err != nil {
		return dbError(s.logger, "failed to delete api key", err)
	}
	if affected == 0 {
		return errors.ErrAPIKeyNotFoundMsg
	}

	s.logger.Info("api key deleted", zap.String("user_id", actor.UserID.String()))
	return nil
}

// Authenticate 校验 API Key
func (s *apiKeyService) Authenticate(ctx context.Context, key string) (*model.User, error) {
	rawID, secret, ok := strings.Cut(key, ".")
	if !ok || secret == "" {
		return nil, errors.ErrInvalidAPIKeyMsg
	}
	keyID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, errors.ErrInvalidAPIKeyMsg
	}

	stored, err := s.store.APIKeys().GetByID(ctx, keyID)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.ErrInvalidAPIKeyMsg
		}
		return nil, dbError(s.logger, "failed to get api key", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.KeyHash), []byte(secret)); err != nil {
		return nil, errors.ErrInvalidAPIKeyMsg
	}

	user, err := s.store.Users().GetByID(ctx, stored.UserID)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.ErrInvalidAPIKeyMsg
		}
		return nil, dbError(s.logger, "failed to get user", err)
	}
	if !user.IsActive() {
		return nil, errors.ErrUserDisabledMsg
	}
	return user, nil
}
