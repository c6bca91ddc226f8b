// Package storage 应用包与图片的二进制存储，支持本地磁盘与 S3 兼容对象存储
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/bingooyong/apphub/internal/config"
	"go.uber.org/zap"
)

// 支持的存储后端
const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

var (
	// ErrNotFound 文件不存在
	ErrNotFound = errors.New("storage: file not found")
	// ErrInvalidKey 目录或文件名非法（为空、包含 .. 或越出根目录）
	ErrInvalidKey = errors.New("storage: invalid key")
)

// File 读取到的文件，调用方负责关闭 Body
type File struct {
	Body          io.ReadCloser
	ContentLength int64
}

// Storage 文件存储接口，文件以 目录/文件名 定位
type Storage interface {
	// SaveFile 保存文件，已存在时覆盖
	SaveFile(ctx context.Context, dir, name string, data []byte) error
	// GetFile 读取文件，不存在时返回 ErrNotFound
	GetFile(ctx context.Context, dir, name string) (*File, error)
	// DeleteFile 删除文件，文件不存在不视为错误
	DeleteFile(ctx context.Context, dir, name string) error
}

// New 根据配置创建存储后端
func New(ctx context.Context, cfg *config.StorageConfig, log *zap.Logger) (Storage, error) {
	switch cfg.Backend {
	case BackendLocal:
		s, err := NewLocal(cfg.Local.Root)
		if err != nil {
			return nil, err
		}
		log.Info("local storage initialized", zap.String("root", s.root))
		return s, nil
	case BackendS3:
		s, err := NewS3(ctx, &cfg.S3)
		if err != nil {
			return nil, err
		}
		log.Info("s3 storage initialized",
			zap.String("bucket", cfg.S3.Bucket),
			zap.String("region", cfg.S3.Region),
			zap.String("endpoint", cfg.S3.Endpoint),
		)
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}

// objectKey 拼接并校验对象键，拒绝空段、. 与 ..
func objectKey(dir, name string) (string, error) {
	if name == "" || strings.Contains(name, "/") {
		return "", ErrInvalidKey
	}
	key := path.Join(dir, name)
	for _, segment := range strings.Split(key, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return "", ErrInvalidKey
		}
	}
	for _, segment := range strings.Split(dir, "/") {
		if segment == ".." {
			return "", ErrInvalidKey
		}
	}
	return key, nil
}
