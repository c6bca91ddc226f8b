package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Local 本地磁盘存储，所有文件位于 root 之下
type Local struct {
	root string
}

// NewLocal 创建本地磁盘存储，root 不存在时自动创建
func NewLocal(root string) (*Local, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &Local{root: abs}, nil
}

// resolve 将对象键映射为 root 下的绝对路径，越出 root 时返回 ErrInvalidKey
func (l *Local) resolve(dir, name string) (string, error) {
	key, err := objectKey(dir, name)
	if err != nil {
		return "", err
	}
	full := filepath.Join(l.root, filepath.FromSlash(key))
	rel, err := filepath.Rel(l.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrInvalidKey
	}
	return full, nil
}

// SaveFile 保存文件，先写临时文件再重命名，读者不会看到写了一半的文件
func (l *Local) SaveFile(ctx context.Context, dir, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := l.resolve(dir, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

// GetFile 读取文件
func (l *Local) GetFile(ctx context.Context, dir, name string) (*File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := l.resolve(dir, name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	return &File{Body: f, ContentLength: info.Size()}, nil
}

// DeleteFile 删除文件
func (l *Local) DeleteFile(ctx context.Context, dir, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := l.resolve(dir, name)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
