package fsxlocal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Abraxas-365/placement/pkg/errx"
	"github.com/Abraxas-365/placement/pkg/fsx"
)

// LocalFileSystem implements fsx.FileReader using local disk
type LocalFileSystem struct {
	basePath string // Root directory for all files
}

// NewLocalFileSystem creates a new local file system rooted at basePath,
// creating the directory if needed.
func NewLocalFileSystem(basePath string) (*LocalFileSystem, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	return &LocalFileSystem{
		basePath: absPath,
	}, nil
}

func (l *LocalFileSystem) ReadFile(ctx context.Context, path string) ([]byte, error) {
	fullPath, err := l.fullPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fsx.NotFound(path)
		}
		return nil, fsx.ReadFailed(path, err)
	}
	return data, nil
}

func (l *LocalFileSystem) Stat(ctx context.Context, path string) (fsx.FileInfo, error) {
	fullPath, err := l.fullPath(path)
	if err != nil {
		return fsx.FileInfo{}, err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fsx.FileInfo{}, fsx.NotFound(path)
		}
		return fsx.FileInfo{}, fsx.ReadFailed(path, err)
	}
	if info.IsDir() {
		return fsx.FileInfo{}, fsx.NotFound(path)
	}

	return fsx.FileInfo{
		Name:        info.Name(),
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		ContentType: fsx.ContentTypeOf(fullPath),
		Metadata:    make(map[string]string),
	}, nil
}

func (l *LocalFileSystem) Exists(ctx context.Context, path string) (bool, error) {
	_, err := l.Stat(ctx, path)
	if err == nil {
		return true, nil
	}
	if errx.IsCode(err, fsx.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// fullPath resolves path under the base directory and rejects traversal.
func (l *LocalFileSystem) fullPath(path string) (string, error) {
	full := filepath.Join(l.basePath, filepath.Clean("/"+path))
	if full != l.basePath && !strings.HasPrefix(full, l.basePath+string(filepath.Separator)) {
		return "", fsx.InvalidPath(path)
	}
	return full, nil
}

// BasePath returns the root directory.
func (l *LocalFileSystem) BasePath() string {
	return l.basePath
}
