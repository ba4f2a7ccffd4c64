package fsx

import (
	"context"
	"path/filepath"
	"time"

	"github.com/Abraxas-365/placement/pkg/errx"
)

var fsxErrors = errx.NewRegistry("FSX")

var (
	ErrNotFound    = fsxErrors.Register("NOT_FOUND", errx.TypeNotFound, 404, "File not found")
	ErrInvalidPath = fsxErrors.Register("INVALID_PATH", errx.TypeValidation, 400, "Path escapes the storage root")
	ErrRead        = fsxErrors.Register("READ", errx.TypeExternal, 502, "Failed to read file")
)

// FileInfo represents information about a file
type FileInfo struct {
	Name        string            // Base name of the file
	Size        int64             // File size in bytes
	ModTime     time.Time         // Modification time
	ContentType string            // MIME type (when available)
	Metadata    map[string]string // Additional metadata
}

// FileReader provides read-only access to the blob store campaign
// attachments live in.
type FileReader interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
	Stat(ctx context.Context, path string) (FileInfo, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// NotFound builds the error every backend returns for a missing path.
func NotFound(path string) *errx.Error {
	return fsxErrors.New(ErrNotFound).WithDetail("path", path)
}

// InvalidPath builds the error returned for paths outside the root.
func InvalidPath(path string) *errx.Error {
	return fsxErrors.New(ErrInvalidPath).WithDetail("path", path)
}

// ReadFailed wraps a backend error.
func ReadFailed(path string, cause error) *errx.Error {
	return fsxErrors.NewWithCause(ErrRead, cause).WithDetail("path", path)
}

// ContentTypeOf guesses a MIME type from the file extension.
func ContentTypeOf(path string) string {
	switch filepath.Ext(path) {
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".txt":
		return "text/plain"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".zip":
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}
