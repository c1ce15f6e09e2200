package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Uploader publishes a local file and returns its public URL. Implementations
// remove the local file exactly once, whatever the outcome.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// ImageUploader rejects anything that does not decode as an image before it
// reaches the backend.
type ImageUploader struct {
	next Uploader
}

func NewImageUploader(next Uploader) *ImageUploader {
	return &ImageUploader{next: next}
}

func (u *ImageUploader) Upload(ctx context.Context, localPath string) (string, error) {
	if _, err := CheckImage(localPath); err != nil {
		removeLocal(localPath)
		return "", err
	}
	return u.next.Upload(ctx, localPath)
}

// objectKey builds "yyyy/mm/dd/<uuid><ext>" for a stored file.
func objectKey(localPath string, now time.Time) string {
	ext := ImageExtension(localPath)
	return fmt.Sprintf("%04d/%02d/%02d/%s%s", now.Year(), now.Month(), now.Day(), uuid.NewString(), ext)
}

func publicURL(base string, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}

func removeLocal(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to remove local upload", "path", path, "error", err)
	}
}

// SaveTemp writes an incoming upload into dir under a random name that keeps
// the uploaded image extension. The caller owns the returned path.
func SaveTemp(dir string, filename string, write func(*os.File) error) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload temp dir: %w", err)
	}

	file, err := os.CreateTemp(dir, "upload-*"+ImageExtension(filename))
	if err != nil {
		return "", fmt.Errorf("create upload temp file: %w", err)
	}

	path := file.Name()
	writeErr := write(file)
	closeErr := file.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		removeLocal(path)
		return "", err
	}

	return filepath.Clean(path), nil
}
