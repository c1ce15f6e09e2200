package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go-tube-auth/internal/model"
)

// DiskUploader stores files under root and serves them from publicBase.
type DiskUploader struct {
	root       string
	publicBase string
	now        func() time.Time
}

func NewDiskUploader(root string, publicBase string) (*DiskUploader, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve media root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}

	return &DiskUploader{root: abs, publicBase: publicBase, now: time.Now}, nil
}

func (u *DiskUploader) Root() string {
	return u.root
}

func (u *DiskUploader) Upload(ctx context.Context, localPath string) (string, error) {
	defer removeLocal(localPath)

	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := objectKey(localPath, u.now().UTC())
	target := filepath.Join(u.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create media directory: %w", err)
	}

	if err := os.Rename(localPath, target); err != nil {
		// Rename fails across devices; fall back to a copy.
		if copyErr := copyFile(localPath, target); copyErr != nil {
			return "", fmt.Errorf("%w: store media file: %w", model.ErrUploadFailed, copyErr)
		}
	}

	return publicURL(u.publicBase, key), nil
}

func copyFile(src string, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}
