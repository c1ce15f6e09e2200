package media

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"go-tube-auth/internal/model"
)

var imageMIMEs = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
	"image/bmp":  {},
	"image/tiff": {},
}

// CheckImage sniffs the file's content type and decodes the image header.
// It returns the detected MIME type.
func CheckImage(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	mimeType, err := detectMIME(file)
	if err != nil {
		return "", err
	}
	if _, ok := imageMIMEs[mimeType]; !ok {
		return "", fmt.Errorf("%w: %s", model.ErrInvalidImage, mimeType)
	}

	if _, _, err := image.DecodeConfig(file); err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrInvalidImage, err)
	}

	return mimeType, nil
}

// detectMIME reads the sniffing window and rewinds the file.
func detectMIME(file *os.File) (string, error) {
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read upload: %w", err)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}

	mimeType := http.DetectContentType(buffer[:n])
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return mimeType, nil
}

// ImageExtension returns the lowercased extension of name when it is an image
// type this service accepts, and "" otherwise.
func ImageExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(name)))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tiff", ".tif":
		return ext
	default:
		return ""
	}
}
