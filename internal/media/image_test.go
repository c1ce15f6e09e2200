package media

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-tube-auth/internal/model"
)

func writePNG(t *testing.T, dir string, name string) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})

	path := filepath.Join(dir, name)
	file, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(file, img))
	require.NoError(t, file.Close())
	return path
}

func TestCheckImage(t *testing.T) {
	dir := t.TempDir()

	mimeType, err := CheckImage(writePNG(t, dir, "avatar.png"))
	require.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)

	textPath := filepath.Join(dir, "notes.png")
	require.NoError(t, os.WriteFile(textPath, []byte("definitely not an image"), 0o644))
	_, err = CheckImage(textPath)
	require.ErrorIs(t, err, model.ErrInvalidImage)

	// PNG signature followed by garbage passes sniffing but fails decoding.
	brokenPath := filepath.Join(dir, "broken.png")
	require.NoError(t, os.WriteFile(brokenPath, []byte("\x89PNG\r\n\x1a\n-garbage-"), 0o644))
	_, err = CheckImage(brokenPath)
	require.ErrorIs(t, err, model.ErrInvalidImage)
}

func TestImageExtension(t *testing.T) {
	tests := map[string]string{
		"photo.JPG":     ".jpg",
		" cover.webp ":  ".webp",
		"scan.tif":      ".tif",
		"archive.zip":   "",
		"no-extension":  "",
		"../../etc.png": ".png",
	}

	for name, want := range tests {
		assert.Equal(t, want, ImageExtension(name), name)
	}
}
