package media

import (
	"context"
	"os"

	"github.com/stretchr/testify/mock"
)

// MockUploader honours the removal contract so callers' temp-file handling
// can be asserted alongside the recorded calls.
type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) Upload(ctx context.Context, localPath string) (string, error) {
	args := m.Called(ctx, localPath)
	_ = os.Remove(localPath)
	return args.String(0), args.Error(1)
}
