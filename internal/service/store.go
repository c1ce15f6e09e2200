package service

import (
	"context"

	"go-tube-auth/internal/model"
)

// UserStore is the credential store. Every method is atomic for a single
// user record.
type UserStore interface {
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByUsernameOrEmail(ctx context.Context, username string, email string) (model.User, error)
	Create(ctx context.Context, u model.User) (model.User, error)
	UpdateFields(ctx context.Context, id string, update model.UserUpdate) (model.User, error)
	UnsetField(ctx context.Context, id string, field model.UserField) error
	// SwapRefreshToken replaces expected with next, or returns
	// model.ErrStaleRefreshToken when the stored token is no longer expected.
	SwapRefreshToken(ctx context.Context, id string, expected string, next string) error
	AppendWatchHistory(ctx context.Context, userID string, itemID string) error
	WatchHistory(ctx context.Context, userID string) ([]model.WatchedItem, error)
}

// MediaUploader publishes a local file and returns its public URL. The local
// file is removed on every outcome.
type MediaUploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// Locker serializes work on a key across processes.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}
