package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go-tube-auth/internal/model"
	"go-tube-auth/pkg/apierror"
)

// UserService covers the profile operations of an authenticated user.
type UserService struct {
	store    UserStore
	uploader MediaUploader
}

func NewUserService(store UserStore, uploader MediaUploader) *UserService {
	return &UserService{store: store, uploader: uploader}
}

func (s *UserService) UpdateAccount(ctx context.Context, userID string, req model.UpdateAccountRequest) (user model.PublicUser, err error) {
	ctx, span := tracer.Start(ctx, "UserService.UpdateAccount")
	defer func() { finishSpan(span, err) }()

	fullName := strings.TrimSpace(req.FullName)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if fullName == "" && email == "" {
		return model.PublicUser{}, apierror.Validation("At least one of fullName or email is required", "")
	}

	update := model.UserUpdate{}
	if fullName != "" {
		update.FullName = &fullName
	}
	if email != "" {
		update.Email = &email
	}

	updated, err := s.store.UpdateFields(ctx, userID, update)
	if err != nil {
		return model.PublicUser{}, storeError(err)
	}
	return updated.Public(), nil
}

func (s *UserService) UpdateAvatar(ctx context.Context, userID string, localPath string) (model.PublicUser, error) {
	return s.replaceImage(ctx, "UserService.UpdateAvatar", userID, localPath, "Avatar", func(u *model.UserUpdate, url *string) {
		u.Avatar = url
	})
}

func (s *UserService) UpdateCoverImage(ctx context.Context, userID string, localPath string) (model.PublicUser, error) {
	return s.replaceImage(ctx, "UserService.UpdateCoverImage", userID, localPath, "Cover image", func(u *model.UserUpdate, url *string) {
		u.CoverImage = url
	})
}

func (s *UserService) replaceImage(ctx context.Context, spanName string, userID string, localPath string, label string, set func(*model.UserUpdate, *string)) (user model.PublicUser, err error) {
	ctx, span := tracer.Start(ctx, spanName)
	defer func() { finishSpan(span, err) }()

	if localPath == "" {
		return model.PublicUser{}, apierror.Validation(label+" file is missing", "")
	}

	url, err := s.uploader.Upload(ctx, localPath)
	if err != nil {
		return model.PublicUser{}, uploadError(err, "Error while uploading "+strings.ToLower(label))
	}

	update := model.UserUpdate{}
	set(&update, &url)
	updated, err := s.store.UpdateFields(ctx, userID, update)
	if err != nil {
		return model.PublicUser{}, storeError(err)
	}
	return updated.Public(), nil
}

// ChannelProfile looks up another user's public profile by username.
func (s *UserService) ChannelProfile(ctx context.Context, username string) (profile model.ChannelProfile, err error) {
	ctx, span := tracer.Start(ctx, "UserService.ChannelProfile")
	defer func() { finishSpan(span, err) }()

	username = strings.TrimSpace(username)
	if username == "" {
		return model.ChannelProfile{}, apierror.Validation("username is missing", "")
	}

	user, err := s.store.FindByUsernameOrEmail(ctx, username, "")
	if errors.Is(err, model.ErrUserNotFound) {
		return model.ChannelProfile{}, apierror.Wrap(err, apierror.CodeNotFound, "Channel does not exist", http.StatusNotFound)
	}
	if err != nil {
		return model.ChannelProfile{}, apierror.Internal(err)
	}

	return model.ChannelProfile{
		ID:         user.ID,
		Username:   user.Username,
		FullName:   user.FullName,
		Avatar:     user.Avatar,
		CoverImage: user.CoverImage,
	}, nil
}

func (s *UserService) WatchHistory(ctx context.Context, userID string) (items []model.WatchedItem, err error) {
	ctx, span := tracer.Start(ctx, "UserService.WatchHistory")
	defer func() { finishSpan(span, err) }()

	items, err = s.store.WatchHistory(ctx, userID)
	if err != nil {
		return nil, apierror.Internal(err)
	}
	return items, nil
}

// RecordWatch appends itemID to the user's history and returns the updated
// list, most recent first.
func (s *UserService) RecordWatch(ctx context.Context, userID string, itemID string) (items []model.WatchedItem, err error) {
	ctx, span := tracer.Start(ctx, "UserService.RecordWatch")
	defer func() { finishSpan(span, err) }()

	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return nil, apierror.Validation("itemId is required", "")
	}

	if err := s.store.AppendWatchHistory(ctx, userID, itemID); err != nil {
		return nil, storeError(err)
	}

	items, err = s.store.WatchHistory(ctx, userID)
	if err != nil {
		return nil, apierror.Internal(err)
	}
	return items, nil
}
