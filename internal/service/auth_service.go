package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-tube-auth/internal/model"
	"go-tube-auth/pkg/apierror"
)

type RegisterInput struct {
	FullName string
	Username string
	Email    string
	Password string
	// Local temp files, handed over to the uploader. Empty means not supplied.
	AvatarPath     string
	CoverImagePath string
}

type AuthService struct {
	store    UserStore
	hasher   *PasswordHasher
	tokens   *TokenIssuer
	sessions *SessionManager
	uploader MediaUploader
}

func NewAuthService(store UserStore, hasher *PasswordHasher, tokens *TokenIssuer, sessions *SessionManager, uploader MediaUploader) *AuthService {
	return &AuthService{
		store:    store,
		hasher:   hasher,
		tokens:   tokens,
		sessions: sessions,
		uploader: uploader,
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (user model.PublicUser, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.Register")
	defer func() { finishSpan(span, err) }()

	avatarPath, coverPath := in.AvatarPath, in.CoverImagePath
	defer func() { discardTemp(avatarPath, coverPath) }()

	fullName := strings.TrimSpace(in.FullName)
	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.ToLower(strings.TrimSpace(in.Email))
	password := in.Password
	if fullName == "" || username == "" || email == "" || strings.TrimSpace(password) == "" {
		return model.PublicUser{}, apierror.Validation("All fields are required", "fullName, username, email, password")
	}
	if len(password) > MaxPasswordBytes {
		return model.PublicUser{}, passwordTooLong()
	}

	_, err = s.store.FindByUsernameOrEmail(ctx, username, email)
	switch {
	case err == nil:
		return model.PublicUser{}, storeError(model.ErrUserAlreadyExists)
	case !errors.Is(err, model.ErrUserNotFound):
		return model.PublicUser{}, apierror.Internal(err)
	}

	var avatarURL, coverURL string
	if avatarPath != "" {
		path := avatarPath
		avatarPath = ""
		avatarURL, err = s.uploader.Upload(ctx, path)
		if err != nil {
			return model.PublicUser{}, uploadError(err, "Avatar file upload failed")
		}
	}

	if coverPath != "" {
		path := coverPath
		coverPath = ""
		coverURL, err = s.uploader.Upload(ctx, path)
		if err != nil {
			slog.Warn("cover image upload failed, continuing without it", "username", username, "error", err)
			coverURL = ""
		}
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return model.PublicUser{}, apierror.Internal(err)
	}

	now := time.Now().UTC()
	created, err := s.store.Create(ctx, model.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		Avatar:       avatarURL,
		CoverImage:   coverURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return model.PublicUser{}, storeError(err)
	}

	slog.Info("user registered", "user_id", created.ID, "username", created.Username)
	return created.Public(), nil
}

func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (result model.LoginResult, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.Login")
	defer func() { finishSpan(span, err) }()

	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	if username == "" && email == "" {
		return model.LoginResult{}, apierror.Validation("username or email is required", "")
	}
	if req.Password == "" {
		return model.LoginResult{}, apierror.Validation("password is required", "")
	}

	user, err := s.store.FindByUsernameOrEmail(ctx, username, email)
	if errors.Is(err, model.ErrUserNotFound) {
		s.hasher.VerifyDummy(req.Password)
		return model.LoginResult{}, storeError(err)
	}
	if err != nil {
		return model.LoginResult{}, apierror.Internal(err)
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		return model.LoginResult{}, apierror.Wrap(model.ErrInvalidCredentials, apierror.CodeInvalidCredentials,
			"Invalid user credentials", http.StatusUnauthorized)
	}

	pair, err := s.sessions.EstablishSession(ctx, user.ID)
	if err != nil {
		return model.LoginResult{}, storeError(err)
	}

	slog.Info("user logged in", "user_id", user.ID)
	return model.LoginResult{User: user.Public(), AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

func (s *AuthService) Logout(ctx context.Context, userID string) (err error) {
	ctx, span := tracer.Start(ctx, "AuthService.Logout")
	defer func() { finishSpan(span, err) }()

	if err := s.sessions.EndSession(ctx, userID); err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return apierror.Unauthenticated("Unauthorized request")
		}
		return apierror.Internal(err)
	}

	slog.Info("user logged out", "user_id", userID)
	return nil
}

// Refresh rotates the presented refresh token. Every token problem surfaces
// as UNAUTHENTICATED.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (pair model.TokenPair, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.Refresh")
	defer func() { finishSpan(span, err) }()

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return model.TokenPair{}, apierror.Unauthenticated("Unauthorized request")
	}

	pair, err = s.sessions.Rotate(ctx, refreshToken)
	switch {
	case err == nil:
		return pair, nil
	case errors.Is(err, model.ErrTokenExpired):
		return model.TokenPair{}, unauthenticated(err, "Refresh token expired")
	case errors.Is(err, model.ErrStaleRefreshToken):
		return model.TokenPair{}, unauthenticated(err, "Refresh token is expired or used")
	case errors.Is(err, model.ErrInvalidSignature),
		errors.Is(err, model.ErrMalformedToken),
		errors.Is(err, model.ErrUserNotFound):
		return model.TokenPair{}, unauthenticated(err, "Invalid refresh token")
	default:
		return model.TokenPair{}, apierror.Internal(err)
	}
}

// ChangePassword ends the current session once the new hash is stored, so
// tokens issued under the old password stop working.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req model.ChangePasswordRequest) (err error) {
	ctx, span := tracer.Start(ctx, "AuthService.ChangePassword")
	defer func() { finishSpan(span, err) }()

	newPassword := req.NewPassword
	if req.OldPassword == "" || strings.TrimSpace(newPassword) == "" {
		return apierror.Validation("oldPassword and newPassword are required", "")
	}
	if len(newPassword) > MaxPasswordBytes {
		return passwordTooLong()
	}

	user, err := s.store.FindByID(ctx, userID)
	if errors.Is(err, model.ErrUserNotFound) {
		return apierror.Unauthenticated("Unauthorized request")
	}
	if err != nil {
		return apierror.Internal(err)
	}

	if !s.hasher.Verify(req.OldPassword, user.PasswordHash) {
		return apierror.Wrap(model.ErrInvalidCredentials, apierror.CodeInvalidCredentials,
			"Invalid old password", http.StatusBadRequest)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apierror.Internal(err)
	}

	if _, err := s.store.UpdateFields(ctx, user.ID, model.UserUpdate{PasswordHash: &hash}); err != nil {
		return storeError(err)
	}

	if err := s.sessions.EndSession(ctx, user.ID); err != nil {
		return storeError(err)
	}

	slog.Info("password changed", "user_id", user.ID)
	return nil
}

// Authenticate resolves an access token to the live user it was issued for.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (user model.PublicUser, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.Authenticate")
	defer func() { finishSpan(span, err) }()

	if accessToken == "" {
		return model.PublicUser{}, apierror.Unauthenticated("Unauthorized request")
	}

	claims, err := s.tokens.Verify(accessToken, model.TokenAccess)
	if errors.Is(err, model.ErrTokenExpired) {
		return model.PublicUser{}, unauthenticated(err, "Access token expired")
	}
	if err != nil {
		return model.PublicUser{}, unauthenticated(err, "Invalid access token")
	}

	found, err := s.store.FindByID(ctx, claims.UserID)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.PublicUser{}, unauthenticated(err, "Invalid access token")
	}
	if err != nil {
		return model.PublicUser{}, apierror.Internal(err)
	}

	return found.Public(), nil
}

func passwordTooLong() error {
	return apierror.Validation("password is too long", fmt.Sprintf("at most %d bytes", MaxPasswordBytes))
}

func unauthenticated(cause error, message string) error {
	return apierror.Wrap(cause, apierror.CodeUnauthenticated, message, http.StatusUnauthorized)
}

// discardTemp removes upload temp files that never reached the uploader.
func discardTemp(paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to remove upload temp file", "path", path, "error", err)
		}
	}
}
