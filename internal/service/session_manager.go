package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"

	"go-tube-auth/internal/lock"
	"go-tube-auth/internal/model"
)

// SessionManager owns the single refresh token stored per user. Errors are
// the model sentinels; AuthService maps them for callers.
type SessionManager struct {
	store  UserStore
	tokens *TokenIssuer
	locker Locker
}

// NewSessionManager accepts a nil locker; the store's compare-and-swap is
// then the only rotation guard.
func NewSessionManager(store UserStore, tokens *TokenIssuer, locker Locker) *SessionManager {
	return &SessionManager{store: store, tokens: tokens, locker: locker}
}

// EstablishSession mints a pair and overwrites whatever refresh token the
// user had, ending any other session.
func (m *SessionManager) EstablishSession(ctx context.Context, userID string) (model.TokenPair, error) {
	pair, err := m.mint(userID)
	if err != nil {
		return model.TokenPair{}, err
	}

	if _, err := m.store.UpdateFields(ctx, userID, model.UserUpdate{RefreshToken: &pair.RefreshToken}); err != nil {
		return model.TokenPair{}, err
	}

	return pair, nil
}

func (m *SessionManager) EndSession(ctx context.Context, userID string) error {
	return m.store.UnsetField(ctx, userID, model.FieldRefreshToken)
}

// Rotate exchanges the presented refresh token for a new pair. A token that
// is not the one on file fails with model.ErrStaleRefreshToken.
func (m *SessionManager) Rotate(ctx context.Context, presented string) (model.TokenPair, error) {
	claims, err := m.tokens.Verify(presented, model.TokenRefresh)
	if err != nil {
		return model.TokenPair{}, err
	}

	if m.locker != nil {
		release, err := m.locker.Lock(ctx, "rotate:"+claims.UserID)
		if errors.Is(err, lock.ErrNotAcquired) {
			// Another rotation of this session still holds the lock.
			return model.TokenPair{}, fmt.Errorf("%w: %w", model.ErrStaleRefreshToken, err)
		}
		if err != nil {
			return model.TokenPair{}, fmt.Errorf("lock rotation: %w", err)
		}
		defer release()
	}

	user, err := m.store.FindByID(ctx, claims.UserID)
	if err != nil {
		return model.TokenPair{}, err
	}

	if user.RefreshToken == "" || subtle.ConstantTimeCompare([]byte(user.RefreshToken), []byte(presented)) != 1 {
		slog.Warn("refresh token reuse rejected", "user_id", user.ID, "token_id", claims.TokenID)
		return model.TokenPair{}, model.ErrStaleRefreshToken
	}

	pair, err := m.mint(user.ID)
	if err != nil {
		return model.TokenPair{}, err
	}

	if err := m.store.SwapRefreshToken(ctx, user.ID, presented, pair.RefreshToken); err != nil {
		return model.TokenPair{}, err
	}

	return pair, nil
}

func (m *SessionManager) mint(userID string) (model.TokenPair, error) {
	access, err := m.tokens.IssueAccess(userID)
	if err != nil {
		return model.TokenPair{}, err
	}

	refresh, err := m.tokens.IssueRefresh(userID)
	if err != nil {
		return model.TokenPair{}, err
	}

	return model.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(m.tokens.AccessTTL().Seconds()),
	}, nil
}
