package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"go-tube-auth/internal/model"
)

type tokenClaims struct {
	Type model.TokenKind `json:"typ"`
	jwt.RegisteredClaims
}

// TokenIssuer signs access and refresh tokens with separate secrets, so a
// token of one kind never verifies as the other.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenIssuer(accessSecret string, refreshSecret string, accessTTL time.Duration, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

func (i *TokenIssuer) AccessTTL() time.Duration {
	return i.accessTTL
}

func (i *TokenIssuer) RefreshTTL() time.Duration {
	return i.refreshTTL
}

func (i *TokenIssuer) IssueAccess(userID string) (string, error) {
	return i.issue(model.TokenAccess, userID)
}

func (i *TokenIssuer) IssueRefresh(userID string) (string, error) {
	return i.issue(model.TokenRefresh, userID)
}

func (i *TokenIssuer) issue(kind model.TokenKind, userID string) (string, error) {
	secret, ttl := i.policy(kind)
	now := i.now().UTC()

	claims := tokenClaims{
		Type: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

// Verify checks signature, expiry and kind. Failures are one of
// model.ErrTokenExpired, model.ErrInvalidSignature or model.ErrMalformedToken.
func (i *TokenIssuer) Verify(token string, kind model.TokenKind) (model.AuthClaims, error) {
	secret, _ := i.policy(kind)

	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return model.AuthClaims{}, model.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return model.AuthClaims{}, model.ErrInvalidSignature
	default:
		return model.AuthClaims{}, fmt.Errorf("%w: %v", model.ErrMalformedToken, err)
	}

	if claims.Type != kind || claims.Subject == "" {
		return model.AuthClaims{}, model.ErrMalformedToken
	}

	out := model.AuthClaims{UserID: claims.Subject, Type: claims.Type, TokenID: claims.ID}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

func (i *TokenIssuer) policy(kind model.TokenKind) ([]byte, time.Duration) {
	if kind == model.TokenRefresh {
		return i.refreshSecret, i.refreshTTL
	}
	return i.accessSecret, i.accessTTL
}
