package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-tube-auth/internal/model"
)

func TestTokenIssuerRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer(testAccessSecret, testRefreshSecret, time.Minute, time.Hour)

	for i := 0; i < 5; i++ {
		userID := uuid.NewString()

		access, err := issuer.IssueAccess(userID)
		require.NoError(t, err)
		claims, err := issuer.Verify(access, model.TokenAccess)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
		assert.Equal(t, model.TokenAccess, claims.Type)
		assert.NotEmpty(t, claims.TokenID)
		assert.WithinDuration(t, time.Now().Add(time.Minute), claims.ExpiresAt, 2*time.Second)

		refresh, err := issuer.IssueRefresh(userID)
		require.NoError(t, err)
		claims, err = issuer.Verify(refresh, model.TokenRefresh)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
		assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 2*time.Second)
	}
}

func TestTokenIssuerTokensAreUnique(t *testing.T) {
	issuer := NewTokenIssuer(testAccessSecret, testRefreshSecret, time.Minute, time.Hour)
	fixed := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return fixed }

	first, err := issuer.IssueRefresh("user-1")
	require.NoError(t, err)
	second, err := issuer.IssueRefresh("user-1")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestTokenIssuerKindsDoNotCrossVerify(t *testing.T) {
	issuer := NewTokenIssuer(testAccessSecret, testRefreshSecret, time.Minute, time.Hour)

	access, err := issuer.IssueAccess("user-1")
	require.NoError(t, err)
	_, err = issuer.Verify(access, model.TokenRefresh)
	require.ErrorIs(t, err, model.ErrInvalidSignature)

	refresh, err := issuer.IssueRefresh("user-1")
	require.NoError(t, err)
	_, err = issuer.Verify(refresh, model.TokenAccess)
	require.ErrorIs(t, err, model.ErrInvalidSignature)
}

func TestTokenIssuerChecksTypeClaim(t *testing.T) {
	// Misconfigured with one secret: the typ claim still separates the kinds.
	issuer := NewTokenIssuer("shared", "shared", time.Minute, time.Hour)

	access, err := issuer.IssueAccess("user-1")
	require.NoError(t, err)
	_, err = issuer.Verify(access, model.TokenRefresh)
	require.ErrorIs(t, err, model.ErrMalformedToken)
}

func TestTokenIssuerExpired(t *testing.T) {
	issuer := NewTokenIssuer(testAccessSecret, testRefreshSecret, time.Minute, time.Hour)
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }

	access, err := issuer.IssueAccess("user-1")
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.Verify(access, model.TokenAccess)
	require.ErrorIs(t, err, model.ErrTokenExpired)
}

func TestTokenIssuerRejectsTampering(t *testing.T) {
	issuer := NewTokenIssuer(testAccessSecret, testRefreshSecret, time.Minute, time.Hour)

	_, err := issuer.Verify("not-a-jwt", model.TokenAccess)
	require.ErrorIs(t, err, model.ErrMalformedToken)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Type: model.TokenAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString([]byte("guessed-secret"))
	require.NoError(t, err)
	_, err = issuer.Verify(forged, model.TokenAccess)
	require.ErrorIs(t, err, model.ErrInvalidSignature)

	otherAlg, err := jwt.NewWithClaims(jwt.SigningMethodHS512, tokenClaims{
		Type: model.TokenAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString([]byte(testAccessSecret))
	require.NoError(t, err)
	_, err = issuer.Verify(otherAlg, model.TokenAccess)
	require.Error(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Type:             model.TokenAccess,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	}).SignedString([]byte(testAccessSecret))
	require.NoError(t, err)
	_, err = issuer.Verify(noExpiry, model.TokenAccess)
	require.ErrorIs(t, err, model.ErrMalformedToken)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Type:             model.TokenAccess,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute))},
	}).SignedString([]byte(testAccessSecret))
	require.NoError(t, err)
	_, err = issuer.Verify(noSubject, model.TokenAccess)
	require.ErrorIs(t, err, model.ErrMalformedToken)
}
