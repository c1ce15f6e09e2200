package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"go-tube-auth/internal/model"
	"go-tube-auth/pkg/apierror"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

type authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (model.PublicUser, error)
}

type contextKey string

const userContextKey contextKey = "auth_user"

type AuthMiddleware struct {
	auth authenticator
}

func NewAuthMiddleware(auth authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// RequireAuth resolves the access token to a live user and stores it in the
// request context. The cookie wins over the Authorization header.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := m.auth.Authenticate(r.Context(), AccessToken(r))
		if err != nil {
			writeAuthError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AccessToken extracts the access token from the cookie or, failing that,
// from an "Authorization: Bearer" header.
func AccessToken(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && strings.TrimSpace(cookie.Value) != "" {
		return strings.TrimSpace(cookie.Value)
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func UserFromContext(ctx context.Context) (model.PublicUser, bool) {
	user, ok := ctx.Value(userContextKey).(model.PublicUser)
	return user, ok
}

// WithUser is used by tests and internal callers that already hold a
// resolved user.
func WithUser(ctx context.Context, user model.PublicUser) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

func writeAuthError(w http.ResponseWriter, err error) {
	var apiErr *apierror.APIError
	if !errors.As(err, &apiErr) || apiErr.HTTPStatus >= http.StatusInternalServerError {
		slog.Error("authentication failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, apierror.CodeInternal, "Unexpected server error")
		return
	}
	writeJSONError(w, apiErr.HTTPStatus, apiErr.Code, apiErr.Message)
}
