package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-tube-auth/internal/database"
	"go-tube-auth/internal/media"
	"go-tube-auth/internal/middleware"
	"go-tube-auth/internal/model"
	"go-tube-auth/internal/repository"
	"go-tube-auth/internal/service"
)

type handlerEnv struct {
	auth    *AuthHandler
	users   *UserHandler
	authSvc *service.AuthService
	tempDir string
	media   string
}

func newHandlerEnv(t *testing.T, maxUpload int64) *handlerEnv {
	t.Helper()

	ctx := context.Background()
	db, err := database.NewSQLite(ctx, filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.EnsureSchema(ctx))

	mediaRoot := filepath.Join(t.TempDir(), "media")
	disk, err := media.NewDiskUploader(mediaRoot, "http://cdn.test/media")
	require.NoError(t, err)
	uploader := media.NewImageUploader(disk)

	store := repository.NewSQLiteUserRepository(db.Conn)
	hasher, err := service.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)
	tokens := service.NewTokenIssuer("access-secret", "refresh-secret", time.Minute, time.Hour)
	sessions := service.NewSessionManager(store, tokens, nil)
	authSvc := service.NewAuthService(store, hasher, tokens, sessions, uploader)

	tempDir := t.TempDir()
	cookies := CookiePolicy{Secure: true, AccessTTL: time.Minute, RefreshTTL: time.Hour}

	return &handlerEnv{
		auth:    NewAuthHandler(authSvc, cookies, maxUpload, tempDir),
		users:   NewUserHandler(service.NewUserService(store, uploader), maxUpload, tempDir),
		authSvc: authSvc,
		tempDir: tempDir,
		media:   mediaRoot,
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, value := range fields {
		require.NoError(t, writer.WriteField(name, value))
	}
	for name, content := range files {
		part, err := writer.CreateFormFile(name, name+".png")
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) model.APIResponse {
	t.Helper()

	var resp model.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func tempEntries(t *testing.T, dir string) []os.DirEntry {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return entries
}

func TestRegisterMultipartWithAvatar(t *testing.T) {
	env := newHandlerEnv(t, 1<<20)

	body, contentType := multipartBody(t, map[string]string{
		"fullName": "Bob B",
		"username": "bob",
		"email":    "bob@example.com",
		"password": "hunter22",
	}, map[string][]byte{"avatar": pngBytes(t)})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.auth.Register(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decodeResponse(t, rec)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(data["avatar"].(string), "http://cdn.test/media/"))
	assert.Equal(t, "", data["coverImage"])
	assert.Empty(t, tempEntries(t, env.tempDir))
}

func TestRegisterRejectsNonImageAvatar(t *testing.T) {
	env := newHandlerEnv(t, 1<<20)

	body, contentType := multipartBody(t, map[string]string{
		"fullName": "Bob B",
		"username": "bob",
		"email":    "bob@example.com",
		"password": "hunter22",
	}, map[string][]byte{"avatar": []byte("definitely not an image")})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.auth.Register(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UPLOAD_ERROR", resp.Error.Code)
	assert.Empty(t, tempEntries(t, env.tempDir))
}

func TestRegisterPayloadTooLarge(t *testing.T) {
	env := newHandlerEnv(t, 512)

	body, contentType := multipartBody(t, map[string]string{
		"username": "bob",
	}, map[string][]byte{"avatar": bytes.Repeat([]byte("x"), 4096)})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.auth.Register(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "PAYLOAD_TOO_LARGE", resp.Error.Code)
	assert.Empty(t, tempEntries(t, env.tempDir))
}

func TestLoginRejectsInvalidJSON(t *testing.T) {
	env := newHandlerEnv(t, 1<<20)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	env.auth.Login(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestLoginSetsSessionCookies(t *testing.T) {
	env := newHandlerEnv(t, 1<<20)
	_, err := env.authSvc.Register(context.Background(), service.RegisterInput{
		FullName: "Carol C", Username: "carol", Email: "carol@example.com", Password: "pa55word",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login",
		strings.NewReader(`{"email":"CAROL@example.com","password":"pa55word"}`))
	rec := httptest.NewRecorder()
	env.auth.Login(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	for _, c := range cookies {
		assert.True(t, c.HttpOnly, c.Name)
		assert.True(t, c.Secure, c.Name)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite, c.Name)
		assert.Equal(t, "/", c.Path, c.Name)
	}

	byName := map[string]*http.Cookie{}
	for _, c := range cookies {
		byName[c.Name] = c
	}
	assert.Equal(t, 60, byName[middleware.AccessTokenCookie].MaxAge)
	assert.Equal(t, 3600, byName[middleware.RefreshTokenCookie].MaxAge)
}

func TestRefreshPrefersCookie(t *testing.T) {
	env := newHandlerEnv(t, 1<<20)
	_, err := env.authSvc.Register(context.Background(), service.RegisterInput{
		FullName: "Dan D", Username: "dan", Email: "dan@example.com", Password: "pa55word",
	})
	require.NoError(t, err)
	login, err := env.authSvc.Login(context.Background(), model.LoginRequest{Username: "dan", Password: "pa55word"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token",
		strings.NewReader(`{"refreshToken":"garbage"}`))
	req.AddCookie(&http.Cookie{Name: middleware.RefreshTokenCookie, Value: login.RefreshToken})
	rec := httptest.NewRecorder()
	env.auth.Refresh(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestUpdateAvatarReplacesImage(t *testing.T) {
	env := newHandlerEnv(t, 1<<20)
	user, err := env.authSvc.Register(context.Background(), service.RegisterInput{
		FullName: "Eve E", Username: "eve", Email: "eve@example.com", Password: "pa55word",
	})
	require.NoError(t, err)

	body, contentType := multipartBody(t, nil, map[string][]byte{"avatar": pngBytes(t)})
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/users/avatar", body)
	req.Header.Set("Content-Type", contentType)
	req = req.WithContext(middleware.WithUser(req.Context(), user))
	rec := httptest.NewRecorder()
	env.users.UpdateAvatar(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]any)
	assert.True(t, strings.HasPrefix(data["avatar"].(string), "http://cdn.test/media/"))
}

func TestUpdateAvatarRequiresFile(t *testing.T) {
	env := newHandlerEnv(t, 1<<20)
	user, err := env.authSvc.Register(context.Background(), service.RegisterInput{
		FullName: "Eve E", Username: "eve", Email: "eve@example.com", Password: "pa55word",
	})
	require.NoError(t, err)

	body, contentType := multipartBody(t, map[string]string{"note": "no file"}, nil)
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/users/avatar", body)
	req.Header.Set("Content-Type", contentType)
	req = req.WithContext(middleware.WithUser(req.Context(), user))
	rec := httptest.NewRecorder()
	env.users.UpdateAvatar(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCurrentUserWithoutIdentity(t *testing.T) {
	env := newHandlerEnv(t, 1<<20)

	rec := httptest.NewRecorder()
	env.auth.CurrentUser(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func loginStatus(t *testing.T, env *handlerEnv, username string, password string) int {
	t.Helper()

	raw, err := json.Marshal(model.LoginRequest{Username: username, Password: password})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	env.auth.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/users/login", bytes.NewReader(raw)))
	return rec.Code
}

func TestRegisteredPasswordLogsInUnchanged(t *testing.T) {
	const password = "  hunter 22  "

	t.Run("json", func(t *testing.T) {
		env := newHandlerEnv(t, 1<<20)
		raw, err := json.Marshal(model.RegisterRequest{
			FullName: "Bob B", Username: "bob", Email: "bob@example.com", Password: password,
		})
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		env.auth.Register(rec, httptest.NewRequest(http.MethodPost, "/api/v1/users/register", bytes.NewReader(raw)))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		assert.Equal(t, http.StatusOK, loginStatus(t, env, "bob", password))
		assert.Equal(t, http.StatusUnauthorized, loginStatus(t, env, "bob", "hunter 22"))
	})

	t.Run("multipart", func(t *testing.T) {
		env := newHandlerEnv(t, 1<<20)
		body, contentType := multipartBody(t, map[string]string{
			"fullName": "  Bob B  ",
			"username": " bob ",
			"email":    "bob@example.com",
			"password": password,
		}, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		env.auth.Register(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		data := decodeResponse(t, rec).Data.(map[string]any)
		assert.Equal(t, "Bob B", data["fullName"])
		assert.Equal(t, "bob", data["username"])

		assert.Equal(t, http.StatusOK, loginStatus(t, env, "bob", password))
		assert.Equal(t, http.StatusUnauthorized, loginStatus(t, env, "bob", "hunter 22"))
	})
}

func TestRegisterRejectsOversizedFormField(t *testing.T) {
	env := newHandlerEnv(t, 1<<20)

	body, contentType := multipartBody(t, map[string]string{
		"fullName": strings.Repeat("a", maxFormValue+1),
		"username": "bob",
		"email":    "bob@example.com",
		"password": "hunter22",
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.auth.Register(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Equal(t, http.StatusNotFound, loginStatus(t, env, "bob", "hunter22"))
}
