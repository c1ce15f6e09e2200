package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-tube-auth/internal/database"
	"go-tube-auth/internal/media"
	"go-tube-auth/internal/model"
	"go-tube-auth/internal/repository"
)

const (
	testAccessSecret  = "access-secret-for-tests"
	testRefreshSecret = "refresh-secret-for-tests"
)

type testEnv struct {
	store    *repository.SQLiteUserRepository
	hasher   *PasswordHasher
	tokens   *TokenIssuer
	sessions *SessionManager
	uploader *media.MockUploader
	auth     *AuthService
	users    *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ctx := context.Background()
	db, err := database.NewSQLite(ctx, filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.EnsureSchema(ctx))

	store := repository.NewSQLiteUserRepository(db.Conn)
	hasher, err := NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)
	tokens := NewTokenIssuer(testAccessSecret, testRefreshSecret, time.Minute, time.Hour)
	sessions := NewSessionManager(store, tokens, nil)
	uploader := new(media.MockUploader)

	return &testEnv{
		store:    store,
		hasher:   hasher,
		tokens:   tokens,
		sessions: sessions,
		uploader: uploader,
		auth:     NewAuthService(store, hasher, tokens, sessions, uploader),
		users:    NewUserService(store, uploader),
	}
}

func (e *testEnv) register(t *testing.T, username string, email string, password string) model.PublicUser {
	t.Helper()

	user, err := e.auth.Register(context.Background(), RegisterInput{
		FullName: "Test " + username,
		Username: username,
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)
	return user
}

func (e *testEnv) login(t *testing.T, username string, password string) model.LoginResult {
	t.Helper()

	result, err := e.auth.Login(context.Background(), model.LoginRequest{Username: username, Password: password})
	require.NoError(t, err)
	return result
}

func tempUpload(t *testing.T, name string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("image bytes"), 0o644))
	return path
}
