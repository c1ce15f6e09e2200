package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-tube-auth/internal/config"
	"go-tube-auth/internal/database"
	"go-tube-auth/internal/handler"
	"go-tube-auth/internal/lock"
	"go-tube-auth/internal/media"
	"go-tube-auth/internal/middleware"
	"go-tube-auth/internal/repository"
	"go-tube-auth/internal/router"
	"go-tube-auth/internal/service"
	"go-tube-auth/internal/telemetry"
)

type App struct {
	server       *http.Server
	cleanupFuncs []func()
}

func New(cfg *config.Config) (*App, error) {
	ctx := context.Background()
	app := &App{}

	shutdownTracing, err := telemetry.Setup(ctx, "go-tube-auth", cfg.OTLPEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}
	app.onClose(func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	})

	db, store, err := openStore(ctx, cfg)
	if err != nil {
		app.cleanup()
		return nil, err
	}
	app.onClose(db.Close)

	if err := db.EnsureSchema(ctx); err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}
	slog.Info("database ready", "driver", cfg.DatabaseDriver)

	backend, mediaDir, err := openMedia(ctx, cfg)
	if err != nil {
		app.cleanup()
		return nil, err
	}
	uploader := media.NewImageUploader(backend)

	var locker service.Locker
	if cfg.RedisURL != "" {
		client, err := lock.Connect(ctx, cfg.RedisURL)
		if err != nil {
			app.cleanup()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.onClose(func() { _ = client.Close() })
		locker = lock.NewRedisLocker(client, "go-tube-auth:lock:", 10*time.Second, 5*time.Second)
		slog.Info("refresh rotation lock enabled")
	}

	hasher, err := service.NewPasswordHasher(cfg.BcryptCost)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to initialize password hasher: %w", err)
	}
	tokens := service.NewTokenIssuer(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	sessions := service.NewSessionManager(store, tokens, locker)
	authService := service.NewAuthService(store, hasher, tokens, sessions, uploader)
	userService := service.NewUserService(store, uploader)

	cookies := handler.CookiePolicy{
		Secure:     cfg.IsProduction(),
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}
	handlers := router.Handlers{
		Auth: handler.NewAuthHandler(authService, cookies, cfg.MaxUploadSize, cfg.UploadTempDir),
		User: handler.NewUserHandler(userService, cfg.MaxUploadSize, cfg.UploadTempDir),
	}
	appRouter := router.New(cfg, middleware.NewAuthMiddleware(authService), handlers, db.Health, mediaDir)

	app.server = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return app, nil
}

func openStore(ctx context.Context, cfg *config.Config) (database.Handle, service.UserStore, error) {
	switch cfg.DatabaseDriver {
	case config.DriverSQLite:
		db, err := database.NewSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		return db, repository.NewSQLiteUserRepository(db.Conn), nil
	default:
		slog.Info("connecting to PostgreSQL")
		db, err := database.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return db, repository.NewUserRepository(db.Pool), nil
	}
}

// openMedia returns the upload backend and, for the disk backend, the
// directory the router should serve.
func openMedia(ctx context.Context, cfg *config.Config) (media.Uploader, string, error) {
	switch cfg.MediaBackend {
	case config.MediaS3:
		uploader, err := media.NewS3Uploader(ctx, media.S3Config{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
		if err != nil {
			return nil, "", fmt.Errorf("failed to initialize s3 uploader: %w", err)
		}
		slog.Info("media backend ready", "backend", "s3", "bucket", cfg.S3Bucket)
		return uploader, "", nil
	default:
		uploader, err := media.NewDiskUploader(cfg.MediaRoot, cfg.MediaPublicURL)
		if err != nil {
			return nil, "", fmt.Errorf("failed to initialize disk uploader: %w", err)
		}
		slog.Info("media backend ready", "backend", "disk", "root", uploader.Root())
		return uploader, uploader.Root(), nil
	}
}

func (a *App) onClose(cleanup func()) {
	a.cleanupFuncs = append(a.cleanupFuncs, cleanup)
}

// cleanup runs registered cleanups in reverse order.
func (a *App) cleanup() {
	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}
	a.cleanupFuncs = nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shutdownErr := a.server.Shutdown(ctx)
	a.cleanup()
	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}
