package router

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"go-tube-auth/internal/config"
	"go-tube-auth/internal/handler"
	"go-tube-auth/internal/middleware"
)

type Handlers struct {
	Auth *handler.AuthHandler
	User *handler.UserHandler
}

// HealthFunc reports whether the credential store is reachable.
type HealthFunc func(ctx context.Context) error

// New builds the HTTP surface. mediaDir, when set, is served read-only
// under /media for the disk media backend.
func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, h Handlers, health HealthFunc, mediaDir string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if health != nil {
			if err := health(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("unavailable"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if mediaDir != "" {
		r.Handle("/media/*", http.StripPrefix("/media/", noListing(http.FileServer(http.Dir(mediaDir)))))
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))
		api.Use(middleware.NoStore)

		api.Route("/users", func(users chi.Router) {
			users.Post("/register", h.Auth.Register)
			users.Post("/login", h.Auth.Login)
			users.Post("/refresh-token", h.Auth.Refresh)

			users.Group(func(private chi.Router) {
				private.Use(authMiddleware.RequireAuth)

				private.Post("/logout", h.Auth.Logout)
				private.Post("/change-password", h.Auth.ChangePassword)
				private.Get("/current-user", h.Auth.CurrentUser)
				private.Patch("/update-account", h.User.UpdateAccount)
				private.Patch("/avatar", h.User.UpdateAvatar)
				private.Patch("/cover-image", h.User.UpdateCoverImage)
				private.Get("/c/{username}", h.User.ChannelProfile)
				private.Get("/history", h.User.WatchHistory)
				private.Post("/history", h.User.RecordWatch)
			})
		})
	})

	return r
}

func noListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
