package handler

import (
	"net/http"
	"strings"

	"go-tube-auth/internal/middleware"
	"go-tube-auth/internal/model"
	"go-tube-auth/internal/service"
)

type AuthHandler struct {
	service       *service.AuthService
	cookies       CookiePolicy
	maxUploadSize int64
	uploadTempDir string
}

func NewAuthHandler(service *service.AuthService, cookies CookiePolicy, maxUploadSize int64, uploadTempDir string) *AuthHandler {
	return &AuthHandler{
		service:       service,
		cookies:       cookies,
		maxUploadSize: maxUploadSize,
		uploadTempDir: uploadTempDir,
	}
}

// Register accepts multipart/form-data (with optional avatar and coverImage
// files) or a plain JSON body.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input service.RegisterInput

	if isMultipart(r) {
		form, err := readMultipart(w, r, h.maxUploadSize, h.uploadTempDir, "avatar", "coverImage")
		if err != nil {
			writeError(w, err)
			return
		}
		defer form.release()

		input = service.RegisterInput{
			FullName:       form.value("fullName"),
			Username:       form.value("username"),
			Email:          form.value("email"),
			Password:       form.value("password"),
			AvatarPath:     form.take("avatar"),
			CoverImagePath: form.take("coverImage"),
		}
	} else {
		var payload model.RegisterRequest
		if err := decodeJSON(w, r, &payload, false); err != nil {
			writeError(w, err)
			return
		}
		input = service.RegisterInput{
			FullName: payload.FullName,
			Username: payload.Username,
			Email:    payload.Email,
			Password: payload.Password,
		}
	}

	user, err := h.service.Register(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, user, "User registered successfully")
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if err := decodeJSON(w, r, &payload, false); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.service.Login(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	h.cookies.set(w, result.AccessToken, result.RefreshToken)
	writeSuccess(w, http.StatusOK, result, "User logged in successfully")
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.service.Logout(r.Context(), user.ID); err != nil {
		writeError(w, err)
		return
	}

	h.cookies.clear(w)
	writeSuccess(w, http.StatusOK, map[string]any{}, "User logged out")
}

// Refresh reads the refresh token from its cookie, then from the JSON body.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := ""
	if cookie, err := r.Cookie(middleware.RefreshTokenCookie); err == nil {
		token = strings.TrimSpace(cookie.Value)
	}

	if token == "" {
		var payload model.RefreshRequest
		if err := decodeJSON(w, r, &payload, true); err != nil {
			writeError(w, err)
			return
		}
		token = payload.RefreshToken
	}

	pair, err := h.service.Refresh(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}

	h.cookies.set(w, pair.AccessToken, pair.RefreshToken)
	writeSuccess(w, http.StatusOK, pair, "Access token refreshed")
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var payload model.ChangePasswordRequest
	if err := decodeJSON(w, r, &payload, false); err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.ChangePassword(r.Context(), user.ID, payload); err != nil {
		writeError(w, err)
		return
	}

	h.cookies.clear(w)
	writeSuccess(w, http.StatusOK, map[string]any{}, "Password changed successfully")
}

func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	writeSuccess(w, http.StatusOK, user, "User fetched successfully")
}
