package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-tube-auth/internal/middleware"
	"go-tube-auth/internal/model"
	"go-tube-auth/internal/service"
	"go-tube-auth/pkg/apierror"
)

type UserHandler struct {
	service       *service.UserService
	maxUploadSize int64
	uploadTempDir string
}

func NewUserHandler(service *service.UserService, maxUploadSize int64, uploadTempDir string) *UserHandler {
	return &UserHandler{service: service, maxUploadSize: maxUploadSize, uploadTempDir: uploadTempDir}
}

func (h *UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var payload model.UpdateAccountRequest
	if err := decodeJSON(w, r, &payload, false); err != nil {
		writeError(w, err)
		return
	}

	updated, err := h.service.UpdateAccount(r.Context(), user.ID, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, updated, "Account details updated successfully")
}

func (h *UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "avatar", h.service.UpdateAvatar, "Avatar image updated successfully")
}

func (h *UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "coverImage", h.service.UpdateCoverImage, "Cover image updated successfully")
}

type imageUpdate func(ctx context.Context, userID string, localPath string) (model.PublicUser, error)

func (h *UserHandler) replaceImage(w http.ResponseWriter, r *http.Request, field string, update imageUpdate, message string) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	form, err := readMultipart(w, r, h.maxUploadSize, h.uploadTempDir, field)
	if err != nil {
		writeError(w, err)
		return
	}
	defer form.release()

	updated, err := update(r.Context(), user.ID, form.take(field))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, updated, message)
}

func (h *UserHandler) ChannelProfile(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	profile, err := h.service.ChannelProfile(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, profile, "User channel fetched successfully")
}

func (h *UserHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	items, err := h.service.WatchHistory(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, items, "Watch history fetched successfully")
}

func (h *UserHandler) RecordWatch(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var payload model.WatchRequest
	if err := decodeJSON(w, r, &payload, false); err != nil {
		writeError(w, err)
		return
	}

	items, err := h.service.RecordWatch(r.Context(), user.ID, payload.ItemID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, items, "Watch history updated")
}

func requireUser(w http.ResponseWriter, r *http.Request) (model.PublicUser, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthenticated("Unauthorized request"))
	}
	return user, ok
}
