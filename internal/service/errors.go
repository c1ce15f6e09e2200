package service

import (
	"errors"
	"net/http"

	"go-tube-auth/internal/model"
	"go-tube-auth/pkg/apierror"
)

// storeError translates credential store failures into API errors.
func storeError(err error) error {
	switch {
	case errors.Is(err, model.ErrUserNotFound):
		return apierror.Wrap(err, apierror.CodeNotFound, "User does not exist", http.StatusNotFound)
	case errors.Is(err, model.ErrUserAlreadyExists):
		return apierror.Wrap(err, apierror.CodeConflict, "User with email or username already exists", http.StatusConflict)
	default:
		return apierror.Internal(err)
	}
}

func uploadError(err error, message string) error {
	apiErr := apierror.Wrap(err, apierror.CodeUpload, message, http.StatusBadRequest)
	if errors.Is(err, model.ErrInvalidImage) {
		apiErr.Details = model.ErrInvalidImage.Error()
	}
	return apiErr
}
