package model

import "errors"

var (
	// User related errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Token related errors
	ErrTokenExpired      = errors.New("token expired")
	ErrInvalidSignature  = errors.New("invalid token signature")
	ErrMalformedToken    = errors.New("malformed token")
	ErrStaleRefreshToken = errors.New("refresh token is expired or used")

	// Store related errors
	ErrUnsupportedField = errors.New("field cannot be unset")

	// Media related errors
	ErrUploadFailed = errors.New("media upload failed")
	ErrInvalidImage = errors.New("file is not a supported image")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
