package xupload_errors

import (
	"errors"
)

// Common errors
var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrTooLarge      = errors.New("file too large")
	ErrAlreadyExists = errors.New("already exists")
)

// Upload workflow errors
var (
	ErrValidation     = errors.New("upload validation failed")
	ErrMissingFile    = errors.New("could not upload file")
	ErrStorageBackend = errors.New("storage backend error")
	ErrFilesystem     = errors.New("filesystem error")
	ErrThumbnail      = errors.New("thumbnail generation failed")
)
