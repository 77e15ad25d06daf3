package storage

import (
	"context"
	"io"
	"path"
)

// ObjectStorage is the remote store that receives originals and thumbnails.
type ObjectStorage interface {
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	// DeleteObjects removes every key in one call. Missing keys are not an error.
	DeleteObjects(ctx context.Context, keys ...string) error
	PublicURL(key string) string
}

const (
	keyPrefix   = "images"
	ThumbPrefix = "thumb_"
)

// ObjectKey returns images/{folder}/{filename}.
func ObjectKey(folder, filename string) string {
	return path.Join(keyPrefix, folder, filename)
}

// ThumbKey returns images/{folder}/thumb_{filename}.
func ThumbKey(folder, filename string) string {
	return path.Join(keyPrefix, folder, ThumbPrefix+filename)
}
