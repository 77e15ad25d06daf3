package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sethvargo/go-retry"

	xupload_errors "xupload/pkg/errors"
)

// RetryingStorage wraps an ObjectStorage with bounded exponential backoff and
// a per-attempt timeout. Errors that survive every attempt wrap ErrStorageBackend.
type RetryingStorage struct {
	next     ObjectStorage
	attempts uint64
	base     time.Duration
	timeout  time.Duration
}

func NewRetryingStorage(next ObjectStorage, attempts int, timeout time.Duration) *RetryingStorage {
	if attempts < 1 {
		attempts = 1
	}
	return &RetryingStorage{
		next:     next,
		attempts: uint64(attempts),
		base:     200 * time.Millisecond,
		timeout:  timeout,
	}
}

func (r *RetryingStorage) backoff() retry.Backoff {
	b := retry.NewExponential(r.base)
	b = retry.WithCappedDuration(5*time.Second, b)
	return retry.WithMaxRetries(r.attempts-1, b)
}

func (r *RetryingStorage) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	err := retry.Do(ctx, r.backoff(), func(ctx context.Context) error {
		attemptCtx := ctx
		if r.timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}
		if err := fn(attemptCtx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", xupload_errors.ErrStorageBackend, op, err)
	}
	return nil
}

// PutObject buffers the body once so every attempt sends the same bytes.
func (r *RetryingStorage) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read object body: %w", err)
	}
	if size < 0 {
		size = int64(len(data))
	}
	return r.do(ctx, "put "+key, func(ctx context.Context) error {
		return r.next.PutObject(ctx, key, bytes.NewReader(data), size, contentType)
	})
}

func (r *RetryingStorage) DeleteObjects(ctx context.Context, keys ...string) error {
	return r.do(ctx, "delete", func(ctx context.Context) error {
		return r.next.DeleteObjects(ctx, keys...)
	})
}

func (r *RetryingStorage) PublicURL(key string) string {
	return r.next.PublicURL(key)
}

// IsBackendError reports whether err came out of an exhausted storage call.
func IsBackendError(err error) bool {
	return errors.Is(err, xupload_errors.ErrStorageBackend)
}
