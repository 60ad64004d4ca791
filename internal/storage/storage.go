package storage

import (
	"context"
	"io"
	"time"
)

// Service stores contact avatars in remote object storage.
type Service interface {
	UploadObject(ctx context.Context, bucket, key, contentType string, body io.Reader) error
	DeleteObject(ctx context.Context, bucket, key string) error
	// PresignGet returns a time-limited URL for reading the object.
	PresignGet(ctx context.Context, bucket, key string, expires time.Duration) (string, error)
}
