package services

import (
	"context"
	"time"
)

// ObjectStore is the content-store capability the file services consume.
// repositories.S3Store is the production implementation; tests substitute an
// in-memory fake.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string, metadata map[string]string) error
	// Delete must treat a missing object as success.
	Delete(ctx context.Context, key string) error
	PresignDownload(ctx context.Context, key string, expires time.Duration, downloadName string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Bucket() string
}
