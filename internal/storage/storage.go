// Package storage holds the blob-store abstraction, its S3-compatible
// implementation, and the storage-key path templater.
package storage

import "context"

type UploadInput struct {
	Data        []byte
	Filename    string
	ContentType string
	Metadata    map[string]string
}

type UploadOutput struct {
	Key       string
	PublicURL string
	Size      int64
}

// BlobStore is durable object storage. Keys are derived from the configured
// path template at upload time; callers never pick keys directly.
type BlobStore interface {
	Upload(ctx context.Context, in UploadInput) (*UploadOutput, error)
	Delete(ctx context.Context, key string) error
	HealthCheck(ctx context.Context) error
}
