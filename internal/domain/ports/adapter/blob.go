package adapter

import "context"

// BlobStorage is the minimal contract against the object store holding audio.
type BlobStorage interface {
	Download(ctx context.Context, path string) ([]byte, error)
	Upload(ctx context.Context, path string, data []byte, contentType string) error
}
