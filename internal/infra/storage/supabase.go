// File: internal/infra/storage/supabase.go
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"voice-summary-service/internal/domain/ports/adapter"
)

var _ adapter.BlobStorage = (*SupabaseClient)(nil)

// SupabaseClient talks to the Supabase storage REST API with a service key.
// Object paths are relative to the configured bucket.
type SupabaseClient struct {
	baseURL    string
	serviceKey string
	bucket     string
	client     *http.Client
}

func NewSupabaseClient(baseURL, serviceKey, bucket string) (*SupabaseClient, error) {
	if baseURL == "" || serviceKey == "" {
		return nil, errors.New("storage base url and service key are required")
	}
	if bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	return &SupabaseClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		bucket:     bucket,
		client:     &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (s *SupabaseClient) objectURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, strings.TrimLeft(path, "/"))
}

// Download fetches the object bytes at path from the bucket.
func (s *SupabaseClient) Download(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.objectURL(path), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storage download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("storage object %q: not found", path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 400))
		return nil, fmt.Errorf("storage download http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return io.ReadAll(resp.Body)
}

// Upload stores data at path in the bucket, overwriting any existing object.
func (s *SupabaseClient) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.objectURL(path), bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("storage upload: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 400))
		return fmt.Errorf("storage upload http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
