// Package blob stores media bytes in Google Cloud Storage and hands out
// time-limited signed URLs for external collaborators (OCR) to read them.
package blob

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// Store uploads blobs and mints signed read URLs.
type Store struct {
	client *storage.Client
	bucket string
	ttl    time.Duration
	logger *slog.Logger
}

// Config holds blob store configuration.
type Config struct {
	Bucket          string
	SignedURLTTL    time.Duration
	CredentialsFile string // empty = application default credentials
}

// New creates a GCS-backed blob store.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("blob: bucket name required")
	}
	if cfg.SignedURLTTL <= 0 {
		cfg.SignedURLTTL = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &Store{
		client: client,
		bucket: cfg.Bucket,
		ttl:    cfg.SignedURLTTL,
		logger: logger.With("component", "blob"),
	}, nil
}

// Upload writes data under a freshly generated unique key and returns a
// time-limited signed URL for reading it back.
func (s *Store) Upload(ctx context.Context, data []byte, name, contentType string) (string, error) {
	key := uuid.New().String() + extension(name)

	writeCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(writeCtx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close object writer %s: %w", key, err)
	}

	url, err := s.client.Bucket(s.bucket).SignedURL(key, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(s.ttl),
	})
	if err != nil {
		return "", fmt.Errorf("sign url for %s: %w", key, err)
	}

	s.logger.Debug("blob uploaded", "key", key, "bytes", len(data), "content_type", contentType)
	return url, nil
}

// Close releases the underlying storage client.
func (s *Store) Close() error {
	return s.client.Close()
}

// extension picks a file extension from the original name, defaulting to .jpg
// the way the inbound channel labels image media.
func extension(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" || strings.ContainsAny(ext, "?&") {
		return ".jpg"
	}
	return ext
}
