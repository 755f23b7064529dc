// Package storage provides the object store shared by ingestion and transformation.
//
// Keys are slash-separated paths ("raw_data/to_processed/spotify_raw_....json"). Every backend lists keys in
// lexicographic order and reports missing objects as [shared.ErrObjectNotFound].
//
// Backends:
//   - [GCSStore] : a Google Cloud Storage bucket
//   - [LocalStore] : a directory on the local filesystem
//   - [MemoryStore] : an in-process map, for tests and dry runs
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/desertthunder/spotetl/internal/shared"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeCSV  = "text/csv"
)

// Object describes a stored object returned by [Store.List].
type Object struct {
	Key     string
	Size    int64
	Updated time.Time
}

// Base returns the final path element of the object's key.
func (o Object) Base() string {
	return path.Base(o.Key)
}

// Store is the minimal object storage contract used by the pipeline.
type Store interface {
	// List returns every object whose key starts with prefix, sorted by key.
	List(ctx context.Context, prefix string) ([]Object, error)

	// Get returns the full content of key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put creates or replaces key with data.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Copy duplicates src to dst within the store.
	Copy(ctx context.Context, src, dst string) error

	// Delete removes key. Deleting a missing key returns [shared.ErrObjectNotFound].
	Delete(ctx context.Context, key string) error

	// Name describes the backend for logging, e.g. "gs://bucket".
	Name() string
}

// Open creates the [Store] selected by cfg.Backend.
func Open(ctx context.Context, cfg shared.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "gcs":
		return NewGCSStore(ctx, cfg.Bucket, cfg.CredentialsFile, cfg.Endpoint)
	case "local":
		return NewLocalStore(cfg.Root)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", shared.ErrInvalidConfig, cfg.Backend)
	}
}

// FilterSuffix keeps objects whose key ends with suffix, preserving order.
func FilterSuffix(objects []Object, suffix string) []Object {
	var out []Object
	for _, o := range objects {
		if strings.HasSuffix(o.Key, suffix) {
			out = append(out, o)
		}
	}
	return out
}

// Move copies src to dst and then deletes src.
func Move(ctx context.Context, s Store, src, dst string) error {
	if err := s.Copy(ctx, src, dst); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	if err := s.Delete(ctx, src); err != nil {
		return fmt.Errorf("failed to delete %s: %w", src, err)
	}
	return nil
}

func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.HasSuffix(key, "/") {
		return fmt.Errorf("%w: invalid key %q", shared.ErrStorage, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." || part == "" {
			return fmt.Errorf("%w: invalid key %q", shared.ErrStorage, key)
		}
	}
	return nil
}
