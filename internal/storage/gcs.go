package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"
	"github.com/desertthunder/spotetl/internal/shared"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStore is a [Store] backed by a Google Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore creates a client for bucket.
//
// keyPath is an optional service account key file; when empty, application default credentials are used.
// endpoint optionally points the client at an emulator, in which case authentication is disabled.
func NewGCSStore(ctx context.Context, bucket, keyPath, endpoint string) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("%w: bucket name is required", shared.ErrInvalidConfig)
	}

	var opts []option.ClientOption
	switch {
	case endpoint != "":
		opts = append(opts, option.WithEndpoint(endpoint), option.WithoutAuthentication())
	case keyPath != "":
		if _, err := os.Stat(keyPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: service account key not found at path: %s", shared.ErrMissingCredentials, keyPath)
		}
		opts = append(opts, option.WithCredentialsFile(keyPath))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}

	return &GCSStore{client: client, bucket: bucket}, nil
}

func (g *GCSStore) Name() string { return "gs://" + g.bucket }

// Close releases the underlying client.
func (g *GCSStore) Close() error {
	return g.client.Close()
}

func (g *GCSStore) List(ctx context.Context, prefix string) ([]Object, error) {
	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{Prefix: prefix})

	var out []Object
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to list gs://%s/%s: %v", shared.ErrStorage, g.bucket, prefix, err)
		}
		// "directory" placeholders created by the console end with a slash
		if attrs.Name == "" || attrs.Name[len(attrs.Name)-1] == '/' {
			continue
		}
		out = append(out, Object{Key: attrs.Name, Size: attrs.Size, Updated: attrs.Updated})
	}
	return out, nil
}

func (g *GCSStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}

	r, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: gs://%s/%s", shared.ErrObjectNotFound, g.bucket, key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open gs://%s/%s: %v", shared.ErrStorage, g.bucket, key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read gs://%s/%s: %v", shared.ErrStorage, g.bucket, key, err)
	}
	return data, nil
}

func (g *GCSStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := validKey(key); err != nil {
		return err
	}

	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	w.CacheControl = "no-cache, no-store, must-revalidate"

	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("%w: failed to write gs://%s/%s: %v", shared.ErrStorage, g.bucket, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: failed to close GCS writer for %s: %v", shared.ErrStorage, key, err)
	}
	return nil
}

func (g *GCSStore) Copy(ctx context.Context, src, dst string) error {
	if err := validKey(src); err != nil {
		return err
	}
	if err := validKey(dst); err != nil {
		return err
	}

	bkt := g.client.Bucket(g.bucket)
	_, err := bkt.Object(dst).CopierFrom(bkt.Object(src)).Run(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("%w: gs://%s/%s", shared.ErrObjectNotFound, g.bucket, src)
	}
	if err != nil {
		return fmt.Errorf("%w: failed to copy %s to %s: %v", shared.ErrStorage, src, dst, err)
	}
	return nil
}

func (g *GCSStore) Delete(ctx context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}

	err := g.client.Bucket(g.bucket).Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("%w: gs://%s/%s", shared.ErrObjectNotFound, g.bucket, key)
	}
	if err != nil {
		return fmt.Errorf("%w: failed to delete gs://%s/%s: %v", shared.ErrStorage, g.bucket, key, err)
	}
	return nil
}
