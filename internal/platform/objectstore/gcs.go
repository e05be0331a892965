package objectstore

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GCS stores objects in a Google Cloud Storage bucket and hands out V4 signed
// URLs.
type GCS struct {
	client *storage.Client
	bucket string
}

// NewGCS connects to the bucket. With an empty credentialsFile the client
// falls back to application default credentials.
func NewGCS(ctx context.Context, bucket, credentialsFile string) (*GCS, error) {
	if bucket == "" {
		return nil, errors.New("objectstore: GCS bucket is required")
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

// Close releases the underlying client.
func (g *GCS) Close() error {
	return g.client.Close()
}

// Put uploads content with a does-not-exist precondition so an existing object
// is never replaced.
func (g *GCS) Put(ctx context.Context, path, contentType string, content io.Reader) (*ObjectInfo, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}

	// Cancelling the writer's context is the only way to abandon an upload;
	// Close would commit whatever was copied so far.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	obj := g.client.Bucket(g.bucket).Object(path).If(storage.Conditions{DoesNotExist: true})
	writer := obj.NewWriter(ctx)
	writer.ContentType = contentType
	writer.CacheControl = "private, no-store"

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(writer, h), content)
	if err != nil {
		cancel()
		_ = writer.Close()
		return nil, fmt.Errorf("failed to copy object %s to GCS: %w", path, err)
	}
	if err := writer.Close(); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed {
			return nil, fmt.Errorf("%w: %s", ErrObjectExists, path)
		}
		return nil, fmt.Errorf("failed to close GCS writer for %s: %w", path, err)
	}

	created := time.Now().UTC()
	if attrs := writer.Attrs(); attrs != nil {
		created = attrs.Created
	}
	return &ObjectInfo{
		Path:        path,
		ContentType: contentType,
		Size:        n,
		Hash:        fmt.Sprintf("%x", h.Sum(nil)),
		CreatedAt:   created,
	}, nil
}

// SignedURL returns a V4 signed GET URL for path.
func (g *GCS) SignedURL(_ context.Context, path string, expiry time.Duration) (string, error) {
	if err := ValidatePath(path); err != nil {
		return "", err
	}
	u, err := g.client.Bucket(g.bucket).SignedURL(path, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().Add(expiry),
	})
	if err != nil {
		return "", fmt.Errorf("signing GCS URL for %s: %w", path, err)
	}
	return u, nil
}

// Open streams the object from the bucket.
func (g *GCS) Open(ctx context.Context, path string) (io.ReadCloser, *ObjectInfo, error) {
	if err := ValidatePath(path); err != nil {
		return nil, nil, err
	}
	r, err := g.client.Bucket(g.bucket).Object(path).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrObjectNotFound, path)
		}
		return nil, nil, fmt.Errorf("reading GCS object %s: %w", path, err)
	}
	return r, &ObjectInfo{
		Path:        path,
		ContentType: r.Attrs.ContentType,
		Size:        r.Attrs.Size,
		CreatedAt:   r.Attrs.LastModified,
	}, nil
}
