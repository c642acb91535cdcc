// Package blob wraps the external blob store (spec section 1's "out of
// scope, interface only" collaborator) that holds job input/output
// artifacts, adapted from this codebase's existing GCS bucket client to
// additionally mint time-limited signed URLs (spec section 4.1, 4.4).
package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	applog "github.com/forgeq/dispatcher/internal/platform/logger"
)

// Store is the blob-store contract the gateway and lease manager depend
// on.
type Store interface {
	Upload(ctx context.Context, key string, contentType string, body io.Reader) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type gcsStore struct {
	log    *applog.Logger
	client *storage.Client
	bucket string
}

// NewFromEnv builds a GCS-backed Store from BLOB_BUCKET and the usual
// Google credential env vars.
func NewFromEnv(log *applog.Logger) (Store, error) {
	bucket := strings.TrimSpace(os.Getenv("BLOB_BUCKET"))
	if bucket == "" {
		return nil, fmt.Errorf("missing env var BLOB_BUCKET")
	}
	ctx := context.Background()
	opts := ClientOptionsFromEnv()
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("init gcs client: %w", err)
	}
	log.Info("Blob store initialized", "bucket", bucket)
	return &gcsStore{log: log.With("service", "BlobStore"), client: client, bucket: bucket}, nil
}

func (g *gcsStore) Upload(ctx context.Context, key, contentType string, body io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return fmt.Errorf("write blob %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close blob writer %q: %w", key, err)
	}
	return nil
}

// Download opens a reader on the object at key. Used by the job retry
// flow (spec section 6's /jobs/{id}/retry) to clone an input blob under a
// new job id without trusting the client to re-upload it.
func (g *gcsStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("read blob %q: %w", key, err)
	}
	return r, nil
}

func (g *gcsStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := g.client.Bucket(g.bucket).Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("delete blob %q: %w", key, err)
	}
	return nil
}

// SignedURL mints a V4 signed URL, the mechanism spec section 4.4 steps 6
// and 6 (result upload) rely on for both the worker's input fetch and the
// client's output download.
func (g *gcsStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(ttl),
	}
	u, err := g.client.Bucket(g.bucket).SignedURL(key, opts)
	if err != nil {
		return "", fmt.Errorf("sign url %q: %w", key, err)
	}
	return u, nil
}

// InputKey returns the blob key jobs store their sanitized upload under.
func InputKey(jobID, safeFilename string) string {
	return fmt.Sprintf("jobs/%s/input/%s", jobID, safeFilename)
}

// OutputKey returns the blob key a worker's result upload is written to.
func OutputKey(jobID string) string {
	return fmt.Sprintf("jobs/%s/output/output.jpg", jobID)
}
