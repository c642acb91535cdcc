// Package blobtest provides an in-memory blob.Store for unit tests.
package blobtest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/forgeq/dispatcher/internal/pkg/errors"
)

type Fake struct {
	mu      sync.Mutex
	objects map[string][]byte

	FailUpload bool
	FailSign   bool
}

func New() *Fake {
	return &Fake{objects: map[string][]byte{}}
}

func (f *Fake) Upload(_ context.Context, key, _ string, body io.Reader) error {
	if f.FailUpload {
		return fmt.Errorf("simulated upload failure")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *Fake) Download(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	data, ok := f.objects[key]
	f.mu.Unlock()
	if !ok {
		return nil, errors.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *Fake) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *Fake) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	if f.FailSign {
		return "", fmt.Errorf("simulated signing failure")
	}
	return fmt.Sprintf("https://blob.test/%s?ttl=%s", key, ttl), nil
}
