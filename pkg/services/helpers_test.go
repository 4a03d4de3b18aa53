package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/adampresley/photovault/pkg/storage"
)

/*
memoryBackend is an in-memory storage.Adapter for tests. failUpload lets a
test inject a failure for specific paths.
*/
type memoryBackend struct {
	mu         sync.Mutex
	objects    map[string][]byte
	uploads    []string
	deletes    []string
	failUpload func(path string) bool
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{
		objects: map[string][]byte{},
	}
}

func (m *memoryBackend) Upload(ctx context.Context, path string, data io.Reader, contentType string) (storage.UploadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failUpload != nil && m.failUpload(path) {
		return storage.UploadResult{}, fmt.Errorf("simulated upload failure for '%s'", path)
	}

	b, err := io.ReadAll(data)

	if err != nil {
		return storage.UploadResult{}, err
	}

	m.objects[path] = b
	m.uploads = append(m.uploads, path)

	return storage.UploadResult{
		URL:      "mem://" + path,
		BlobPath: path,
	}, nil
}

func (m *memoryBackend) Delete(ctx context.Context, url, blobPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.objects, blobPath)
	m.deletes = append(m.deletes, blobPath)
	return nil
}

func (m *memoryBackend) Read(ctx context.Context, path string) (io.ReadCloser, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.objects[path]

	if !ok {
		return nil, "", fmt.Errorf("object '%s' not found", path)
	}

	return io.NopCloser(bytes.NewReader(b)), "application/octet-stream", nil
}

func (m *memoryBackend) List(ctx context.Context, prefix string) ([]storage.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := []storage.Object{}

	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			result = append(result, storage.Object{Key: key, LastModified: time.Now()})
		}
	}

	return result, nil
}

func (m *memoryBackend) PathForURL(url string) (string, bool) {
	if strings.HasPrefix(url, "mem://") {
		return strings.TrimPrefix(url, "mem://"), true
	}

	return "", false
}

func (m *memoryBackend) objectKeysWithPrefix(prefix string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := []string{}

	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			result = append(result, key)
		}
	}

	return result
}

/*
recordingCleanup captures queued deletes synchronously so tests can assert
on them without racing a worker pool.
*/
type recordingCleanup struct {
	mu      sync.Mutex
	deletes []string
}

func (c *recordingCleanup) EnqueueDelete(url, blobPath string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.deletes = append(c.deletes, blobPath)
}

func (c *recordingCleanup) Stop() {}

func (c *recordingCleanup) deleted() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]string{}, c.deletes...)
}
