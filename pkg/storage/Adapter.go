package storage

import (
	"context"
	"io"
	"strings"
	"time"
)

type UploadResult struct {
	URL      string
	BlobPath string
}

type Object struct {
	Key          string
	LastModified time.Time
}

/*
Adapter is the uniform contract over the configured storage backend. Exactly
one backend is selected at startup based on configuration; there is no
runtime switching.
*/
type Adapter interface {
	Upload(ctx context.Context, path string, data io.Reader, contentType string) (UploadResult, error)
	Delete(ctx context.Context, url, blobPath string) error
	Read(ctx context.Context, path string) (io.ReadCloser, string, error)
	List(ctx context.Context, prefix string) ([]Object, error)
	PathForURL(url string) (string, bool)
}

/*
IsLegacyBlobURL reports whether a stored URL points at the retired public
blob service. Those objects cannot be deleted through the current backend,
so deletes of them are metadata-only.
*/
func IsLegacyBlobURL(url string) bool {
	return strings.Contains(url, "blob.vercel-storage.com")
}
