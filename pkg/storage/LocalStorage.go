package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

type LocalStorageConfig struct {
	RootDir   string
	URLPrefix string
}

/*
LocalStorage keeps blobs on the local filesystem under RootDir. URLs are
app-relative so the photo proxy serves the bytes; nothing under RootDir is
exposed directly.
*/
type LocalStorage struct {
	rootDir   string
	urlPrefix string
}

var contentTypesByExtension = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".avif": "image/avif",
	".json": "application/json",
}

func NewLocalStorage(config LocalStorageConfig) LocalStorage {
	return LocalStorage{
		rootDir:   config.RootDir,
		urlPrefix: strings.TrimSuffix(config.URLPrefix, "/"),
	}
}

/*
resolve maps a blob path onto the filesystem, rejecting anything that would
escape the storage root.
*/
func (l LocalStorage) resolve(path string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(path))

	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid blob path '%s'", path)
	}

	return filepath.Join(l.rootDir, cleaned), nil
}

func (l LocalStorage) Upload(ctx context.Context, path string, data io.Reader, contentType string) (UploadResult, error) {
	var (
		err      error
		fullPath string
		f        *os.File
	)

	if fullPath, err = l.resolve(path); err != nil {
		return UploadResult{}, err
	}

	if err = os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return UploadResult{}, fmt.Errorf("error creating directory for '%s': %w", path, err)
	}

	if f, err = os.Create(fullPath); err != nil {
		return UploadResult{}, fmt.Errorf("error creating file '%s': %w", path, err)
	}

	defer f.Close()

	if _, err = io.Copy(f, data); err != nil {
		return UploadResult{}, fmt.Errorf("error writing file '%s': %w", path, err)
	}

	return UploadResult{
		URL:      l.urlPrefix + "/" + path,
		BlobPath: path,
	}, nil
}

func (l LocalStorage) Delete(ctx context.Context, url, blobPath string) error {
	fullPath, err := l.resolve(blobPath)

	if err != nil {
		return err
	}

	if err = os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("error deleting file '%s': %w", blobPath, err)
	}

	return nil
}

func (l LocalStorage) Read(ctx context.Context, path string) (io.ReadCloser, string, error) {
	var (
		err      error
		fullPath string
		f        *os.File
	)

	if fullPath, err = l.resolve(path); err != nil {
		return nil, "", err
	}

	if f, err = os.Open(fullPath); err != nil {
		return nil, "", fmt.Errorf("error opening file '%s': %w", path, err)
	}

	contentType, ok := contentTypesByExtension[strings.ToLower(filepath.Ext(fullPath))]

	if !ok {
		contentType = "application/octet-stream"
	}

	return f, contentType, nil
}

func (l LocalStorage) List(ctx context.Context, prefix string) ([]Object, error) {
	var (
		err  error
		root string
	)

	if root, err = l.resolve(prefix); err != nil {
		return nil, err
	}

	result := []Object{}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if d.IsDir() {
			return nil
		}

		info, infoErr := d.Info()

		if infoErr != nil {
			return infoErr
		}

		rel, relErr := filepath.Rel(l.rootDir, path)

		if relErr != nil {
			return relErr
		}

		result = append(result, Object{
			Key:          filepath.ToSlash(rel),
			LastModified: info.ModTime(),
		})

		return nil
	})

	if err != nil {
		if os.IsNotExist(err) {
			return []Object{}, nil
		}

		return nil, fmt.Errorf("error listing prefix '%s': %w", prefix, err)
	}

	return result, nil
}

func (l LocalStorage) PathForURL(url string) (string, bool) {
	if !strings.HasPrefix(url, l.urlPrefix+"/") {
		return "", false
	}

	return strings.TrimPrefix(url, l.urlPrefix+"/"), true
}
