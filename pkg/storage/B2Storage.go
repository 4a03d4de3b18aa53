package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/adampresley/adamgokit/retrier"
	"github.com/adampresley/adamgokit/s3"
	"github.com/adampresley/adamgokit/s3/getoptions"
	"github.com/adampresley/adamgokit/s3/listoptions"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type B2StorageConfig struct {
	Bucket          string
	DownloadBaseURL string
	S3Client        s3.S3Client
}

/*
B2Storage talks to a Backblaze B2 bucket (or any S3-compatible blob service)
through its S3 API. Public object URLs are built from the bucket's friendly
download base URL.
*/
type B2Storage struct {
	bucket          string
	downloadBaseURL string
	s3Client        s3.S3Client
}

func NewB2Storage(config B2StorageConfig) B2Storage {
	return B2Storage{
		bucket:          strings.TrimSuffix(config.Bucket, "/"),
		downloadBaseURL: strings.TrimSuffix(config.DownloadBaseURL, "/"),
		s3Client:        config.S3Client,
	}
}

func (b B2Storage) urlPrefix() string {
	return fmt.Sprintf("%s/file/%s/", b.downloadBaseURL, b.bucket)
}

func (b B2Storage) Upload(ctx context.Context, path string, data io.Reader, contentType string) (UploadResult, error) {
	var (
		err error
		buf bytes.Buffer
	)

	/*
	 * The upload is retried, so the payload has to be re-readable.
	 */
	if _, err = io.Copy(&buf, data); err != nil {
		return UploadResult{}, fmt.Errorf("error reading upload payload for '%s': %w", path, err)
	}

	retrier.Retry(func() error {
		if _, err = b.s3Client.Put(b.bucket, path, bytes.NewReader(buf.Bytes())); err != nil {
			slog.Error("upload attempt failed. trying again", "path", path, "error", err)
			return err
		}

		return nil
	})

	if err != nil {
		return UploadResult{}, fmt.Errorf("error uploading '%s' to bucket '%s': %w", path, b.bucket, err)
	}

	return UploadResult{
		URL:      b.urlPrefix() + path,
		BlobPath: path,
	}, nil
}

func (b B2Storage) Delete(ctx context.Context, url, blobPath string) error {
	if url != "" {
		if IsLegacyBlobURL(url) {
			slog.Warn("legacy blob URL. skipping backend delete", "url", url)
			return nil
		}

		if !strings.HasPrefix(url, b.urlPrefix()) {
			slog.Warn("stored URL does not belong to the configured bucket. skipping backend delete", "url", url)
			return nil
		}
	}

	if _, err := b.s3Client.Delete(b.bucket, []string{blobPath}); err != nil {
		return fmt.Errorf("error deleting '%s' from bucket '%s': %w", blobPath, b.bucket, err)
	}

	return nil
}

func (b B2Storage) Read(ctx context.Context, path string) (io.ReadCloser, string, error) {
	object, err := b.s3Client.Get(
		b.bucket,
		path,
		getoptions.WithContext(ctx),
	)

	if err != nil {
		return nil, "", fmt.Errorf("error getting '%s' from bucket '%s': %w", path, b.bucket, err)
	}

	return object.Body, object.ContentType, nil
}

func (b B2Storage) List(ctx context.Context, prefix string) ([]Object, error) {
	response, err := b.s3Client.List(
		b.bucket,
		prefix,
		listoptions.WithGetAll(),
		listoptions.WithFilter(func(obj types.Object) bool {
			return !strings.HasSuffix(aws.ToString(obj.Key), "/")
		}),
	)

	if err != nil {
		return nil, fmt.Errorf("error listing prefix '%s' in bucket '%s': %w", prefix, b.bucket, err)
	}

	result := []Object{}

	for _, obj := range response.Objects {
		result = append(result, Object{
			Key:          obj.Key,
			LastModified: obj.LastModified,
		})
	}

	return result, nil
}

func (b B2Storage) PathForURL(url string) (string, bool) {
	if !strings.HasPrefix(url, b.urlPrefix()) {
		return "", false
	}

	return strings.TrimPrefix(url, b.urlPrefix()), true
}
