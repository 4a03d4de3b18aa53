package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/adampresley/photovault/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPhotoFixture() (PhotoService, MetadataService, *memoryBackend, *recordingCleanup) {
	backend := newMemoryBackend()
	cleanup := &recordingCleanup{}

	metadata := NewMetadataService(MetadataServiceConfig{
		Storage: backend,
	})

	service := NewPhotoService(PhotoServiceConfig{
		Cleanup:  cleanup,
		Metadata: metadata,
		Storage:  backend,
	})

	return service, metadata, backend, cleanup
}

func jpegFile(name string) UploadFile {
	data := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, []byte("fake jpeg body")...)

	return UploadFile{
		Name:        name,
		ContentType: "image/jpeg",
		Size:        int64(len(data)),
		Data:        data,
	}
}

func TestUploadPhotosRejectsBatchBeforeAnyBackendCall(t *testing.T) {
	service, _, backend, _ := newPhotoFixture()

	files := []UploadFile{
		jpegFile("good.jpg"),
		{Name: "notes.txt", ContentType: "text/plain", Size: 10, Data: []byte("plain text")},
	}

	_, err := service.UploadPhotos(context.Background(), "album-1", files)

	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Empty(t, backend.uploads)
}

func TestUploadPhotosRejectsSpoofedContent(t *testing.T) {
	service, _, backend, _ := newPhotoFixture()

	files := []UploadFile{
		{Name: "evil.jpg", ContentType: "image/jpeg", Size: 12, Data: []byte("not an image")},
	}

	_, err := service.UploadPhotos(context.Background(), "album-1", files)

	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Empty(t, backend.uploads)
}

func TestUploadPhotosSavesMetadataAfterAllSucceed(t *testing.T) {
	service, metadata, _, _ := newPhotoFixture()

	files := []UploadFile{jpegFile("one.jpg"), jpegFile("two.jpg")}

	photos, err := service.UploadPhotos(context.Background(), "album-1", files)
	require.NoError(t, err)
	require.Len(t, photos, 2)

	for _, photo := range photos {
		assert.Equal(t, "album-1", photo.AlbumID)
		assert.True(t, strings.HasPrefix(photo.BlobPath, "albums/album-1/"))
		assert.NotEmpty(t, photo.URL)
	}

	saved, err := metadata.GetPhotosForAlbum("album-1")
	require.NoError(t, err)
	assert.Len(t, saved, 2)
}

func TestUploadPhotosRollsBackOnMidBatchFailure(t *testing.T) {
	service, metadata, backend, _ := newPhotoFixture()

	photoUploads := 0
	backend.failUpload = func(path string) bool {
		if !strings.HasPrefix(path, "albums/") {
			return false
		}

		photoUploads++
		return photoUploads == 3
	}

	files := []UploadFile{jpegFile("one.jpg"), jpegFile("two.jpg"), jpegFile("three.jpg")}

	_, err := service.UploadPhotos(context.Background(), "album-1", files)
	require.Error(t, err)

	var validationErr *models.ValidationError
	assert.False(t, errors.As(err, &validationErr), "a backend failure is not a validation error")

	assert.Empty(t, backend.objectKeysWithPrefix("albums/"), "uploaded blobs should be rolled back")

	saved, err := metadata.GetPhotosForAlbum("album-1")
	require.NoError(t, err)
	assert.Empty(t, saved, "metadata should be untouched after a failed batch")
}

func TestUploadPhotosAppendsToExistingAlbum(t *testing.T) {
	service, metadata, _, _ := newPhotoFixture()

	existing := []models.Photo{
		{ID: "old", AlbumID: "album-1", URL: "mem://albums/album-1/old.jpg", BlobPath: "albums/album-1/old.jpg", CreatedAt: time.Now()},
	}

	require.NoError(t, metadata.SavePhotosForAlbum("album-1", existing))
	time.Sleep(time.Millisecond)

	_, err := service.UploadPhotos(context.Background(), "album-1", []UploadFile{jpegFile("new.jpg")})
	require.NoError(t, err)

	saved, err := metadata.GetPhotosForAlbum("album-1")
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, "old", saved[0].ID)
}

func TestUploadPhotosSanitizesFilenames(t *testing.T) {
	service, _, backend, _ := newPhotoFixture()

	_, err := service.UploadPhotos(context.Background(), "album-1", []UploadFile{jpegFile("../../etc/passwd.jpg")})
	require.NoError(t, err)

	require.Len(t, backend.uploads, 1)
	assert.NotContains(t, backend.uploads[0], "..")
}

func TestDeletePhotoRemovesMetadataAndQueuesCleanup(t *testing.T) {
	service, metadata, _, cleanup := newPhotoFixture()

	photos, err := service.UploadPhotos(context.Background(), "album-1", []UploadFile{jpegFile("one.jpg")})
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	require.NoError(t, service.DeletePhoto("album-1", photos[0].ID))

	saved, err := metadata.GetPhotosForAlbum("album-1")
	require.NoError(t, err)
	assert.Empty(t, saved)

	assert.Equal(t, []string{photos[0].BlobPath}, cleanup.deleted())
}

func TestDeletePhotoNotFound(t *testing.T) {
	service, _, _, _ := newPhotoFixture()

	err := service.DeletePhoto("album-1", "missing")
	assert.ErrorIs(t, err, models.ErrPhotoNotFound)
}
