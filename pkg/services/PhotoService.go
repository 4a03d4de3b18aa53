package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/adampresley/photovault/pkg/models"
	"github.com/adampresley/photovault/pkg/storage"
	"github.com/adampresley/photovault/pkg/validation"
	"github.com/google/uuid"
)

type UploadFile struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

type PhotoServicer interface {
	GetPhotosForAlbum(albumID string) ([]models.Photo, error)
	UploadPhotos(ctx context.Context, albumID string, files []UploadFile) ([]models.Photo, error)
	DeletePhoto(albumID, photoID string) error
}

type PhotoServiceConfig struct {
	Cleanup  CleanupServicer
	Metadata MetadataServicer
	Storage  storage.Adapter
}

type PhotoService struct {
	cleanup  CleanupServicer
	metadata MetadataServicer
	storage  storage.Adapter
}

func NewPhotoService(config PhotoServiceConfig) PhotoService {
	return PhotoService{
		cleanup:  config.Cleanup,
		metadata: config.Metadata,
		storage:  config.Storage,
	}
}

func (s PhotoService) GetPhotosForAlbum(albumID string) ([]models.Photo, error) {
	return s.metadata.GetPhotosForAlbum(albumID)
}

/*
UploadPhotos is all-or-nothing at the batch level. Validation rejects the
whole batch before any backend call; a backend failure mid-loop deletes
everything already uploaded and leaves metadata untouched. Metadata is only
written once every file is in the backend.
*/
func (s PhotoService) UploadPhotos(ctx context.Context, albumID string, files []UploadFile) ([]models.Photo, error) {
	var (
		err      error
		existing []models.Photo
	)

	fileInfos := make([]validation.FileInfo, len(files))

	for i, file := range files {
		fileInfos[i] = validation.FileInfo{
			Name:        file.Name,
			ContentType: file.ContentType,
			Size:        file.Size,
		}
	}

	if err = validation.ValidateImageFiles(fileInfos); err != nil {
		return nil, err
	}

	/*
	 * Deep validation: the declared type already passed, now the content
	 * has to actually be an image.
	 */
	for i, file := range files {
		if err = validation.ValidateImageContent(fileInfos[i], file.Data); err != nil {
			return nil, err
		}
	}

	if existing, err = s.metadata.GetPhotosForAlbum(albumID); err != nil {
		return nil, fmt.Errorf("error loading photos for album '%s': %w", albumID, err)
	}

	newPhotos := []models.Photo{}
	uploaded := []storage.UploadResult{}

	for _, file := range files {
		photoID := uuid.NewString()
		safeName := validation.SanitizeFilename(file.Name)
		blobPath := fmt.Sprintf("albums/%s/%s-%s", albumID, photoID, safeName)

		result, uploadErr := s.storage.Upload(ctx, blobPath, bytes.NewReader(file.Data), file.ContentType)

		if uploadErr != nil {
			s.rollback(uploaded)
			return nil, fmt.Errorf("error uploading '%s': %w", file.Name, uploadErr)
		}

		uploaded = append(uploaded, result)

		newPhotos = append(newPhotos, models.Photo{
			ID:        photoID,
			AlbumID:   albumID,
			URL:       result.URL,
			BlobPath:  result.BlobPath,
			CreatedAt: time.Now(),
		})
	}

	if err = s.metadata.SavePhotosForAlbum(albumID, append(existing, newPhotos...)); err != nil {
		s.rollback(uploaded)
		return nil, fmt.Errorf("error saving photos for album '%s': %w", albumID, err)
	}

	return newPhotos, nil
}

/*
rollback deletes already uploaded blobs after a mid-batch failure. Best
effort: a blob that refuses to delete is logged and orphaned, never blocks
the error response.
*/
func (s PhotoService) rollback(uploaded []storage.UploadResult) {
	for _, result := range uploaded {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)

		if err := s.storage.Delete(ctx, result.URL, result.BlobPath); err != nil {
			slog.Error("rollback delete failed", "blobPath", result.BlobPath, "error", err)
		}

		cancel()
	}
}

/*
DeletePhoto removes the photo from metadata synchronously, then queues the
backend delete. Backend failure never surfaces to the caller.
*/
func (s PhotoService) DeletePhoto(albumID, photoID string) error {
	var (
		err    error
		photos []models.Photo
	)

	if photos, err = s.metadata.GetPhotosForAlbum(albumID); err != nil {
		return fmt.Errorf("error loading photos for album '%s': %w", albumID, err)
	}

	var target *models.Photo
	remaining := []models.Photo{}

	for _, photo := range photos {
		if photo.ID == photoID {
			p := photo
			target = &p
			continue
		}

		remaining = append(remaining, photo)
	}

	if target == nil {
		return models.ErrPhotoNotFound
	}

	if err = s.metadata.SavePhotosForAlbum(albumID, remaining); err != nil {
		return fmt.Errorf("error saving photos for album '%s': %w", albumID, err)
	}

	s.cleanup.EnqueueDelete(target.URL, target.BlobPath)
	return nil
}
