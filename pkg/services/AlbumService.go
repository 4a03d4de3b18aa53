package services

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/adampresley/photovault/pkg/models"
	"github.com/adampresley/photovault/pkg/validation"
	"github.com/google/uuid"
)

type AlbumServicer interface {
	GetAlbums() ([]models.Album, error)
	GetAlbumByID(id string) (*models.Album, error)
	GetAlbumBySlug(slug string) (*models.Album, error)
	CreateAlbum(input AlbumInput) (*models.Album, error)
	UpdateAlbum(id string, input AlbumInput) (*models.Album, error)
	DeleteAlbum(id string) error
}

type AlbumInput struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Quote    string `json:"quote"`
	Date     string `json:"date"`
}

type AlbumServiceConfig struct {
	Cleanup  CleanupServicer
	Metadata MetadataServicer
}

type AlbumService struct {
	cleanup  CleanupServicer
	metadata MetadataServicer
}

func NewAlbumService(config AlbumServiceConfig) AlbumService {
	return AlbumService{
		cleanup:  config.Cleanup,
		metadata: config.Metadata,
	}
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

func Slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = nonSlugChars.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

func validateAlbumInput(input AlbumInput) error {
	if err := validation.ValidateAlbumTitle(input.Title); err != nil {
		return err
	}

	if err := validation.ValidateOptionalText(input.Subtitle, validation.MaxSubtitleLength); err != nil {
		return err
	}

	if err := validation.ValidateOptionalText(input.Quote, validation.MaxQuoteLength); err != nil {
		return err
	}

	return nil
}

func (s AlbumService) GetAlbums() ([]models.Album, error) {
	return s.metadata.GetAlbums()
}

func (s AlbumService) GetAlbumByID(id string) (*models.Album, error) {
	albums, err := s.metadata.GetAlbums()

	if err != nil {
		return nil, err
	}

	for _, album := range albums {
		if album.ID == id {
			return &album, nil
		}
	}

	return nil, models.ErrAlbumNotFound
}

func (s AlbumService) GetAlbumBySlug(slug string) (*models.Album, error) {
	albums, err := s.metadata.GetAlbums()

	if err != nil {
		return nil, err
	}

	for _, album := range albums {
		if album.Slug == slug {
			return &album, nil
		}
	}

	return nil, models.ErrAlbumNotFound
}

/*
CreateAlbum derives a slug from the title. Collisions resolve with a
numeric suffix, so the Nth duplicate of "beach-day" becomes "beach-day-N"
deterministically.
*/
func (s AlbumService) CreateAlbum(input AlbumInput) (*models.Album, error) {
	var (
		err      error
		existing []models.Album
	)

	if err = validateAlbumInput(input); err != nil {
		return nil, err
	}

	if existing, err = s.metadata.GetAlbums(); err != nil {
		return nil, fmt.Errorf("error loading albums: %w", err)
	}

	baseSlug := Slugify(input.Title)

	if baseSlug == "" {
		baseSlug = "album"
	}

	slug := baseSlug
	suffix := 1

	for slugTaken(existing, slug) {
		slug = fmt.Sprintf("%s-%d", baseSlug, suffix)
		suffix++
	}

	album := models.Album{
		ID:        uuid.NewString(),
		Slug:      slug,
		Title:     strings.TrimSpace(input.Title),
		Subtitle:  strings.TrimSpace(input.Subtitle),
		Quote:     strings.TrimSpace(input.Quote),
		Date:      input.Date,
		CreatedAt: time.Now(),
	}

	if err = s.metadata.SaveAlbums(append(existing, album)); err != nil {
		return nil, fmt.Errorf("error saving albums: %w", err)
	}

	return &album, nil
}

/*
UpdateAlbum changes display fields only. The slug stays stable so existing
links keep working.
*/
func (s AlbumService) UpdateAlbum(id string, input AlbumInput) (*models.Album, error) {
	var (
		err    error
		albums []models.Album
	)

	if err = validateAlbumInput(input); err != nil {
		return nil, err
	}

	if albums, err = s.metadata.GetAlbums(); err != nil {
		return nil, fmt.Errorf("error loading albums: %w", err)
	}

	index := -1

	for i, album := range albums {
		if album.ID == id {
			index = i
			break
		}
	}

	if index == -1 {
		return nil, models.ErrAlbumNotFound
	}

	albums[index].Title = strings.TrimSpace(input.Title)
	albums[index].Subtitle = strings.TrimSpace(input.Subtitle)
	albums[index].Quote = strings.TrimSpace(input.Quote)
	albums[index].Date = input.Date

	if err = s.metadata.SaveAlbums(albums); err != nil {
		return nil, fmt.Errorf("error saving albums: %w", err)
	}

	return &albums[index], nil
}

/*
DeleteAlbum removes the album from the index synchronously, then hands the
owned photos to the cleanup queue one by one. The index is the source of
truth; a photo whose backend delete fails is an orphaned blob, not a
visible photo.
*/
func (s AlbumService) DeleteAlbum(id string) error {
	var (
		err    error
		albums []models.Album
		photos []models.Photo
	)

	if albums, err = s.metadata.GetAlbums(); err != nil {
		return fmt.Errorf("error loading albums: %w", err)
	}

	found := false
	remaining := []models.Album{}

	for _, album := range albums {
		if album.ID == id {
			found = true
			continue
		}

		remaining = append(remaining, album)
	}

	if !found {
		return models.ErrAlbumNotFound
	}

	if photos, err = s.metadata.GetPhotosForAlbum(id); err != nil {
		slog.Error("error loading photos for album delete. backend blobs may be orphaned", "albumID", id, "error", err)
		photos = []models.Photo{}
	}

	if err = s.metadata.SaveAlbums(remaining); err != nil {
		return fmt.Errorf("error saving albums: %w", err)
	}

	if err = s.metadata.SavePhotosForAlbum(id, []models.Photo{}); err != nil {
		slog.Error("error clearing photo list for deleted album", "albumID", id, "error", err)
	}

	for _, photo := range photos {
		s.cleanup.EnqueueDelete(photo.URL, photo.BlobPath)
	}

	return nil
}

func slugTaken(albums []models.Album, slug string) bool {
	for _, album := range albums {
		if album.Slug == slug {
			return true
		}
	}

	return false
}
