package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/adampresley/photovault/pkg/models"
	"github.com/adampresley/photovault/pkg/storage"
)

const (
	albumsIndexPrefix = "metadata/albums-index"
	photosPrefix      = "metadata/photos"
)

type MetadataServicer interface {
	GetAlbums() ([]models.Album, error)
	SaveAlbums(albums []models.Album) error
	GetPhotosForAlbum(albumID string) ([]models.Photo, error)
	SavePhotosForAlbum(albumID string, photos []models.Photo) error
}

type MetadataServiceConfig struct {
	Storage storage.Adapter
}

/*
MetadataService persists the album index and per-album photo lists as JSON
documents through the storage backend. Every save writes a brand new
versioned object and reads take the newest one; the backing blob store has
no atomic read-modify-write, so concurrent writers are last-write-wins on
the whole document. Old versions are never compacted, which means listings
grow with every save.
*/
type MetadataService struct {
	storage storage.Adapter
}

func NewMetadataService(config MetadataServiceConfig) MetadataService {
	return MetadataService{
		storage: config.Storage,
	}
}

/*
versionKey embeds a zero-padded nanosecond timestamp so the newest version
is always the lexically greatest key under the prefix.
*/
func versionKey(prefix string) string {
	return fmt.Sprintf("%s/v%020d.json", prefix, time.Now().UnixNano())
}

func (s MetadataService) saveDocument(prefix string, value any) error {
	var (
		err error
		b   []byte
	)

	if b, err = json.Marshal(value); err != nil {
		return fmt.Errorf("error marshaling metadata document for '%s': %w", prefix, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	key := versionKey(prefix)

	if _, err = s.storage.Upload(ctx, key, bytes.NewReader(b), "application/json"); err != nil {
		return fmt.Errorf("error saving metadata document '%s': %w", key, err)
	}

	return nil
}

func (s MetadataService) loadDocument(prefix string, target any) error {
	var (
		err     error
		objects []storage.Object
	)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	if objects, err = s.storage.List(ctx, prefix); err != nil {
		return fmt.Errorf("error listing metadata versions under '%s': %w", prefix, err)
	}

	if len(objects) == 0 {
		return nil
	}

	sort.Slice(objects, func(i, j int) bool {
		return objects[i].Key < objects[j].Key
	})

	latest := objects[len(objects)-1].Key
	body, _, err := s.storage.Read(ctx, latest)

	if err != nil {
		return fmt.Errorf("error reading metadata document '%s': %w", latest, err)
	}

	defer body.Close()

	b, err := io.ReadAll(body)

	if err != nil {
		return fmt.Errorf("error reading metadata document body '%s': %w", latest, err)
	}

	if err = json.Unmarshal(b, target); err != nil {
		return fmt.Errorf("error unmarshaling metadata document '%s': %w", latest, err)
	}

	return nil
}

func (s MetadataService) GetAlbums() ([]models.Album, error) {
	albums := []models.Album{}

	if err := s.loadDocument(albumsIndexPrefix, &albums); err != nil {
		return nil, err
	}

	return albums, nil
}

func (s MetadataService) SaveAlbums(albums []models.Album) error {
	return s.saveDocument(albumsIndexPrefix, albums)
}

func (s MetadataService) GetPhotosForAlbum(albumID string) ([]models.Photo, error) {
	photos := []models.Photo{}

	if err := s.loadDocument(photosPrefix+"/"+albumID, &photos); err != nil {
		return nil, err
	}

	return photos, nil
}

func (s MetadataService) SavePhotosForAlbum(albumID string, photos []models.Photo) error {
	return s.saveDocument(photosPrefix+"/"+albumID, photos)
}
