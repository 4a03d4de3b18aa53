package models

import (
	"time"
)

type Photo struct {
	ID        string    `json:"id"`
	AlbumID   string    `json:"albumId"`
	URL       string    `json:"url"`
	BlobPath  string    `json:"blobPath"`
	CreatedAt time.Time `json:"createdAt"`
}
