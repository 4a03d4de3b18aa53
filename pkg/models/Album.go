package models

import (
	"time"
)

type Album struct {
	ID                 string    `json:"id"`
	Slug               string    `json:"slug"`
	Title              string    `json:"title"`
	Subtitle           string    `json:"subtitle,omitempty"`
	Quote              string    `json:"quote,omitempty"`
	Date               string    `json:"date,omitempty"`
	CoverPhotoURL      string    `json:"coverPhotoUrl,omitempty"`
	CoverPhotoBlobPath string    `json:"coverPhotoBlobPath,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
}
