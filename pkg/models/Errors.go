package models

import (
	"fmt"
	"time"
)

var (
	ErrAlbumNotFound         = fmt.Errorf("album not found")
	ErrPhotoNotFound         = fmt.Errorf("photo not found")
	ErrUnauthorized          = fmt.Errorf("authentication required")
	ErrForbidden             = fmt.Errorf("admin authentication required")
	ErrWrongPassword         = fmt.Errorf("incorrect password")
	ErrPasswordNotConfigured = fmt.Errorf("password is not configured")
)

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type RateLimitError struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit of %d exceeded, resets at %s", e.Limit, e.ResetAt.Format(time.RFC3339))
}
