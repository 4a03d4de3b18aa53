package validation

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/adampresley/photovault/pkg/models"
)

const (
	MaxFileSize       = 15 * 1024 * 1024
	MaxFilesPerUpload = 20

	MinTitleLength    = 2
	MaxTitleLength    = 200
	MaxSubtitleLength = 200
	MaxQuoteLength    = 500
)

var allowedImageTypes = []string{
	"image/jpeg",
	"image/jpg",
	"image/png",
	"image/gif",
	"image/webp",
	"image/avif",
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
	repeatedDots        = regexp.MustCompile(`\.+`)
)

type FileInfo struct {
	Name        string
	ContentType string
	Size        int64
}

func invalid(format string, args ...any) error {
	return &models.ValidationError{Message: fmt.Sprintf(format, args...)}
}

func isAllowedImageType(contentType string) bool {
	for _, allowed := range allowedImageTypes {
		if contentType == allowed {
			return true
		}
	}

	return false
}

func ValidateImageFile(file FileInfo) error {
	if !isAllowedImageType(file.ContentType) {
		return invalid("Invalid file type: %s. Allowed types: %s", file.ContentType, strings.Join(allowedImageTypes, ", "))
	}

	if file.Size > MaxFileSize {
		return invalid("File too large: %.2fMB. Maximum: %dMB", float64(file.Size)/1024/1024, MaxFileSize/1024/1024)
	}

	if file.Size == 0 {
		return invalid("File is empty")
	}

	return nil
}

func ValidateImageFiles(files []FileInfo) error {
	if len(files) == 0 {
		return invalid("No files provided")
	}

	if len(files) > MaxFilesPerUpload {
		return invalid("Too many files: %d. Maximum: %d", len(files), MaxFilesPerUpload)
	}

	for _, file := range files {
		if err := ValidateImageFile(file); err != nil {
			return err
		}
	}

	return nil
}

/*
SniffImageType inspects magic bytes and returns the detected image MIME
type. This is what defends against MIME spoofing: the declared Content-Type
is attacker-controlled, the first bytes of the payload are not.
*/
func SniffImageType(data []byte) (string, bool) {
	switch {
	case len(data) >= 3 && bytes.Equal(data[:3], []byte{0xFF, 0xD8, 0xFF}):
		return "image/jpeg", true

	case len(data) >= 8 && bytes.Equal(data[:8], []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}):
		return "image/png", true

	case len(data) >= 6 && (bytes.Equal(data[:6], []byte("GIF87a")) || bytes.Equal(data[:6], []byte("GIF89a"))):
		return "image/gif", true

	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return "image/webp", true

	case len(data) >= 12 && bytes.Equal(data[4:12], []byte("ftypavif")):
		return "image/avif", true
	}

	return "", false
}

func ValidateImageContent(file FileInfo, data []byte) error {
	if _, ok := SniffImageType(data); !ok {
		return invalid("File content of '%s' does not match an allowed image type", file.Name)
	}

	return nil
}

/*
SanitizeFilename strips a client-supplied filename down to [A-Za-z0-9._-],
collapses dot runs, drops a leading dot and caps the length at 255.
*/
func SanitizeFilename(filename string) string {
	result := unsafeFilenameChars.ReplaceAllString(filename, "-")
	result = repeatedDots.ReplaceAllString(result, ".")
	result = strings.TrimPrefix(result, ".")

	if len(result) > 255 {
		result = result[:255]
	}

	return result
}

func ValidateAlbumTitle(title string) error {
	trimmed := strings.TrimSpace(title)

	if trimmed == "" {
		return invalid("Title is required")
	}

	if len(trimmed) < MinTitleLength {
		return invalid("Title must be at least %d characters", MinTitleLength)
	}

	if len(trimmed) > MaxTitleLength {
		return invalid("Title must be less than %d characters", MaxTitleLength)
	}

	return nil
}

func ValidateOptionalText(text string, maxLength int) error {
	if text == "" {
		return nil
	}

	if len(strings.TrimSpace(text)) > maxLength {
		return invalid("Text must be less than %d characters", maxLength)
	}

	return nil
}
