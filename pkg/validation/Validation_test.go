package validation

import (
	"strings"
	"testing"

	"github.com/adampresley/photovault/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateImageFile(t *testing.T) {
	tests := []struct {
		name    string
		file    FileInfo
		wantErr bool
	}{
		{"valid jpeg", FileInfo{Name: "a.jpg", ContentType: "image/jpeg", Size: 1024}, false},
		{"valid webp", FileInfo{Name: "a.webp", ContentType: "image/webp", Size: 1024}, false},
		{"disallowed type", FileInfo{Name: "a.svg", ContentType: "image/svg+xml", Size: 1024}, true},
		{"not an image", FileInfo{Name: "a.txt", ContentType: "text/plain", Size: 1024}, true},
		{"too large", FileInfo{Name: "a.jpg", ContentType: "image/jpeg", Size: MaxFileSize + 1}, true},
		{"empty", FileInfo{Name: "a.jpg", ContentType: "image/jpeg", Size: 0}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := ValidateImageFile(test.file)

			if test.wantErr {
				var validationErr *models.ValidationError
				require.ErrorAs(t, err, &validationErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateImageFilesBatchLimits(t *testing.T) {
	assert.Error(t, ValidateImageFiles([]FileInfo{}))

	tooMany := make([]FileInfo, MaxFilesPerUpload+1)

	for i := range tooMany {
		tooMany[i] = FileInfo{Name: "a.jpg", ContentType: "image/jpeg", Size: 1024}
	}

	assert.Error(t, ValidateImageFiles(tooMany))
	assert.NoError(t, ValidateImageFiles(tooMany[:MaxFilesPerUpload]))
}

func TestValidateImageFilesRejectsWholeBatchOnOneBadFile(t *testing.T) {
	files := []FileInfo{
		{Name: "good.jpg", ContentType: "image/jpeg", Size: 1024},
		{Name: "bad.txt", ContentType: "text/plain", Size: 1024},
	}

	assert.Error(t, ValidateImageFiles(files))
}

func TestSniffImageType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
		ok   bool
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00}, "image/jpeg", true},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00}, "image/png", true},
		{"gif87", []byte("GIF87a trailer"), "image/gif", true},
		{"gif89", []byte("GIF89a trailer"), "image/gif", true},
		{"webp", []byte("RIFF0000WEBPVP8 "), "image/webp", true},
		{"avif", []byte("0000ftypavif0000"), "image/avif", true},
		{"plain text", []byte("hello there, not an image"), "", false},
		{"empty", []byte{}, "", false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, ok := SniffImageType(test.data)
			assert.Equal(t, test.ok, ok)
			assert.Equal(t, test.want, got)
		})
	}
}

func TestValidateImageContentRejectsSpoofedType(t *testing.T) {
	file := FileInfo{Name: "evil.jpg", ContentType: "image/jpeg", Size: 12}

	err := ValidateImageContent(file, []byte("<html></html>"))

	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Message, "evil.jpg")
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"photo.jpg", "photo.jpg"},
		{"my photo.jpg", "my-photo.jpg"},
		{"../../etc/passwd", "-.-etc-passwd"},
		{"weird<>chars?.png", "weird--chars-.png"},
		{".hidden", "hidden"},
		{"dots....everywhere.jpg", "dots.everywhere.jpg"},
	}

	for _, test := range tests {
		assert.Equal(t, test.want, SanitizeFilename(test.in), "input: %s", test.in)
	}
}

func TestSanitizeFilenameCapsLength(t *testing.T) {
	long := strings.Repeat("a", 300) + ".jpg"
	assert.Len(t, SanitizeFilename(long), 255)
}

func TestValidateAlbumTitle(t *testing.T) {
	assert.Error(t, ValidateAlbumTitle(""))
	assert.Error(t, ValidateAlbumTitle("   "))
	assert.Error(t, ValidateAlbumTitle("x"))
	assert.Error(t, ValidateAlbumTitle(strings.Repeat("a", MaxTitleLength+1)))
	assert.NoError(t, ValidateAlbumTitle("Beach Day"))
}

func TestValidateOptionalText(t *testing.T) {
	assert.NoError(t, ValidateOptionalText("", 10))
	assert.NoError(t, ValidateOptionalText("short", 10))
	assert.Error(t, ValidateOptionalText(strings.Repeat("a", 11), 10))
}
