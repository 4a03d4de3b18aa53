package imaging

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngImage(t *testing.T, width, height int) []byte {
	var buf bytes.Buffer

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	require.NoError(t, png.Encode(&buf, img))

	return buf.Bytes()
}

func TestResizeToWidthShrinksWideImages(t *testing.T) {
	data := pngImage(t, 2000, 1000)

	resized, err := ResizeToWidth(data, 800, DefaultQuality)
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(resized))
	require.NoError(t, err)

	assert.Equal(t, 800, img.Bounds().Dx())
	assert.Equal(t, 400, img.Bounds().Dy(), "aspect ratio should be preserved")
}

func TestResizeToWidthNeverEnlarges(t *testing.T) {
	data := pngImage(t, 400, 300)

	resized, err := ResizeToWidth(data, 1200, DefaultQuality)
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(resized))
	require.NoError(t, err)

	assert.Equal(t, 400, img.Bounds().Dx())
}

func TestResizeToWidthRejectsUndecodableData(t *testing.T) {
	_, err := ResizeToWidth([]byte("not an image"), 800, DefaultQuality)
	assert.Error(t, err)
}

func TestResizeToWidthClampsQuality(t *testing.T) {
	data := pngImage(t, 100, 100)

	_, err := ResizeToWidth(data, 800, -5)
	assert.NoError(t, err)

	_, err = ResizeToWidth(data, 800, 400)
	assert.NoError(t, err)
}
