package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	/* Register decoders for the formats the proxy can resize. */
	_ "image/gif"
	_ "image/png"

	"github.com/nfnt/resize"
)

const (
	DefaultWidth   = 1200
	DefaultQuality = 75
	MaxWidth       = 4000
)

/*
ResizeToWidth scales an image down to maxWidth, preserving aspect ratio and
never enlarging, and re-encodes it as JPEG.
*/
func ResizeToWidth(data []byte, maxWidth uint, quality int) ([]byte, error) {
	var (
		err error
		img image.Image
		buf bytes.Buffer
	)

	if img, _, err = image.Decode(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("error decoding image: %w", err)
	}

	if uint(img.Bounds().Dx()) > maxWidth {
		img = resize.Resize(maxWidth, 0, img, resize.Lanczos3)
	}

	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	if err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("error encoding image: %w", err)
	}

	return buf.Bytes(), nil
}
