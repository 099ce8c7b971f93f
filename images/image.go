// Package images - Image decoding, validation and geometry for detection.
package images

import (
	"bytes"
	"image"
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

// ErrInvalidImage is returned when an image is absent, cannot be decoded or has
// no pixels.
var ErrInvalidImage = errors.New("invalid image")

// ImageFormat represents supported image formats
type ImageFormat string

// ImageFormat constants
const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatWebP is the WebP image format.
	FormatWebP ImageFormat = "webp"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
	// FormatBMP is the BMP image format.
	FormatBMP ImageFormat = "bmp"
)

// Validate reports whether img can be fed to the pipeline.
//
// Arguments:
//   - img: The decoded image.
//
// Returns:
//   - error: ErrInvalidImage (wrapped) when img is nil or has an empty bounds rectangle.
func Validate(img image.Image) error {
	if img == nil {
		return errors.Wrap(ErrInvalidImage, "image is nil")
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return errors.Wrapf(ErrInvalidImage, "image has no pixels (%dx%d)", b.Dx(), b.Dy())
	}
	return nil
}

// Decode decodes encoded image bytes (JPEG, PNG, BMP or WebP).
//
// Arguments:
//   - data: The encoded image bytes.
//
// Returns:
//   - image.Image: The decoded image.
//   - ImageFormat: The detected format.
//   - error: ErrInvalidImage (wrapped) when the bytes cannot be decoded.
func Decode(data []byte) (image.Image, ImageFormat, error) {
	if len(data) == 0 {
		return nil, "", errors.Wrap(ErrInvalidImage, "no image data")
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", errors.Wrapf(ErrInvalidImage, "decode: %v", err)
	}
	if err := Validate(img); err != nil {
		return nil, "", err
	}

	return img, ImageFormat(format), nil
}
