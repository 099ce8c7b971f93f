package images

import (
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/sirupsen/logrus"
)

// Orientation is the EXIF orientation tag value (1-8) recorded by the camera.
type Orientation int

// EXIF orientation values.
const (
	OrientationUnknown    Orientation = 0
	OrientationNormal     Orientation = 1
	OrientationFlipH      Orientation = 2
	OrientationRotate180  Orientation = 3
	OrientationFlipV      Orientation = 4
	OrientationTranspose  Orientation = 5
	OrientationRotate90   Orientation = 6 // stored rotated, display needs 90° clockwise
	OrientationTransverse Orientation = 7
	OrientationRotate270  Orientation = 8 // stored rotated, display needs 270° clockwise
)

// FixOrientation returns img rotated or flipped so it displays upright for the given
// EXIF orientation.
//
// imaging rotates counter-clockwise, so a 90° clockwise correction is Rotate270.
// Normal, zero and unknown orientations return img itself.
//
// Arguments:
//   - img: The decoded image.
//   - o: The EXIF orientation.
//
// Returns:
//   - image.Image: The upright image; a new image unless no transform applies.
func FixOrientation(img image.Image, o Orientation) image.Image {
	switch o {
	case OrientationFlipH:
		return imaging.FlipH(img)
	case OrientationRotate180:
		return imaging.Rotate180(img)
	case OrientationFlipV:
		return imaging.FlipV(img)
	case OrientationTranspose:
		return imaging.Transpose(img)
	case OrientationRotate90:
		return imaging.Rotate270(img)
	case OrientationTransverse:
		return imaging.Transverse(img)
	case OrientationRotate270:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// ReadOrientation reads the EXIF orientation tag from an encoded image.
//
// A missing orientation tag is not an error and yields OrientationNormal.
func ReadOrientation(r io.Reader) (Orientation, error) {
	x, err := exif.Decode(r)
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return OrientationUnknown, errors.Wrap(err, "decode exif")
	}

	tag, err := x.Get(exif.Orientation)
	if err != nil {
		if exif.IsTagNotPresentError(err) {
			return OrientationNormal, nil
		}
		return OrientationUnknown, errors.Wrap(err, "read orientation tag")
	}

	v, err := tag.Int(0)
	if err != nil {
		return OrientationUnknown, errors.Wrap(err, "parse orientation tag")
	}

	return Orientation(v), nil
}

// FixOrientationFromSource reads the orientation metadata from r and corrects img.
//
// Metadata failures are logged and the original image is returned; they never
// fail the caller.
//
// Arguments:
//   - img: The decoded image.
//   - r: A reader over the encoded bytes img was decoded from.
//   - logger: Receives metadata read failures. Nil uses the standard logger.
//
// Returns:
//   - image.Image: The upright image, or img when no correction applies.
func FixOrientationFromSource(img image.Image, r io.Reader, logger logrus.FieldLogger) image.Image {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	o, err := ReadOrientation(r)
	if err != nil {
		logger.WithError(err).Error("failed to read image orientation, using image as-is")
		return img
	}

	return FixOrientation(img, o)
}
