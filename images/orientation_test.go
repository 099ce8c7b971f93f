package images

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gridImage returns a w x h image whose pixel (x,y) has R=x, G=y.
func gridImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), A: 255})
		}
	}
	return img
}

// sourceXY decodes which source pixel ended up at (x,y).
func sourceXY(img image.Image, x, y int) (int, int) {
	c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	return int(c.R), int(c.G)
}

// TestFixOrientation verifies where the source corners land for every EXIF value.
func TestFixOrientation(t *testing.T) {
	const w, h = 3, 2

	tests := []struct {
		name        string
		orientation Orientation
		size        image.Point
		// topLeft is the source coordinate expected at the output origin.
		topLeft image.Point
		// bottomRight is the source coordinate expected at the last output pixel.
		bottomRight image.Point
	}{
		{"flip horizontal", OrientationFlipH, image.Pt(3, 2), image.Pt(2, 0), image.Pt(0, 1)},
		{"rotate 180", OrientationRotate180, image.Pt(3, 2), image.Pt(2, 1), image.Pt(0, 0)},
		{"flip vertical", OrientationFlipV, image.Pt(3, 2), image.Pt(0, 1), image.Pt(2, 0)},
		{"transpose", OrientationTranspose, image.Pt(2, 3), image.Pt(0, 0), image.Pt(2, 1)},
		{"rotate 90 clockwise", OrientationRotate90, image.Pt(2, 3), image.Pt(0, 1), image.Pt(2, 0)},
		{"transverse", OrientationTransverse, image.Pt(2, 3), image.Pt(2, 1), image.Pt(0, 0)},
		{"rotate 270 clockwise", OrientationRotate270, image.Pt(2, 3), image.Pt(2, 0), image.Pt(0, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := gridImage(w, h)
			out := FixOrientation(src, tt.orientation)

			b := out.Bounds()
			require.Equal(t, tt.size, b.Size())

			sx, sy := sourceXY(out, b.Min.X, b.Min.Y)
			assert.Equal(t, tt.topLeft, image.Pt(sx, sy), "top-left")

			sx, sy = sourceXY(out, b.Max.X-1, b.Max.Y-1)
			assert.Equal(t, tt.bottomRight, image.Pt(sx, sy), "bottom-right")
		})
	}
}

func TestFixOrientation_Unchanged(t *testing.T) {
	src := gridImage(4, 4)
	for _, o := range []Orientation{OrientationUnknown, OrientationNormal, Orientation(9), Orientation(-1)} {
		assert.Same(t, src, FixOrientation(src, o), "orientation %d", o)
	}
}

// TestFixOrientationFromSource_ReadFailure ensures unreadable metadata is logged
// and the image passes through untouched.
func TestFixOrientationFromSource_ReadFailure(t *testing.T) {
	src := gridImage(4, 2)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	logger, hook := test.NewNullLogger()
	out := FixOrientationFromSource(src, &buf, logger)

	assert.Same(t, src, out)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestValidateAndDecode(t *testing.T) {
	assert.ErrorIs(t, Validate(nil), ErrInvalidImage)
	assert.ErrorIs(t, Validate(image.NewNRGBA(image.Rect(0, 0, 0, 5))), ErrInvalidImage)
	assert.NoError(t, Validate(gridImage(1, 1)))

	_, _, err := Decode(nil)
	assert.ErrorIs(t, err, ErrInvalidImage)

	_, _, err = Decode([]byte("definitely not an image"))
	assert.ErrorIs(t, err, ErrInvalidImage)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, gridImage(5, 3)))
	img, format, err := Decode(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, format)
	assert.Equal(t, image.Pt(5, 3), img.Bounds().Size())
}
