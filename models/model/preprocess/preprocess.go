// Package preprocess turns decoded images into model-ready NCHW tensors.
package preprocess

import (
	"image"
	"image/color"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Channels is the number of colour planes written to the tensor (R, G, B).
const Channels = 3

// TensorBuffer is a single preprocessed image in NCHW layout with shape
// (1, 3, H, W) and values in [0, 1].
//
// A TensorBuffer is produced once per pipeline run and must not be modified
// after Preprocess returns it.
type TensorBuffer struct {
	dense *tensor.Dense
}

// NewTensorBuffer wraps existing NCHW data. len(data) must equal 3*height*width.
func NewTensorBuffer(data []float32, height, width int) (*TensorBuffer, error) {
	if height <= 0 || width <= 0 {
		return nil, errors.Errorf("invalid tensor size %dx%d", width, height)
	}
	if len(data) != Channels*height*width {
		return nil, errors.Errorf("tensor data has %d values, expected %d", len(data), Channels*height*width)
	}

	return &TensorBuffer{
		dense: tensor.New(tensor.WithShape(1, Channels, height, width), tensor.WithBacking(data)),
	}, nil
}

// Data returns the flat backing slice in NCHW order.
func (b *TensorBuffer) Data() []float32 {
	return b.dense.Data().([]float32)
}

// Shape returns the logical shape (1, 3, H, W).
func (b *TensorBuffer) Shape() []int {
	return []int(b.dense.Shape().Clone())
}

// Height returns the H dimension.
func (b *TensorBuffer) Height() int { return b.dense.Shape()[2] }

// Width returns the W dimension.
func (b *TensorBuffer) Width() int { return b.dense.Shape()[3] }

// Dense exposes the underlying tensor for consumers that work with gorgonia types.
func (b *TensorBuffer) Dense() *tensor.Dense { return b.dense }

// Preprocess scales img to targetSize x targetSize with bilinear interpolation and
// writes it as NCHW float32 data normalised to [0, 1].
//
// The R plane comes first, then G, then B; rows run top to bottom and columns left
// to right. No mean or standard-deviation shift is applied. An image that already
// has the target size is read directly. img is never modified.
//
// Arguments:
//   - img: The decoded, upright source image.
//   - targetSize: The square edge length the model expects.
//
// Returns:
//   - *TensorBuffer: The (1, 3, targetSize, targetSize) tensor.
//   - error: An error if targetSize is not positive or img is empty.
func Preprocess(img image.Image, targetSize int) (*TensorBuffer, error) {
	if targetSize <= 0 {
		return nil, errors.Errorf("target size must be positive, got %d", targetSize)
	}
	if img == nil {
		return nil, errors.New("image is nil")
	}

	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, errors.Errorf("image has no pixels (%dx%d)", bounds.Dx(), bounds.Dy())
	}

	scaled := img
	if bounds.Dx() != targetSize || bounds.Dy() != targetSize {
		scaled = resize.Resize(uint(targetSize), uint(targetSize), img, resize.Bilinear)
	}

	data := imageToTensor(scaled, targetSize)

	return NewTensorBuffer(data, targetSize, targetSize)
}

// imageToTensor reads size x size pixels of img into planar R, G, B order.
func imageToTensor(img image.Image, size int) []float32 {
	plane := size * size
	data := make([]float32, Channels*plane)
	origin := img.Bounds().Min

	if nrgba, ok := img.(*image.NRGBA); ok {
		for y := 0; y < size; y++ {
			row := nrgba.Pix[(y+origin.Y-nrgba.Rect.Min.Y)*nrgba.Stride:]
			for x := 0; x < size; x++ {
				off := (x + origin.X - nrgba.Rect.Min.X) * 4
				idx := y*size + x
				data[idx] = float32(row[off]) / 255.0
				data[plane+idx] = float32(row[off+1]) / 255.0
				data[2*plane+idx] = float32(row[off+2]) / 255.0
			}
		}
		return data
	}

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := color.NRGBAModel.Convert(img.At(origin.X+x, origin.Y+y)).(color.NRGBA)
			idx := y*size + x
			data[idx] = float32(c.R) / 255.0
			data[plane+idx] = float32(c.G) / 255.0
			data[2*plane+idx] = float32(c.B) / 255.0
		}
	}

	return data
}
