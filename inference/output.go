package inference

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/models/yolov8"
)

// OutputSpec describes how to bring a model output into box-major order.
type OutputSpec struct {
	// NumClasses is the number of class scores per box.
	NumClasses int
	// Layout of the raw output.
	Layout yolov8.Layout
	// CoordinateScale divides the four geometry values of every box. Models that
	// emit input-pixel coordinates use the input edge length; 0 or 1 leaves them.
	CoordinateScale float32
}

// ToBoxMajor validates a raw model output against its shape and returns it as a
// flat (numBoxes, 4+numClasses) box-major slice with normalized coordinates.
//
// Leading dimensions of size 1 (the batch) are ignored. With yolov8.LayoutAuto the
// layout is inferred: a last dimension equal to the stride means box-major,
// otherwise a second-to-last dimension equal to the stride means channel-major.
//
// Arguments:
//   - data: The raw output values.
//   - shape: The output tensor shape as reported by the runtime.
//   - spec: The expected output description.
//
// Returns:
//   - []float32: Box-major data. A new slice unless data is already box-major and unscaled.
//   - error: yolov8.ErrMalformedOutput (wrapped) if data and shape disagree.
func ToBoxMajor(data []float32, shape []int64, spec OutputSpec) ([]float32, error) {
	if spec.NumClasses <= 0 {
		return nil, errors.Wrapf(yolov8.ErrMalformedOutput, "number of classes must be positive, got %d", spec.NumClasses)
	}
	stride := int64(yolov8.Stride(spec.NumClasses))

	total := int64(1)
	for _, d := range shape {
		if d < 0 {
			return nil, errors.Wrapf(yolov8.ErrMalformedOutput, "negative dimension in shape %v", shape)
		}
		total *= d
	}
	if len(shape) == 0 || total != int64(len(data)) {
		return nil, errors.Wrapf(yolov8.ErrMalformedOutput, "output has %d values, shape %v", len(data), shape)
	}

	dims := shape
	for len(dims) > 2 && dims[0] == 1 {
		dims = dims[1:]
	}

	layout := spec.Layout
	if layout == "" || layout == yolov8.LayoutAuto {
		switch {
		case dims[len(dims)-1] == stride:
			layout = yolov8.LayoutBoxMajor
		case len(dims) >= 2 && dims[len(dims)-2] == stride:
			layout = yolov8.LayoutChannelMajor
		default:
			return nil, errors.Wrapf(yolov8.ErrMalformedOutput, "no dimension of %v matches %d values per box", shape, stride)
		}
	}

	if int64(len(data))%stride != 0 {
		return nil, errors.Wrapf(yolov8.ErrMalformedOutput, "output length %d is not a multiple of %d", len(data), stride)
	}

	out := data
	if layout == yolov8.LayoutChannelMajor {
		out = transpose(data, int(stride))
	}

	if spec.CoordinateScale > 0 && spec.CoordinateScale != 1 {
		if layout != yolov8.LayoutChannelMajor {
			out = append([]float32(nil), data...)
		}
		scaleCoordinates(out, int(stride), spec.CoordinateScale)
	}

	return out, nil
}

// transpose converts (stride, n) channel-major data into (n, stride).
func transpose(data []float32, stride int) []float32 {
	n := len(data) / stride
	out := make([]float32, len(data))
	for a := 0; a < stride; a++ {
		row := data[a*n : (a+1)*n]
		for i, v := range row {
			out[i*stride+a] = v
		}
	}
	return out
}

func scaleCoordinates(data []float32, stride int, scale float32) {
	for i := 0; i+yolov8.BoxAttributes <= len(data); i += stride {
		for k := 0; k < yolov8.BoxAttributes; k++ {
			data[i+k] /= scale
		}
	}
}
