// Package yolov8 - decode YOLO-style box-major detection outputs.
package yolov8

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/models/postprocess"
)

// BoxAttributes is the number of geometry values (xc, yc, w, h) before the class
// scores of each box.
const BoxAttributes = 4

// ErrMalformedOutput is returned when the raw output cannot be split into whole
// boxes of 4+numClasses values.
var ErrMalformedOutput = errors.New("malformed model output")

// NameResolver maps a class id to its label.
type NameResolver interface {
	NameOf(id int) string
}

// Stride returns the number of values per box for numClasses classes.
func Stride(numClasses int) int {
	return BoxAttributes + numClasses
}

// Decode converts a flat box-major output tensor into detections.
//
// Each box occupies 4+numClasses consecutive values: the normalized center, width
// and height followed by one score per class. The class with the highest score
// wins (the first one on ties) and the box is discarded when that score is below
// threshold. Coordinates are scaled to pixels and each edge is clamped to the
// image independently.
//
// Arguments:
//   - raw: The flat output tensor.
//   - width: The source image width in pixels.
//   - height: The source image height in pixels.
//   - numClasses: The number of class scores per box.
//   - threshold: The minimum class score to keep a box.
//   - names: Resolves class ids to labels. Nil leaves ClassName empty.
//
// Returns:
//   - []postprocess.Detection: Detections in tensor order; empty when no box passes.
//   - error: ErrMalformedOutput (wrapped) if the tensor shape is inconsistent.
func Decode(
	raw []float32,
	width, height int,
	numClasses int,
	threshold float32,
	names NameResolver,
) ([]postprocess.Detection, error) {
	if numClasses <= 0 {
		return nil, errors.Wrapf(ErrMalformedOutput, "number of classes must be positive, got %d", numClasses)
	}
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("image size must be positive, got %dx%d", width, height)
	}

	stride := Stride(numClasses)
	if len(raw) == 0 {
		return nil, errors.Wrap(ErrMalformedOutput, "output is empty")
	}
	if len(raw)%stride != 0 {
		return nil, errors.Wrapf(ErrMalformedOutput, "output length %d is not a multiple of %d", len(raw), stride)
	}

	numBoxes := len(raw) / stride
	fw, fh := float32(width), float32(height)
	detections := make([]postprocess.Detection, 0)

	for i := 0; i < numBoxes; i++ {
		box := raw[i*stride : (i+1)*stride]
		scores := box[BoxAttributes:]

		classID := 0
		maxScore := scores[0]
		for c := 1; c < numClasses; c++ {
			if scores[c] > maxScore {
				maxScore = scores[c]
				classID = c
			}
		}

		// NaN scores fail this comparison too.
		if !(maxScore >= threshold) {
			continue
		}

		xc, yc, w, h := box[0], box[1], box[2], box[3]
		rect := images.Rect{
			X1: (xc - w/2) * fw,
			Y1: (yc - h/2) * fh,
			X2: (xc + w/2) * fw,
			Y2: (yc + h/2) * fh,
		}
		// NaN survives clamping, and opposite infinities in the center and size produce it.
		if math32.IsNaN(rect.X1) || math32.IsNaN(rect.Y1) || math32.IsNaN(rect.X2) || math32.IsNaN(rect.Y2) {
			continue
		}
		rect = rect.Clamp(fw, fh)

		// Negative sizes collapse to an empty box at the left/top edge.
		rect.X2 = math32.Max(rect.X1, rect.X2)
		rect.Y2 = math32.Max(rect.Y1, rect.Y2)

		d := postprocess.Detection{
			ClassID:    classID,
			Confidence: maxScore,
			Box:        rect,
		}
		if names != nil {
			d.ClassName = names.NameOf(classID)
		}

		detections = append(detections, d)
	}

	return detections, nil
}

// Decoder binds the class count and label table of one model so the pipeline can
// decode without repeating them.
type Decoder struct {
	numClasses int
	names      NameResolver
}

// NewDecoder creates a decoder for a model with numClasses classes.
func NewDecoder(numClasses int, names NameResolver) *Decoder {
	return &Decoder{numClasses: numClasses, names: names}
}

// NumClasses returns the number of class scores per box.
func (d *Decoder) NumClasses() int {
	return d.numClasses
}

// Decode decodes raw for an image of width x height. See Decode.
func (d *Decoder) Decode(raw []float32, width, height int, threshold float32) ([]postprocess.Detection, error) {
	return Decode(raw, width, height, d.numClasses, threshold, d.names)
}
