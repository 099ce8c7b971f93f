package yolov8

import (
	"github.com/pkg/errors"
)

// Defaults for Ultralytics YOLOv8 ONNX exports.
const (
	DefaultInputName  = "images"
	DefaultOutputName = "output0"
	DefaultNumClasses = 80
)

// Layout describes how the output tensor arranges boxes.
type Layout string

const (
	// LayoutAuto infers the layout from the output shape.
	LayoutAuto Layout = "auto"
	// LayoutBoxMajor is (N, 4+C): one row per box.
	LayoutBoxMajor Layout = "box_major"
	// LayoutChannelMajor is (4+C, N): one row per attribute, as exported by Ultralytics.
	LayoutChannelMajor Layout = "channel_major"
)

// Options describes a YOLOv8-style detection model on disk.
type Options struct {
	// Path is the model file.
	Path string `json:"path" yaml:"path"`
	// InputName is the name of the image input tensor.
	InputName string `json:"input_name" yaml:"input_name"`
	// OutputName is the name of the detection output tensor.
	OutputName string `json:"output_name" yaml:"output_name"`
	// NumClasses is the number of class scores per box.
	NumClasses int `json:"num_classes" yaml:"num_classes"`
	// LabelsPath is an optional label file; the bundled COCO labels are used when empty.
	LabelsPath string `json:"labels_path" yaml:"labels_path"`
	// PixelCoordinates is set when the model emits box geometry in input pixels
	// instead of normalized [0,1] values.
	PixelCoordinates bool `json:"pixel_coordinates" yaml:"pixel_coordinates"`
	// Layout of the output tensor.
	Layout Layout `json:"layout" yaml:"layout"`
}

// DefaultOptions returns options for a COCO-trained YOLOv8 export.
func DefaultOptions() Options {
	return Options{
		InputName:        DefaultInputName,
		OutputName:       DefaultOutputName,
		NumClasses:       DefaultNumClasses,
		PixelCoordinates: true,
		Layout:           LayoutAuto,
	}
}

// Validate checks that the options describe a usable model.
func (o Options) Validate() error {
	if o.Path == "" {
		return errors.New("model path is required")
	}
	if o.InputName == "" || o.OutputName == "" {
		return errors.New("model input and output names are required")
	}
	if o.NumClasses <= 0 {
		return errors.Errorf("num_classes must be positive, got %d", o.NumClasses)
	}
	switch o.Layout {
	case LayoutAuto, LayoutBoxMajor, LayoutChannelMajor:
	default:
		return errors.Errorf("unknown output layout %q", o.Layout)
	}
	return nil
}
