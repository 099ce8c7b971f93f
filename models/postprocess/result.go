// Package postprocess - Detection results and suppression of duplicate boxes.
package postprocess

import (
	"fmt"
	"time"

	"github.com/nvr-ai/go-detect/images"
)

// Detection is a single labeled object found in an image.
type Detection struct {
	// ClassID is the zero-based index into the model's label table.
	ClassID int `json:"class_id"`
	// ClassName is the human-readable label, "Unknown" when ClassID has no label.
	ClassName string `json:"class_name"`
	// Confidence is the class score in [0, 1].
	Confidence float32 `json:"confidence"`
	// Box is the object's bounding box in source image pixels.
	Box images.Rect `json:"box"`
}

func (d Detection) String() string {
	return fmt.Sprintf("%s (%d) %.1f%% %s", d.ClassName, d.ClassID, d.Confidence*100, d.Box)
}

// DetectionResults is the outcome of one successful pipeline run.
type DetectionResults struct {
	// ID uniquely identifies the run.
	ID string `json:"id"`
	// Detections is ordered by confidence, highest first.
	Detections []Detection `json:"detections"`
	// InferenceTime covers the backend call only.
	InferenceTime time.Duration `json:"inference_time_ns"`
	// ImageWidth and ImageHeight are the dimensions of the (upright) source image.
	ImageWidth  int `json:"image_width"`
	ImageHeight int `json:"image_height"`
	// ConfidenceThreshold is the minimum score used for this run.
	ConfidenceThreshold float32 `json:"confidence_threshold"`
	// Resolution is the square edge length the image was scaled to.
	Resolution int `json:"resolution"`
}

// InferenceMillis returns the inference time in fractional milliseconds.
func (r *DetectionResults) InferenceMillis() float64 {
	return float64(r.InferenceTime) / float64(time.Millisecond)
}

// CountByClass returns the number of detections per class name.
func (r *DetectionResults) CountByClass() map[string]int {
	counts := make(map[string]int)
	for _, d := range r.Detections {
		counts[d.ClassName]++
	}
	return counts
}
