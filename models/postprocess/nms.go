package postprocess

import (
	"sort"

	"github.com/nvr-ai/go-detect/images"
)

// DefaultIoUThreshold is the overlap above which a same-class box is suppressed.
const DefaultIoUThreshold float32 = 0.45

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	IoUThreshold float32 // Overlap threshold for suppression; equal IoU is kept.
	ClassAware   bool    // If true, suppress only within same class.
}

// DefaultNMSConfig returns the class-aware configuration used by the pipeline.
func DefaultNMSConfig() *NMSConfig {
	return &NMSConfig{
		IoUThreshold: DefaultIoUThreshold,
		ClassAware:   true,
	}
}

// ApplyNMS performs greedy Non-Maximum Suppression.
//
// Detections are visited in descending confidence order; ties keep their input
// order. Each kept detection suppresses every later detection whose IoU with it is
// strictly greater than config.IoUThreshold (restricted to the same class when
// config.ClassAware is set). Suppressed detections never suppress others.
//
// Arguments:
//   - detections: Detections in any order. The slice is not modified.
//   - config: NMS configuration. Nil uses DefaultNMSConfig.
//
// Returns:
//   - []Detection: Survivors ordered by descending confidence; empty, not nil, when
//     nothing survives.
func ApplyNMS(detections []Detection, config *NMSConfig) []Detection {
	if config == nil {
		config = DefaultNMSConfig()
	}

	n := len(detections)
	if n == 0 {
		return []Detection{}
	}

	sorted := make([]Detection, n)
	copy(sorted, detections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	filtered := make([]Detection, 0, n)
	suppressed := make([]bool, n)

	for i := 0; i < n; i++ {
		if suppressed[i] {
			continue
		}

		anchor := sorted[i]
		filtered = append(filtered, anchor)

		for j := i + 1; j < n; j++ {
			if suppressed[j] {
				continue
			}
			if config.ClassAware && sorted[j].ClassID != anchor.ClassID {
				continue
			}
			if images.CalculateIoU(anchor.Box, sorted[j].Box) > config.IoUThreshold {
				suppressed[j] = true
			}
		}
	}

	return filtered
}

// Suppress applies class-aware NMS with the given IoU threshold.
func Suppress(detections []Detection, iouThreshold float32) []Detection {
	return ApplyNMS(detections, &NMSConfig{IoUThreshold: iouThreshold, ClassAware: true})
}
