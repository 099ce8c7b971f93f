package images

import (
	"fmt"
	"strings"
)

// InputResolution names the square edge length a frame is scaled to before inference.
//
// Larger resolutions find smaller objects at the cost of latency. The model must
// accept a dynamic input size for anything other than the resolution it was
// exported with.
type InputResolution string

// Supported input resolutions.
const (
	ResolutionLow    InputResolution = "low"
	ResolutionMedium InputResolution = "medium"
	ResolutionHigh   InputResolution = "high"
	ResolutionUltra  InputResolution = "ultra"
)

// DefaultResolution is used when no resolution has been configured.
const DefaultResolution = ResolutionMedium

// InputResolutions maps every supported resolution to its edge length in pixels.
var InputResolutions = map[InputResolution]int{
	ResolutionLow:    320,
	ResolutionMedium: 416,
	ResolutionHigh:   640,
	ResolutionUltra:  1280,
}

// Edge returns the square edge length in pixels.
//
// Unknown values resolve to the edge of DefaultResolution.
func (r InputResolution) Edge() int {
	if edge, ok := InputResolutions[r]; ok {
		return edge
	}
	return InputResolutions[DefaultResolution]
}

// Valid reports whether r is one of the supported resolutions.
func (r InputResolution) Valid() bool {
	_, ok := InputResolutions[r]
	return ok
}

func (r InputResolution) String() string {
	return fmt.Sprintf("%s (%dx%d)", string(r), r.Edge(), r.Edge())
}

// ParseInputResolution resolves a resolution by name (case-insensitive) or by its
// edge length ("640").
//
// Arguments:
//   - s: The resolution name or edge length.
//
// Returns:
//   - InputResolution: The matching resolution.
//   - error: An error if s names no supported resolution.
func ParseInputResolution(s string) (InputResolution, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return DefaultResolution, nil
	}

	if r := InputResolution(v); r.Valid() {
		return r, nil
	}

	for r, edge := range InputResolutions {
		if fmt.Sprint(edge) == v {
			return r, nil
		}
	}

	return "", fmt.Errorf("unsupported input resolution %q", s)
}
