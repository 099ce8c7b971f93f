// Package images - Image processing utilities
package images

import (
	"fmt"
	"image"

	"github.com/chewxy/math32"
)

// Rect is an axis-aligned bounding box in absolute pixel coordinates.
type Rect struct {
	// X1,Y1 is the top-left corner; X2,Y2 the bottom-right corner.
	X1, Y1, X2, Y2 float32
}

// Width returns the horizontal extent of the rectangle, never negative.
func (r Rect) Width() float32 {
	return math32.Max(0, r.X2-r.X1)
}

// Height returns the vertical extent of the rectangle, never negative.
func (r Rect) Height() float32 {
	return math32.Max(0, r.Y2-r.Y1)
}

// Area returns the area of the rectangle in square pixels.
func (r Rect) Area() float32 {
	return r.Width() * r.Height()
}

// Clamp restricts every edge of the rectangle to [0,width]x[0,height].
//
// Each edge is clamped independently, so a box crossing a single border is only
// shortened on that side.
//
// Arguments:
//   - width: The width of the image the box belongs to.
//   - height: The height of the image the box belongs to.
//
// Returns:
//   - Rect: The clamped rectangle.
func (r Rect) Clamp(width, height float32) Rect {
	return Rect{
		X1: math32.Min(math32.Max(0, r.X1), width),
		Y1: math32.Min(math32.Max(0, r.Y1), height),
		X2: math32.Max(0, math32.Min(width, r.X2)),
		Y2: math32.Max(0, math32.Min(height, r.Y2)),
	}
}

// ToRectangle converts the box to an integral image.Rectangle for drawing.
//
// This loses fractional pixels around the edges, which is fine for rendering
// but must not be used for IoU.
func (r Rect) ToRectangle() image.Rectangle {
	return image.Rect(int(r.X1), int(r.Y1), int(r.X2), int(r.Y2)).Canon()
}

func (r Rect) String() string {
	return fmt.Sprintf("(%.2f, %.2f), (%.2f, %.2f)", r.X1, r.Y1, r.X2, r.Y2)
}

// CalculateIoU computes the Intersection over Union of two rectangles.
//
// IoU is the ratio between the area both rectangles share and the area they
// cover together:
//
//	IoU = Area of Intersection / Area of Union
//
// A value of 1.0 means the rectangles are identical, 0.0 means they do not overlap
// at all. The union is obtained by inclusion-exclusion:
//
//	Area(Union) = Area(A) + Area(B) - Area(Intersection)
//
// Rectangles that only touch along an edge have no intersection. When the union is
// empty (both boxes degenerate) the result is 0 rather than a division by zero.
//
// Arguments:
//   - r: The first rectangle.
//   - o: The other rectangle to compare against.
//
// Returns:
//   - float32: A value between 0.0 and 1.0 representing the IoU score.
//
// Example Usage:
// ```go
//
//	rect1 := Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}
//	rect2 := Rect{X1: 5, Y1: 5, X2: 15, Y2: 15}
//
//	iouScore := CalculateIoU(rect1, rect2) // 25 / (100 + 100 - 25) = 0.142857
//
// ```
func CalculateIoU(r, o Rect) float32 {
	ix1 := math32.Max(r.X1, o.X1)
	iy1 := math32.Max(r.Y1, o.Y1)
	ix2 := math32.Min(r.X2, o.X2)
	iy2 := math32.Min(r.Y2, o.Y2)

	interW := ix2 - ix1
	interH := iy2 - iy1
	if interW <= 0 || interH <= 0 {
		return 0.0
	}
	interArea := interW * interH

	unionArea := r.Area() + o.Area() - interArea
	if unionArea <= 0 {
		return 0.0
	}

	return interArea / unionArea
}
