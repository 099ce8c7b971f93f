// Package render - Draws detections onto images and writes result reports.
package render

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/nvr-ai/go-detect/config"
	"github.com/nvr-ai/go-detect/models/postprocess"
)

const (
	// Thickness is the box outline width in pixels.
	Thickness = 2
	labelPad  = 2
)

var (
	// BoxColor is the outline and label background color.
	BoxColor = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	// TextColor is the label text color.
	TextColor = color.RGBA{R: 0, G: 0, B: 0, A: 255}
)

// Label returns the text drawn above a detection.
func Label(d postprocess.Detection, showConfidence bool) string {
	if showConfidence {
		return fmt.Sprintf("%s %d%%", d.ClassName, int(d.Confidence*100+0.5))
	}
	return d.ClassName
}

// Overlay draws every detection on a copy of img. img is not modified.
//
// Arguments:
//   - img: The upright image the detections were computed on.
//   - results: The run results.
//   - prefs: ShowConfidence adds the percentage to each label.
//
// Returns:
//   - *image.RGBA: The annotated copy.
func Overlay(img image.Image, results *postprocess.DetectionResults, prefs config.Preferences) *image.RGBA {
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)

	if results == nil {
		return dst
	}

	face := basicfont.Face7x13
	for _, d := range results.Detections {
		r := d.Box.ToRectangle().Intersect(dst.Bounds())
		if r.Empty() {
			continue
		}
		drawOutline(dst, r, BoxColor, Thickness)
		drawLabel(dst, face, r.Min, Label(d, prefs.ShowConfidence))
	}

	return dst
}

func drawOutline(dst draw.Image, r image.Rectangle, c color.Color, thickness int) {
	src := image.NewUniform(c)
	t := min(thickness, r.Dx(), r.Dy())
	if t <= 0 {
		t = 1
	}
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t),
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y),
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), src, image.Point{}, draw.Src)
	}
}

// drawLabel writes text on a filled background just above at, or just inside
// the box when there is no room above.
func drawLabel(dst draw.Image, face font.Face, at image.Point, text string) {
	if text == "" {
		return
	}

	metrics := face.Metrics()
	height := (metrics.Ascent + metrics.Descent).Ceil() + 2*labelPad
	width := font.MeasureString(face, text).Ceil() + 2*labelPad

	top := at.Y - height
	if top < dst.Bounds().Min.Y {
		top = at.Y
	}
	bg := image.Rect(at.X, top, at.X+width, top+height).Intersect(dst.Bounds())
	draw.Draw(dst, bg, image.NewUniform(BoxColor), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(TextColor),
		Face: face,
		Dot:  fixed.P(at.X+labelPad, top+labelPad+metrics.Ascent.Ceil()),
	}
	d.DrawString(text)
}

// WriteReport writes results as indented JSON.
func WriteReport(w io.Writer, results *postprocess.DetectionResults) error {
	if results == nil {
		return errors.New("no results to report")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(results), "encode report")
}

// WriteSummary prints one line per detection and, when prefs.ShowMetrics is
// set, the inference latency.
func WriteSummary(w io.Writer, name string, results *postprocess.DetectionResults, prefs config.Preferences) error {
	if _, err := fmt.Fprintf(w, "%s: %dx%d, %d objects\n",
		name, results.ImageWidth, results.ImageHeight, len(results.Detections)); err != nil {
		return err
	}
	for i, d := range results.Detections {
		if _, err := fmt.Fprintf(w, "  %d. %s (confidence: %.2f) at %s\n",
			i+1, d.ClassName, d.Confidence, d.Box); err != nil {
			return err
		}
	}
	if prefs.ShowMetrics {
		if _, err := fmt.Fprintf(w, "  inference: %.2f ms at %dpx\n",
			results.InferenceMillis(), results.Resolution); err != nil {
			return err
		}
	}
	return nil
}
