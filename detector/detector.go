// Package detector - Runs the object detection pipeline on a single image.
package detector

import (
	"context"
	"image"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/go-detect/config"
	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/inference"
	"github.com/nvr-ai/go-detect/models/model/preprocess"
	"github.com/nvr-ai/go-detect/models/postprocess"
	"github.com/nvr-ai/go-detect/models/yolov8"
)

// Detector turns images into detections with one backend and one decoder.
// It is safe for concurrent use when the backend is.
type Detector struct {
	backend inference.Backend
	decoder *yolov8.Decoder
	iou     float32
	logger  logrus.FieldLogger
	timings Recorder
	newID   func() string
}

// Recorder receives stage timings; *profiler.RuntimeProfiler implements it.
type Recorder interface {
	Record(name string, duration time.Duration)
}

// Stage names passed to a Recorder.
const (
	StagePreprocess = "preprocess"
	StageInference  = "inference"
	StageDecode     = "decode"
	StageSuppress   = "suppress"
)

type nopRecorder struct{}

func (nopRecorder) Record(string, time.Duration) {}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger sets the logger. The standard logger is used otherwise.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(d *Detector) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithRecorder records the duration of every pipeline stage.
func WithRecorder(r Recorder) Option {
	return func(d *Detector) {
		if r != nil {
			d.timings = r
		}
	}
}

// WithIoUThreshold overrides the suppression threshold.
func WithIoUThreshold(iou float32) Option {
	return func(d *Detector) {
		d.iou = iou
	}
}

// New creates a detector.
//
// Arguments:
//   - backend: The inference backend, typically an *inference.LazyBackend.
//   - decoder: Decodes the backend output and resolves class names.
//   - opts: Optional settings.
//
// Returns:
//   - *Detector: The detector.
func New(backend inference.Backend, decoder *yolov8.Decoder, opts ...Option) *Detector {
	d := &Detector{
		backend: backend,
		decoder: decoder,
		iou:     postprocess.DefaultIoUThreshold,
		logger:  logrus.StandardLogger(),
		timings: nopRecorder{},
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Request is one image to run through the pipeline.
type Request struct {
	// Image is the decoded source image.
	Image image.Image
	// Orientation is applied before preprocessing. Ignored when Source is set.
	Orientation images.Orientation
	// Source optionally holds the encoded image so its EXIF orientation can be read.
	Source io.Reader
	// Preferences select the resolution and the confidence threshold.
	Preferences config.Preferences
}

// Outcome is the result of a submitted run: exactly one of Results and Err is set.
type Outcome struct {
	Results *postprocess.DetectionResults
	Err     error
}

// Run detects objects in an upright image.
//
// Arguments:
//   - ctx: Cancels the run before preprocessing or before the backend call.
//   - img: The decoded image.
//   - prefs: The run preferences.
//
// Returns:
//   - *postprocess.DetectionResults: The detections, ordered by confidence.
//   - error: A *Failure describing why the run failed.
func (d *Detector) Run(ctx context.Context, img image.Image, prefs config.Preferences) (*postprocess.DetectionResults, error) {
	return d.Process(ctx, Request{Image: img, Preferences: prefs})
}

// Process runs the full pipeline for req. No detections are returned with a failure.
func (d *Detector) Process(ctx context.Context, req Request) (*postprocess.DetectionResults, error) {
	runID := d.newID()
	log := d.logger.WithFields(logrus.Fields{
		"run_id":     runID,
		"resolution": req.Preferences.Resolution,
	})

	results, err := d.process(ctx, req, runID, log)
	if err != nil {
		log.WithError(err).WithField("reason", ReasonOf(err)).Error("detection failed")
		return nil, err
	}

	entry := log.WithField("detections", len(results.Detections))
	if req.Preferences.ShowMetrics {
		entry = entry.WithField("inference_ms", results.InferenceMillis())
	}
	entry.Info("detection complete")

	return results, nil
}

func (d *Detector) process(
	ctx context.Context,
	req Request,
	runID string,
	log logrus.FieldLogger,
) (*postprocess.DetectionResults, error) {
	if err := images.Validate(req.Image); err != nil {
		return nil, fail(ReasonInvalidImage, err)
	}
	// The confidence threshold is not range checked here; see Preferences.Validate.
	if err := req.Preferences.Validate(); err != nil {
		return nil, fail(ReasonInvalidPreferences, err)
	}

	img := req.Image
	if req.Source != nil {
		img = images.FixOrientationFromSource(img, req.Source, log)
	} else {
		img = images.FixOrientation(img, req.Orientation)
	}
	bounds := img.Bounds()

	if err := ctx.Err(); err != nil {
		return nil, fail(ReasonCanceled, err)
	}

	edge := req.Preferences.Resolution.Edge()
	start := time.Now()
	input, err := preprocess.Preprocess(img, edge)
	d.timings.Record(StagePreprocess, time.Since(start))
	if err != nil {
		return nil, fail(ReasonPreprocess, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, fail(ReasonCanceled, err)
	}

	start = time.Now()
	raw, err := d.backend.Infer(ctx, input)
	elapsed := time.Since(start)
	d.timings.Record(StageInference, elapsed)
	if err != nil {
		return nil, classify(errors.Wrap(err, "inference"))
	}

	start = time.Now()
	detections, err := d.decoder.Decode(raw, bounds.Dx(), bounds.Dy(), req.Preferences.ConfidenceThreshold)
	d.timings.Record(StageDecode, time.Since(start))
	if err != nil {
		return nil, classify(errors.Wrap(err, "decode"))
	}

	start = time.Now()
	kept := postprocess.Suppress(detections, d.iou)
	d.timings.Record(StageSuppress, time.Since(start))

	return &postprocess.DetectionResults{
		ID:                  runID,
		Detections:          kept,
		InferenceTime:       elapsed,
		ImageWidth:          bounds.Dx(),
		ImageHeight:         bounds.Dy(),
		ConfidenceThreshold: req.Preferences.ConfidenceThreshold,
		Resolution:          edge,
	}, nil
}

// Submit runs req on its own goroutine and delivers exactly one Outcome.
// The channel is buffered, so a caller may stop reading without leaking the worker.
func (d *Detector) Submit(ctx context.Context, req Request) <-chan Outcome {
	out := make(chan Outcome, 1)
	go func() {
		defer close(out)
		results, err := d.Process(ctx, req)
		out <- Outcome{Results: results, Err: err}
	}()
	return out
}

// Close releases the backend.
func (d *Detector) Close() error {
	return d.backend.Close()
}
