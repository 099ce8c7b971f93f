package detector

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/models/yolov8"
)

// Reason classifies why a pipeline run failed.
type Reason string

const (
	// ReasonInvalidImage means the image is missing or has no pixels.
	ReasonInvalidImage Reason = "invalid_image"
	// ReasonInvalidPreferences means the run preferences name an unknown resolution.
	ReasonInvalidPreferences Reason = "invalid_preferences"
	// ReasonPreprocess means the image could not be converted to a tensor.
	ReasonPreprocess Reason = "preprocess"
	// ReasonBackend means the inference backend could not be loaded or failed.
	ReasonBackend Reason = "backend"
	// ReasonMalformedOutput means the backend output has an inconsistent shape.
	ReasonMalformedOutput Reason = "malformed_output"
	// ReasonCanceled means the caller's context ended before the run finished.
	ReasonCanceled Reason = "canceled"
)

// Failure is the error returned by a failed pipeline run.
type Failure struct {
	Reason Reason
	Err    error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("detection failed: %s", f.Reason)
	}
	return fmt.Sprintf("detection failed: %s: %v", f.Reason, f.Err)
}

// Unwrap returns the underlying error.
func (f *Failure) Unwrap() error {
	return f.Err
}

func fail(reason Reason, err error) *Failure {
	return &Failure{Reason: reason, Err: err}
}

// ReasonOf returns the reason of the Failure in err's chain, or "" when err is
// not a Failure.
func ReasonOf(err error) Reason {
	var f *Failure
	if errors.As(err, &f) {
		return f.Reason
	}
	return ""
}

// classify maps an error from the backend or decoder to a Failure.
func classify(err error) *Failure {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fail(ReasonCanceled, err)
	case errors.Is(err, yolov8.ErrMalformedOutput):
		return fail(ReasonMalformedOutput, err)
	case errors.Is(err, images.ErrInvalidImage):
		return fail(ReasonInvalidImage, err)
	default:
		return fail(ReasonBackend, err)
	}
}
