//go:build gocv

package opencv

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-detect/inference"
	"github.com/nvr-ai/go-detect/models/model/preprocess"
	"github.com/nvr-ai/go-detect/models/yolov8"
)

func init() {
	inference.RegisterEngine(inference.EngineOpenCV, func(opts inference.Options, logger logrus.FieldLogger) (inference.Backend, error) {
		return NewBackend(opts, logger)
	})
}

// Backend runs an ONNX model with gocv.Net.
type Backend struct {
	mu    sync.Mutex
	net   gocv.Net
	open  bool
	model yolov8.Options
}

// NewBackend reads the model and selects the CUDA target when GPU use is
// requested. A failure to select CUDA is logged and the default CPU target is kept.
func NewBackend(opts inference.Options, logger logrus.FieldLogger) (*Backend, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if err := opts.Model.Validate(); err != nil {
		return nil, err
	}

	net := gocv.ReadNetFromONNX(opts.Model.Path)
	if net.Empty() {
		return nil, errors.Errorf("failed to read onnx model %s", opts.Model.Path)
	}

	target := "cpu"
	if opts.UseGPU {
		if err := useCUDA(&net); err != nil {
			logger.WithError(err).Warn("opencv cuda target unavailable, falling back to cpu")
		} else {
			target = "cuda"
		}
	}

	logger.WithFields(logrus.Fields{
		"model":  opts.Model.Path,
		"target": target,
	}).Info("opencv net loaded")

	return &Backend{net: net, open: true, model: opts.Model}, nil
}

func useCUDA(net *gocv.Net) error {
	if err := net.SetPreferableBackend(gocv.NetBackendCUDA); err != nil {
		return err
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCUDA); err != nil {
		net.SetPreferableBackend(gocv.NetBackendDefault)
		return err
	}
	return nil
}

// Infer runs a forward pass and returns box-major output.
func (b *Backend) Infer(ctx context.Context, input *preprocess.TensorBuffer) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return nil, errors.Wrap(inference.ErrBackendUnavailable, "net is closed")
	}

	blob := gocv.NewMatWithSizes(input.Shape(), gocv.MatTypeCV32F)
	defer blob.Close()

	dst, err := blob.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "access input blob")
	}
	copy(dst, input.Data())

	b.net.SetInput(blob, "")
	out := b.net.Forward("")
	defer out.Close()

	if out.Empty() {
		return nil, errors.Wrap(inference.ErrBackendUnavailable, "forward pass produced no output")
	}

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrapf(yolov8.ErrMalformedOutput, "read output: %v", err)
	}
	raw := append([]float32(nil), data...)

	sizes := out.Size()
	shape := make([]int64, len(sizes))
	for i, s := range sizes {
		shape[i] = int64(s)
	}

	spec := inference.OutputSpec{NumClasses: b.model.NumClasses, Layout: b.model.Layout}
	if b.model.PixelCoordinates {
		spec.CoordinateScale = float32(input.Width())
	}

	return inference.ToBoxMajor(raw, shape, spec)
}

// Close releases the net.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return nil
	}
	b.open = false
	return b.net.Close()
}
