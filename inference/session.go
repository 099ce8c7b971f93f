package inference

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/nvr-ai/go-detect/inference/providers"
	"github.com/nvr-ai/go-detect/models/model/preprocess"
	"github.com/nvr-ai/go-detect/models/yolov8"
)

// Session runs a YOLO detection model with ONNX Runtime.
//
// The native session is created with dynamic input shapes so the same model can
// serve every input resolution. Calls are serialized.
type Session struct {
	mu       sync.Mutex
	session  *ort.DynamicAdvancedSession
	model    yolov8.Options
	provider providers.ProviderBackend
	logger   logrus.FieldLogger
}

// NewSession loads the model described by opts.Model.
//
// Arguments:
//   - opts: The model, runtime and GPU preference.
//   - logger: Receives load and fallback messages. Nil uses the standard logger.
//
// Returns:
//   - *Session: The loaded session.
//   - error: An error if the runtime or the model fail to load.
func NewSession(opts Options, logger logrus.FieldLogger) (*Session, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if err := opts.Model.Validate(); err != nil {
		return nil, err
	}

	if err := providers.InitializeEnvironment(opts.Runtime.LibraryPath); err != nil {
		return nil, err
	}

	options, provider, err := providers.NewSessionOptions(opts.Runtime, opts.UseGPU, logger)
	if err != nil {
		return nil, err
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSession(
		opts.Model.Path,
		[]string{opts.Model.InputName},
		[]string{opts.Model.OutputName},
		options,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "create onnx session for %s", opts.Model.Path)
	}

	logger.WithFields(logrus.Fields{
		"model":    opts.Model.Path,
		"provider": provider.Backend(),
	}).Info("onnx session loaded")

	return &Session{
		session:  session,
		model:    opts.Model,
		provider: provider.Backend(),
		logger:   logger,
	}, nil
}

// Provider returns the execution provider the session runs on.
func (s *Session) Provider() providers.ProviderBackend {
	return s.provider
}

// Infer runs the model on input and returns box-major output with normalized
// coordinates.
func (s *Session) Infer(ctx context.Context, input *preprocess.TensorBuffer) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, errors.Wrap(ErrBackendUnavailable, "session is closed")
	}

	shape := input.Shape()
	in, err := ort.NewTensor(
		ort.NewShape(int64(shape[0]), int64(shape[1]), int64(shape[2]), int64(shape[3])),
		input.Data(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create input tensor")
	}
	defer in.Destroy()

	outputs := []ort.Value{nil}
	if err := s.session.Run([]ort.Value{in}, outputs); err != nil {
		return nil, errors.Wrapf(ErrBackendUnavailable, "run: %v", err)
	}
	defer outputs[0].Destroy()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, errors.Wrapf(yolov8.ErrMalformedOutput, "unexpected output type %T", outputs[0])
	}

	// The output tensor is freed on return.
	raw := append([]float32(nil), out.GetData()...)

	spec := OutputSpec{NumClasses: s.model.NumClasses, Layout: s.model.Layout}
	if s.model.PixelCoordinates {
		spec.CoordinateScale = float32(input.Width())
	}

	return ToBoxMajor(raw, out.GetShape(), spec)
}

// Close releases the native session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil
	}

	err := s.session.Destroy()
	s.session = nil
	return errors.Wrap(err, "destroy onnx session")
}
