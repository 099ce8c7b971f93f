package inference

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/go-detect/inference/providers"
	"github.com/nvr-ai/go-detect/models/yolov8"
)

// EngineBuilder assembles a backend with a fluent API.
type EngineBuilder struct {
	engine EngineType
	opts   Options
	logger logrus.FieldLogger
	err    error
}

// NewEngineBuilder creates a new engine builder for the ONNX engine.
//
// Returns:
//   - *EngineBuilder: The engine builder.
func NewEngineBuilder() *EngineBuilder {
	return &EngineBuilder{
		engine: EngineONNX,
		opts: Options{
			Model:   yolov8.DefaultOptions(),
			Runtime: providers.DefaultConfig(),
		},
	}
}

// WithEngine selects the engine type.
//
// Arguments:
//   - engine: A registered engine type.
//
// Returns:
//   - *EngineBuilder: The engine builder.
func (b *EngineBuilder) WithEngine(engine EngineType) *EngineBuilder {
	if b.HasError() {
		return b
	}
	if _, err := lookupEngine(engine); err != nil {
		b.err = err
		return b
	}
	b.engine = engine
	return b
}

// WithModel sets the model for the engine.
//
// Arguments:
//   - model: The model options.
//
// Returns:
//   - *EngineBuilder: The engine builder.
func (b *EngineBuilder) WithModel(model yolov8.Options) *EngineBuilder {
	if b.HasError() {
		return b
	}
	if err := model.Validate(); err != nil {
		b.err = errors.Wrap(err, "model")
		return b
	}
	b.opts.Model = model
	return b
}

// WithRuntime sets the execution provider configuration.
func (b *EngineBuilder) WithRuntime(cfg providers.Config) *EngineBuilder {
	if b.HasError() {
		return b
	}
	if err := cfg.Validate(); err != nil {
		b.err = errors.Wrap(err, "runtime")
		return b
	}
	b.opts.Runtime = cfg
	return b
}

// WithGPU requests hardware acceleration.
func (b *EngineBuilder) WithGPU(useGPU bool) *EngineBuilder {
	b.opts.UseGPU = useGPU
	return b
}

// WithLogger sets the logger handed to the backend.
func (b *EngineBuilder) WithLogger(logger logrus.FieldLogger) *EngineBuilder {
	b.logger = logger
	return b
}

// HasError checks if the engine builder has errors.
//
// Returns:
//   - bool: True if there are errors, false otherwise.
func (b *EngineBuilder) HasError() bool {
	return b.err != nil
}

// Build returns a LazyBackend; the model is loaded on the first inference.
//
// Returns:
//   - *LazyBackend: The backend.
//   - error: The first configuration error, if any.
func (b *EngineBuilder) Build() (*LazyBackend, error) {
	if b.HasError() {
		return nil, b.err
	}
	if b.opts.Model.Path == "" {
		return nil, errors.New("model not configured")
	}

	factory, err := lookupEngine(b.engine)
	if err != nil {
		return nil, err
	}

	opts, logger := b.opts, b.logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithField("engine", b.engine)

	return NewLazyBackend(func() (Backend, error) {
		return factory(opts, logger)
	}), nil
}

// MustBuild builds the engine and panics if there is an error.
func (b *EngineBuilder) MustBuild() *LazyBackend {
	backend, err := b.Build()
	if err != nil {
		panic(err)
	}
	return backend
}
