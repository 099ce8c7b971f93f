// Package providers - ONNX Runtime environment and session options.
package providers

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
)

var envMu sync.Mutex

// InitializeEnvironment loads the onnxruntime shared library and prepares the
// native environment. It is safe to call repeatedly; only the first successful
// call has an effect.
//
// Arguments:
//   - libPath: The shared library. Empty uses SharedLibraryPath().
//
// Returns:
//   - error: An error if the library is missing or fails to initialize.
func InitializeEnvironment(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}

	if libPath == "" {
		libPath = SharedLibraryPath()
	}
	if _, err := os.Stat(libPath); err != nil {
		return errors.Wrapf(err, "onnxruntime library not found at %s", libPath)
	}

	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return errors.Wrap(err, "initialize onnxruntime environment")
	}

	return nil
}

// NewSessionOptions creates session options with the configured threading and the
// execution provider chosen by Resolve.
//
// When the chosen accelerator cannot be appended (missing driver, unsupported
// build) the failure is logged and the session falls back to the CPU provider.
// The caller must Destroy the returned options.
//
// Arguments:
//   - cfg: The provider configuration.
//   - useGPU: Whether hardware acceleration is requested.
//   - logger: Receives fallback warnings. Nil uses the standard logger.
//
// Returns:
//   - *ort.SessionOptions: The configured options.
//   - ExecutionProvider: The provider actually applied.
//   - error: An error if the options could not be created.
func NewSessionOptions(cfg Config, useGPU bool, logger logrus.FieldLogger) (*ort.SessionOptions, ExecutionProvider, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, nil, errors.Wrap(err, "create session options")
	}

	if err := applyTuning(options, cfg); err != nil {
		options.Destroy()
		return nil, nil, err
	}

	backend := Resolve(cfg.Backend, useGPU)
	provider, err := NewProvider(backend, cfg)
	if err != nil {
		options.Destroy()
		return nil, nil, err
	}

	if err := provider.Apply(options); err != nil {
		if backend == CPUProviderBackend {
			options.Destroy()
			return nil, nil, err
		}
		logger.WithError(err).
			WithField("provider", backend).
			Warn("execution provider unavailable, falling back to cpu")
		provider = NewCPUProvider()
	}

	return options, provider, nil
}
