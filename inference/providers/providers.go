// Package providers - ONNX Runtime execution provider selection.
package providers

import (
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

// ProviderBackend represents different ONNX Runtime execution providers
type ProviderBackend string

const (
	// AutoProviderBackend picks the platform accelerator when GPU use is requested.
	AutoProviderBackend ProviderBackend = "auto"
	// CPUProviderBackend runs inference on the default CPU provider.
	CPUProviderBackend ProviderBackend = "cpu"
)

// goos is the platform used for automatic selection.
var goos = runtime.GOOS

// ParseBackend resolves a provider name from configuration. The empty string
// means AutoProviderBackend.
func ParseBackend(s string) (ProviderBackend, error) {
	b := ProviderBackend(strings.ToLower(strings.TrimSpace(s)))
	switch b {
	case "":
		return AutoProviderBackend, nil
	case AutoProviderBackend, CPUProviderBackend, CUDAProviderBackend, CoreMLProviderBackend, OpenVINOProviderBackend:
		return b, nil
	default:
		return "", errors.Errorf("unsupported execution provider %q", s)
	}
}

// PlatformAccelerator returns the accelerator tried for AutoProviderBackend:
// CoreML on darwin, CUDA elsewhere.
func PlatformAccelerator() ProviderBackend {
	if goos == "darwin" {
		return CoreMLProviderBackend
	}
	return CUDAProviderBackend
}

// Resolve returns the provider to try first for backend and the GPU preference.
//
// When useGPU is false the CPU provider is always used. Otherwise
// AutoProviderBackend resolves to PlatformAccelerator and explicit backends are
// kept as configured.
func Resolve(backend ProviderBackend, useGPU bool) ProviderBackend {
	if !useGPU {
		return CPUProviderBackend
	}
	if backend == "" || backend == AutoProviderBackend {
		return PlatformAccelerator()
	}
	return backend
}

// NewProvider creates the execution provider for backend using the options in cfg.
//
// Arguments:
//   - backend: A concrete backend (not AutoProviderBackend).
//   - cfg: Provider-specific options.
//
// Returns:
//   - ExecutionProvider: The provider.
//   - error: An error if the backend is unknown.
func NewProvider(backend ProviderBackend, cfg Config) (ExecutionProvider, error) {
	switch backend {
	case CPUProviderBackend:
		return NewCPUProvider(), nil
	case CUDAProviderBackend:
		return NewCUDAProvider(cfg.CUDA), nil
	case CoreMLProviderBackend:
		return NewCoreMLProvider(cfg.CoreML), nil
	case OpenVINOProviderBackend:
		return NewOpenVINOProvider(cfg.OpenVINO), nil
	default:
		return nil, errors.Errorf("unsupported execution provider %q", backend)
	}
}
