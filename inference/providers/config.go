// Package providers - Runtime configuration for ONNX inference sessions.
package providers

import (
	"github.com/pkg/errors"
)

// Config selects and tunes the execution provider of an ONNX Runtime session.
type Config struct {
	// Backend specifies the provider to use; auto picks the platform accelerator.
	Backend ProviderBackend `json:"provider" yaml:"provider"`
	// LibraryPath is the onnxruntime shared library. Empty uses SharedLibraryPath().
	LibraryPath string `json:"library_path" yaml:"library_path"`
	// IntraOpNumThreads sets threads for parallelizing ops; 0 lets the runtime decide.
	IntraOpNumThreads int `json:"intra_op_threads" yaml:"intra_op_threads"`
	// InterOpNumThreads sets threads for parallelizing independent ops; 0 lets the runtime decide.
	InterOpNumThreads int `json:"inter_op_threads" yaml:"inter_op_threads"`
	// Optimization tunes graph optimization and execution mode.
	Optimization Optimization `json:"optimization" yaml:"optimization"`

	CUDA     CUDAOptions     `json:"cuda" yaml:"cuda"`
	CoreML   CoreMLOptions   `json:"coreml" yaml:"coreml"`
	OpenVINO OpenVINOOptions `json:"openvino" yaml:"openvino"`
}

// DefaultConfig returns a configuration that lets the platform decide.
func DefaultConfig() Config {
	return Config{
		Backend: AutoProviderBackend,
		CUDA:    DefaultCUDAOptions(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if _, err := ParseBackend(string(c.Backend)); err != nil {
		return err
	}
	if c.IntraOpNumThreads < 0 || c.InterOpNumThreads < 0 {
		return errors.Errorf("thread counts must not be negative (intra=%d, inter=%d)",
			c.IntraOpNumThreads, c.InterOpNumThreads)
	}
	return c.Optimization.Validate()
}
