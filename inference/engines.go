// Package inference - Inference engine types and registry.
package inference

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/go-detect/inference/providers"
	"github.com/nvr-ai/go-detect/models/yolov8"
)

// EngineType is the type of the engine
type EngineType string

const (
	// EngineONNX is the ONNX engine that uses the onnxruntime library
	EngineONNX EngineType = "onnx"
	// EngineOpenCV is the OpenCV DNN engine; available in builds with the gocv tag.
	EngineOpenCV EngineType = "opencv"
)

// Options configures a backend.
type Options struct {
	// Model describes the model file and its output.
	Model yolov8.Options `json:"model" yaml:"model"`
	// Runtime selects the execution provider and threading.
	Runtime providers.Config `json:"runtime" yaml:"runtime"`
	// UseGPU requests hardware acceleration when available.
	UseGPU bool `json:"use_gpu" yaml:"use_gpu"`
}

// EngineFactory creates a backend of one engine type.
type EngineFactory func(opts Options, logger logrus.FieldLogger) (Backend, error)

var (
	enginesMu sync.RWMutex
	engines   = map[EngineType]EngineFactory{}
)

func init() {
	RegisterEngine(EngineONNX, func(opts Options, logger logrus.FieldLogger) (Backend, error) {
		return NewSession(opts, logger)
	})
}

// RegisterEngine makes an engine available to NewEngineBuilder. Registering the
// same type twice replaces the factory.
func RegisterEngine(engine EngineType, factory EngineFactory) {
	enginesMu.Lock()
	defer enginesMu.Unlock()

	engines[engine] = factory
}

// Engines returns the registered engine types, sorted.
func Engines() []EngineType {
	enginesMu.RLock()
	defer enginesMu.RUnlock()

	out := make([]EngineType, 0, len(engines))
	for e := range engines {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseEngine resolves an engine name. The empty string means EngineONNX.
func ParseEngine(s string) (EngineType, error) {
	e := EngineType(strings.ToLower(strings.TrimSpace(s)))
	if e == "" {
		return EngineONNX, nil
	}

	enginesMu.RLock()
	_, ok := engines[e]
	enginesMu.RUnlock()
	if !ok {
		return "", errors.Errorf("engine %q is not available in this build (have %v)", s, Engines())
	}
	return e, nil
}

func lookupEngine(e EngineType) (EngineFactory, error) {
	enginesMu.RLock()
	defer enginesMu.RUnlock()

	f, ok := engines[e]
	if !ok {
		return nil, errors.Errorf("engine %q is not registered", e)
	}
	return f, nil
}
