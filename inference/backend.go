// Package inference - Inference backends that run a detection model on a tensor.
package inference

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/models/model/preprocess"
)

// ErrBackendUnavailable is returned when a backend cannot be loaded or a call into
// it fails.
var ErrBackendUnavailable = errors.New("inference backend unavailable")

// Backend runs a detection model.
//
// Infer returns the raw output in box-major order, (numBoxes, 4+numClasses) with
// normalized coordinates. Implementations serialize concurrent calls.
type Backend interface {
	Infer(ctx context.Context, input *preprocess.TensorBuffer) ([]float32, error)
	Close() error
}

// BackendFunc adapts a function to the Backend interface. Close is a no-op.
type BackendFunc func(ctx context.Context, input *preprocess.TensorBuffer) ([]float32, error)

// Infer calls f.
func (f BackendFunc) Infer(ctx context.Context, input *preprocess.TensorBuffer) ([]float32, error) {
	return f(ctx, input)
}

// Close does nothing.
func (f BackendFunc) Close() error { return nil }

// Factory creates a ready-to-use backend.
type Factory func() (Backend, error)

// LazyBackend loads the wrapped backend on first use.
//
// A failed load fails that call with ErrBackendUnavailable and is retried on the
// next one. Close releases the loaded backend; a later Infer loads it again.
type LazyBackend struct {
	factory Factory

	mu      sync.Mutex
	backend Backend
}

// NewLazyBackend creates a backend that calls factory on first use.
func NewLazyBackend(factory Factory) *LazyBackend {
	return &LazyBackend{factory: factory}
}

// Load forces the backend to load now.
func (l *LazyBackend) Load() (Backend, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.loadLocked()
}

func (l *LazyBackend) loadLocked() (Backend, error) {
	if l.backend != nil {
		return l.backend, nil
	}

	b, err := l.factory()
	if err != nil {
		return nil, errors.Wrapf(ErrBackendUnavailable, "load: %v", err)
	}
	if b == nil {
		return nil, errors.Wrap(ErrBackendUnavailable, "load: factory returned no backend")
	}

	l.backend = b
	return b, nil
}

// Loaded reports whether the backend is currently loaded.
func (l *LazyBackend) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.backend != nil
}

// Infer loads the backend if needed and runs it.
func (l *LazyBackend) Infer(ctx context.Context, input *preprocess.TensorBuffer) ([]float32, error) {
	b, err := l.Load()
	if err != nil {
		return nil, err
	}
	return b.Infer(ctx, input)
}

// Close releases the loaded backend, if any.
func (l *LazyBackend) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.backend == nil {
		return nil
	}

	err := l.backend.Close()
	l.backend = nil
	return err
}
