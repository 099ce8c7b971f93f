package providers

import (
	ort "github.com/yalue/onnxruntime_go"
)

// ExecutionProvider represents the contract that all execution providers must implement.
type ExecutionProvider interface {
	// Backend identifies the provider.
	Backend() ProviderBackend
	// Apply appends the provider to the session options.
	Apply(options *ort.SessionOptions) error
}
