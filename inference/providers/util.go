// Package providers - Utility functions.
package providers

import (
	"os"
	"path/filepath"
	"runtime"
)

// LibraryPathEnv overrides the onnxruntime shared library location.
const LibraryPathEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

// LibraryDir is the directory searched for the bundled shared library.
var LibraryDir = "./third_party"

// SharedLibraryPath returns the path to the shared library for the current platform.
//
// Returns:
//   - string: The path to the shared library.
func SharedLibraryPath() string {
	if p := os.Getenv(LibraryPathEnv); p != "" {
		return p
	}
	return filepath.Join(LibraryDir, sharedLibraryName(goos, runtime.GOARCH))
}

func sharedLibraryName(platform, arch string) string {
	switch platform {
	case "windows":
		return "onnxruntime.dll"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		if arch == "arm64" {
			return "onnxruntime_arm64.so"
		}
		return "onnxruntime.so"
	}
}
