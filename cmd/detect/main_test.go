package main

import (
	"encoding/json"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-detect/config"
	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/inference"
	"github.com/nvr-ai/go-detect/models/postprocess"
)

func TestLoadConfig_FlagOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detect.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
model:
  path: from-file.onnx
preferences:
  confidence_threshold: 0.4
  resolution: high
`), 0o600))

	f := flags{
		configPath: path,
		modelPath:  "from-flag.onnx",
		resolution: "ultra",
		confidence: 0.9,
		useGPU:     false,
		engine:     "onnx",
	}

	cfg, err := loadConfig(f, map[string]bool{"model": true, "gpu": true})
	require.NoError(t, err)
	assert.Equal(t, "from-flag.onnx", cfg.Model.Path)
	assert.Equal(t, images.ResolutionHigh, cfg.Preferences.Resolution, "unset flags keep file values")
	assert.Equal(t, float32(0.4), cfg.Preferences.ConfidenceThreshold)
	assert.False(t, cfg.Preferences.UseGPU)
	assert.Equal(t, inference.EngineONNX, cfg.Runtime.Engine)

	cfg, err = loadConfig(f, map[string]bool{"resolution": true, "confidence": true})
	require.NoError(t, err)
	assert.Equal(t, images.ResolutionUltra, cfg.Preferences.Resolution)
	assert.InDelta(t, 0.9, cfg.Preferences.ConfidenceThreshold, 1e-6)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := loadConfig(flags{}, map[string]bool{})
	assert.Error(t, err, "model path is required")

	base := flags{modelPath: "m.onnx"}
	set := map[string]bool{"model": true}

	_, err = loadConfig(base, set)
	assert.NoError(t, err)

	bad := base
	bad.resolution = "tiny"
	_, err = loadConfig(bad, map[string]bool{"model": true, "resolution": true})
	assert.Error(t, err)

	bad = base
	bad.confidence = 1.5
	_, err = loadConfig(bad, map[string]bool{"model": true, "confidence": true})
	assert.Error(t, err)

	bad = base
	bad.engine = "tflite"
	_, err = loadConfig(bad, map[string]bool{"model": true, "engine": true})
	assert.Error(t, err)
}

func TestWriteOutputs(t *testing.T) {
	dir := t.TempDir()
	results := &postprocess.DetectionResults{
		ID:          "run-1",
		Detections:  []postprocess.Detection{{ClassID: 0, ClassName: "person", Confidence: 0.9, Box: images.Rect{X1: 2, Y1: 2, X2: 8, Y2: 8}}},
		ImageWidth:  10,
		ImageHeight: 10,
	}

	err := writeOutputs(dir, "street.jpg", image.NewNRGBA(image.Rect(0, 0, 10, 10)), results, config.DefaultPreferences())
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(dir, "street_detections.png"))
	require.NoError(t, err)
	defer f.Close()
	annotated, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 10, 10), annotated.Bounds())

	data, err := os.ReadFile(filepath.Join(dir, "street.json"))
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}

func TestWriteOutputs_Errors(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))

	err := writeOutputs(filepath.Join(t.TempDir(), "missing"), "a.png", img, &postprocess.DetectionResults{}, config.DefaultPreferences())
	assert.Error(t, err, "output directory does not exist")

	err = writeOutputs(t.TempDir(), "a.png", img, nil, config.DefaultPreferences())
	assert.Error(t, err, "report without results")
}

func TestWriteFile(t *testing.T) {
	errWrite := errors.New("disk full")

	tests := []struct {
		name    string
		write   func(io.Writer) error
		wantErr error
	}{
		{"success", func(w io.Writer) error { _, err := io.WriteString(w, "ok"); return err }, nil},
		{"write error wins", func(io.Writer) error { return errWrite }, errWrite},
		{"close error surfaces", func(w io.Writer) error { return w.(*os.File).Close() }, os.ErrClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.txt")
			err := writeFile(path, tt.write)
			if tt.wantErr == nil {
				require.NoError(t, err)
				data, err := os.ReadFile(path)
				require.NoError(t, err)
				assert.Equal(t, "ok", string(data))
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
