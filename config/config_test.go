package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/inference"
	"github.com/nvr-ai/go-detect/inference/providers"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultPreferences(t *testing.T) {
	p := DefaultPreferences()
	assert.Equal(t, float32(0.25), p.ConfidenceThreshold)
	assert.Equal(t, images.ResolutionMedium, p.Resolution)
	assert.Equal(t, 416, p.Resolution.Edge())
	assert.True(t, p.UseGPU)
	assert.True(t, p.ShowConfidence)
	assert.True(t, p.ShowMetrics)
	assert.NoError(t, p.Validate())
}

func TestPreferences_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Preferences)
		wantErr bool
	}{
		{"defaults", func(*Preferences) {}, false},
		{"zero threshold", func(p *Preferences) { p.ConfidenceThreshold = 0 }, false},
		{"one threshold", func(p *Preferences) { p.ConfidenceThreshold = 1 }, false},
		{"negative threshold", func(p *Preferences) { p.ConfidenceThreshold = -0.1 }, false},
		{"threshold above one", func(p *Preferences) { p.ConfidenceThreshold = 1.5 }, false},
		{"unknown resolution", func(p *Preferences) { p.Resolution = "huge" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPreferences()
			tt.mutate(&p)
			if tt.wantErr {
				assert.Error(t, p.Validate())
			} else {
				assert.NoError(t, p.Validate())
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := writeFile(t, "detect.yaml", `
model:
  path: models/yolov8n.onnx
  num_classes: 3
  labels_path: labels.txt
runtime:
  engine: onnx
  provider: cpu
  intra_op_threads: 4
  cuda:
    device_id: 1
preferences:
  confidence_threshold: 0.5
  resolution: HIGH
  show_metrics: false
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "models/yolov8n.onnx", cfg.Model.Path)
	assert.Equal(t, 3, cfg.Model.NumClasses)
	assert.Equal(t, "images", cfg.Model.InputName, "omitted fields keep defaults")
	assert.Equal(t, "labels.txt", cfg.Model.LabelsPath)

	assert.Equal(t, inference.EngineONNX, cfg.Runtime.Engine)
	assert.Equal(t, providers.CPUProviderBackend, cfg.Runtime.Backend)
	assert.Equal(t, 4, cfg.Runtime.IntraOpNumThreads)
	assert.Equal(t, 1, cfg.Runtime.CUDA.DeviceID)
	assert.Equal(t, "HEURISTIC", cfg.Runtime.CUDA.CudnnConvAlgoSearch)

	assert.Equal(t, float32(0.5), cfg.Preferences.ConfidenceThreshold)
	assert.Equal(t, images.ResolutionHigh, cfg.Preferences.Resolution)
	assert.False(t, cfg.Preferences.ShowMetrics)
	assert.True(t, cfg.Preferences.ShowConfidence)

	opts := cfg.InferenceOptions()
	assert.Equal(t, cfg.Model, opts.Model)
	assert.True(t, opts.UseGPU)

	logger, err := cfg.Log.NewLogger()
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(writeFile(t, "detect.json", `{}`))
	assert.Error(t, err, "wrong extension")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "broken.yaml", "model: [unclosed"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "res.yaml", "preferences:\n  resolution: 999\n"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate(), "model path is required")

	cfg.Model.Path = "m.onnx"
	assert.NoError(t, cfg.Validate())

	cfg.Runtime.Engine = "tflite"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Model.Path = "m.onnx"
	cfg.Log.Format = "xml"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Model.Path = "m.onnx"
	cfg.Log.Level = "loud"
	assert.Error(t, cfg.Validate())
}

func TestConfig_ValidateThreshold(t *testing.T) {
	tests := []struct {
		name      string
		threshold float32
		wantErr   bool
	}{
		{"zero", 0, false},
		{"one", 1, false},
		{"negative", -0.1, true},
		{"above one", 1.5, true},
		{"nan", float32(math.NaN()), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Model.Path = "m.onnx"
			cfg.Preferences.ConfidenceThreshold = tt.threshold
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
			assert.NoError(t, cfg.Preferences.Validate(), "preferences pass the threshold through")
		})
	}
}
