// Package config - Configuration for the detection pipeline and its runtime.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/inference"
	"github.com/nvr-ai/go-detect/inference/providers"
	"github.com/nvr-ai/go-detect/models/yolov8"
)

// DefaultConfidenceThreshold is the minimum class score reported by default.
const DefaultConfidenceThreshold float32 = 0.25

// maxFileSize bounds config files read from disk.
const maxFileSize = 1 << 20

// Preferences are the per-run choices a user makes.
type Preferences struct {
	// ConfidenceThreshold is the minimum class score for a detection.
	ConfidenceThreshold float32 `json:"confidence_threshold" yaml:"confidence_threshold"`
	// Resolution is the square edge the image is scaled to.
	Resolution images.InputResolution `json:"resolution" yaml:"resolution"`
	// UseGPU requests hardware acceleration for the backend.
	UseGPU bool `json:"use_gpu" yaml:"use_gpu"`
	// ShowConfidence adds the confidence to rendered labels.
	ShowConfidence bool `json:"show_confidence" yaml:"show_confidence"`
	// ShowMetrics reports inference latency alongside results.
	ShowMetrics bool `json:"show_metrics" yaml:"show_metrics"`
}

// DefaultPreferences returns the preferences of a fresh install.
func DefaultPreferences() Preferences {
	return Preferences{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		Resolution:          images.DefaultResolution,
		UseGPU:              true,
		ShowConfidence:      true,
		ShowMetrics:         true,
	}
}

// Validate checks the preferences a pipeline run depends on. The confidence
// threshold is passed through as-is: above 1 no box passes, below 0 every box does.
func (p Preferences) Validate() error {
	if !p.Resolution.Valid() {
		return errors.Errorf("unsupported resolution %q", p.Resolution)
	}
	return nil
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is a logrus level name (debug, info, warn, error).
	Level string `json:"level" yaml:"level"`
	// Format is text or json.
	Format string `json:"format" yaml:"format"`
}

// RuntimeConfig selects the inference engine and its execution provider.
type RuntimeConfig struct {
	// Engine is onnx or, in gocv builds, opencv.
	Engine           inference.EngineType `json:"engine" yaml:"engine"`
	providers.Config `yaml:",inline"`
}

// Config is the root configuration file.
type Config struct {
	Model       yolov8.Options `json:"model" yaml:"model"`
	Runtime     RuntimeConfig  `json:"runtime" yaml:"runtime"`
	Preferences Preferences    `json:"preferences" yaml:"preferences"`
	Log         LogConfig      `json:"log" yaml:"log"`
}

// DefaultConfig returns a configuration for a COCO YOLOv8 model on ONNX Runtime.
// The model path still has to be provided.
func DefaultConfig() *Config {
	return &Config{
		Model: yolov8.DefaultOptions(),
		Runtime: RuntimeConfig{
			Engine: inference.EngineONNX,
			Config: providers.DefaultConfig(),
		},
		Preferences: DefaultPreferences(),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks the whole configuration. Unlike Preferences.Validate it also
// requires the confidence threshold to be within [0, 1].
func (c *Config) Validate() error {
	if err := c.Model.Validate(); err != nil {
		return errors.Wrap(err, "model")
	}
	if err := c.Runtime.Config.Validate(); err != nil {
		return errors.Wrap(err, "runtime")
	}
	switch c.Runtime.Engine {
	case inference.EngineONNX, inference.EngineOpenCV:
	default:
		return errors.Errorf("runtime: unknown engine %q", c.Runtime.Engine)
	}
	if err := c.Preferences.Validate(); err != nil {
		return errors.Wrap(err, "preferences")
	}
	if t := c.Preferences.ConfidenceThreshold; !(t >= 0 && t <= 1) {
		return errors.Errorf("preferences: confidence_threshold must be within [0, 1], got %v", t)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.Errorf("log: unknown format %q", c.Log.Format)
	}
	return nil
}

// InferenceOptions returns the backend options described by the configuration.
func (c *Config) InferenceOptions() inference.Options {
	return inference.Options{
		Model:   c.Model,
		Runtime: c.Runtime.Config,
		UseGPU:  c.Preferences.UseGPU,
	}
}

// Load reads a YAML configuration file. Fields omitted from the file keep their
// DefaultConfig values. The result is not validated so callers can apply
// overrides first.
//
// Arguments:
//   - path: A .yaml or .yml file.
//
// Returns:
//   - *Config: The configuration.
//   - error: An error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	switch strings.ToLower(filepath.Ext(cleanPath)) {
	case ".yaml", ".yml":
	default:
		return nil, errors.Errorf("config file must have .yaml or .yml extension, got %q", filepath.Ext(cleanPath))
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, errors.Wrap(err, "stat config file")
	}
	if info.Size() > maxFileSize {
		return nil, errors.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, errors.Wrap(err, "read config file")
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parse config file")
	}

	if cfg.Preferences.Resolution != "" {
		res, err := images.ParseInputResolution(string(cfg.Preferences.Resolution))
		if err != nil {
			return nil, errors.Wrap(err, "preferences")
		}
		cfg.Preferences.Resolution = res
	}

	return cfg, nil
}

// NewLogger builds a logger from the log section.
func (c LogConfig) NewLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetLevel(level)
	if c.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}
