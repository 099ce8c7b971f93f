// Command detect runs YOLOv8 object detection on image files.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/go-detect/config"
	"github.com/nvr-ai/go-detect/detector"
	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/inference"
	"github.com/nvr-ai/go-detect/models"
	"github.com/nvr-ai/go-detect/models/postprocess"
	"github.com/nvr-ai/go-detect/models/yolov8"
	"github.com/nvr-ai/go-detect/profiler"
	"github.com/nvr-ai/go-detect/render"
	"github.com/nvr-ai/go-detect/util"
)

type flags struct {
	configPath string
	imagePath  string
	dir        string
	modelPath  string
	resolution string
	confidence float64
	useGPU     bool
	engine     string
	outputDir  string
}

func parseFlags() (flags, map[string]bool) {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "Path to a YAML configuration file")
	flag.StringVar(&f.imagePath, "image", "", "Path to image file (.jpg, .jpeg, .png, .bmp, .webp)")
	flag.StringVar(&f.dir, "dir", "", "Directory of images to process in name order")
	flag.StringVar(&f.modelPath, "model", "", "Path to YOLOv8 ONNX model file")
	flag.StringVar(&f.resolution, "resolution", string(images.DefaultResolution), "Input resolution: low, medium, high or ultra")
	flag.Float64Var(&f.confidence, "confidence", float64(config.DefaultConfidenceThreshold), "Object detection confidence threshold")
	flag.BoolVar(&f.useGPU, "gpu", true, "Use hardware acceleration when available")
	flag.StringVar(&f.engine, "engine", string(inference.EngineONNX), "Inference engine: "+engineNames())
	flag.StringVar(&f.outputDir, "output", "", "Directory for annotated images and JSON reports")
	flag.Parse()

	set := make(map[string]bool)
	flag.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	return f, set
}

func engineNames() string {
	names := make([]string, 0)
	for _, e := range inference.Engines() {
		names = append(names, string(e))
	}
	return strings.Join(names, ", ")
}

// loadConfig reads the configuration file, if any, and applies flags that were
// set explicitly on the command line.
func loadConfig(f flags, set map[string]bool) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if set["model"] {
		cfg.Model.Path = f.modelPath
	}
	if set["resolution"] {
		res, err := images.ParseInputResolution(f.resolution)
		if err != nil {
			return nil, err
		}
		cfg.Preferences.Resolution = res
	}
	if set["confidence"] {
		cfg.Preferences.ConfidenceThreshold = float32(f.confidence)
	}
	if set["gpu"] {
		cfg.Preferences.UseGPU = f.useGPU
	}
	if set["engine"] {
		engine, err := inference.ParseEngine(f.engine)
		if err != nil {
			return nil, err
		}
		cfg.Runtime.Engine = engine
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

func main() {
	f, set := parseFlags()

	if (f.imagePath == "") == (f.dir == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -image or -dir is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(f, set)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	logger, err := cfg.Log.NewLogger()
	if err != nil {
		logrus.WithError(err).Fatal("failed to configure logging")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, f, logger); err != nil {
		logger.WithError(err).Fatal("detection failed")
	}
}

func newDetector(cfg *config.Config, rp *profiler.RuntimeProfiler, logger logrus.FieldLogger) (*detector.Detector, error) {
	backend, err := inference.NewEngineBuilder().
		WithEngine(cfg.Runtime.Engine).
		WithModel(cfg.Model).
		WithRuntime(cfg.Runtime.Config).
		WithGPU(cfg.Preferences.UseGPU).
		WithLogger(logger).
		Build()
	if err != nil {
		return nil, err
	}

	loader := models.COCOClassLoader()
	if cfg.Model.LabelsPath != "" {
		loader = models.FileClassLoader(cfg.Model.LabelsPath)
	}
	names := models.NewResolver(loader, logger)
	if names.Len() > 0 && names.Len() != cfg.Model.NumClasses {
		logger.WithFields(logrus.Fields{
			"labels":      names.Len(),
			"num_classes": cfg.Model.NumClasses,
		}).Warn("label count does not match model classes")
	}

	decoder := yolov8.NewDecoder(cfg.Model.NumClasses, names)
	return detector.New(backend, decoder, detector.WithLogger(logger), detector.WithRecorder(rp)), nil
}

func run(ctx context.Context, cfg *config.Config, f flags, logger *logrus.Logger) error {
	rp := profiler.NewRuntimeProfiler(profiler.ProfilingOptions{})
	det, err := newDetector(cfg, rp, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := det.Close(); err != nil {
			logger.WithError(err).Warn("failed to close backend")
		}
	}()

	var files []util.ImageFile
	if f.dir != "" {
		files, err = util.LoadDirectoryImageFiles(f.dir)
	} else {
		var file util.ImageFile
		file, err = util.LoadImageFile(f.imagePath)
		files = []util.ImageFile{file}
	}
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.Errorf("no images found in %s", f.dir)
	}

	if f.outputDir != "" {
		if err := os.MkdirAll(f.outputDir, 0o755); err != nil {
			return errors.Wrap(err, "create output directory")
		}
	}

	processed, failures := 0, 0
	for _, file := range files {
		err := processFile(ctx, det, file, cfg.Preferences, f.outputDir, logger)
		if err != nil {
			if detector.ReasonOf(err) == detector.ReasonCanceled {
				return err
			}
			failures++
			logger.WithError(err).WithField("file", file.Path).Error("failed to process image")
			continue
		}
		processed++
	}

	if cfg.Preferences.ShowMetrics && processed > 1 {
		fmt.Printf("processed %d images\n", processed)
		for _, s := range rp.Summary() {
			fmt.Printf("  %s\n", s)
		}
		rp.Report(logger)
	}
	if failures == len(files) {
		return errors.Errorf("all %d images failed", failures)
	}
	return nil
}

func processFile(
	ctx context.Context,
	det *detector.Detector,
	file util.ImageFile,
	prefs config.Preferences,
	outputDir string,
	logger logrus.FieldLogger,
) error {
	img, format, err := file.Decode()
	if err != nil {
		return &detector.Failure{Reason: detector.ReasonInvalidImage, Err: err}
	}

	// Only JPEG carries EXIF orientation among the supported formats.
	if format == images.FormatJPEG {
		img = images.FixOrientationFromSource(img, file.Reader(), logger.WithField("file", file.Path))
	}

	outcome := <-det.Submit(ctx, detector.Request{Image: img, Preferences: prefs})
	if outcome.Err != nil {
		return outcome.Err
	}

	if err := render.WriteSummary(os.Stdout, file.Name(), outcome.Results, prefs); err != nil {
		return err
	}
	if outputDir == "" {
		return nil
	}
	return writeOutputs(outputDir, file.Name(), img, outcome.Results, prefs)
}

func writeOutputs(dir, name string, img image.Image, results *postprocess.DetectionResults, prefs config.Preferences) error {
	base := strings.TrimSuffix(name, filepath.Ext(name))

	err := writeFile(filepath.Join(dir, base+"_detections.png"), func(w io.Writer) error {
		return png.Encode(w, render.Overlay(img, results, prefs))
	})
	if err != nil {
		return errors.Wrap(err, "write annotated image")
	}

	return errors.Wrap(writeFile(filepath.Join(dir, base+".json"), func(w io.Writer) error {
		return render.WriteReport(w, results)
	}), "write report")
}

// writeFile creates path and fills it with write. A failed close is reported
// when write itself succeeded.
func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	return write(f)
}
