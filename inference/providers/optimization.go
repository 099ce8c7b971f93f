package providers

import (
	"strings"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// GraphOptimization names an ONNX Runtime graph optimization level.
type GraphOptimization string

const (
	GraphOptimizationDisabled GraphOptimization = "disabled"
	GraphOptimizationBasic    GraphOptimization = "basic"
	GraphOptimizationExtended GraphOptimization = "extended"
	GraphOptimizationAll      GraphOptimization = "all"
)

var graphOptimizationLevels = map[GraphOptimization]ort.GraphOptimizationLevel{
	GraphOptimizationDisabled: ort.GraphOptimizationLevelDisableAll,
	GraphOptimizationBasic:    ort.GraphOptimizationLevelEnableBasic,
	GraphOptimizationExtended: ort.GraphOptimizationLevelEnableExtended,
	GraphOptimizationAll:      ort.GraphOptimizationLevelEnableAll,
}

// Level returns the runtime level. An empty value means all optimizations.
func (g GraphOptimization) Level() (ort.GraphOptimizationLevel, error) {
	if g == "" {
		return ort.GraphOptimizationLevelEnableAll, nil
	}
	level, ok := graphOptimizationLevels[GraphOptimization(strings.ToLower(string(g)))]
	if !ok {
		return 0, errors.Errorf("unknown graph optimization level %q", g)
	}
	return level, nil
}

// ExecutionMode names how independent graph nodes are scheduled.
type ExecutionMode string

const (
	ExecutionModeSequential ExecutionMode = "sequential"
	ExecutionModeParallel   ExecutionMode = "parallel"
)

// Mode returns the runtime execution mode. An empty value means sequential.
func (m ExecutionMode) Mode() (ort.ExecutionMode, error) {
	switch ExecutionMode(strings.ToLower(string(m))) {
	case "", ExecutionModeSequential:
		return ort.ExecutionModeSequential, nil
	case ExecutionModeParallel:
		return ort.ExecutionModeParallel, nil
	default:
		return 0, errors.Errorf("unknown execution mode %q", m)
	}
}

// Optimization tunes graph rewriting and scheduling of a session.
type Optimization struct {
	// GraphLevel is disabled, basic, extended or all (default).
	GraphLevel GraphOptimization `json:"graph_level" yaml:"graph_level"`
	// ExecutionMode is sequential (default) or parallel. Parallel only helps
	// models with independent branches and uses InterOpNumThreads.
	ExecutionMode ExecutionMode `json:"execution_mode" yaml:"execution_mode"`
}

// Validate checks both settings.
func (o Optimization) Validate() error {
	if _, err := o.GraphLevel.Level(); err != nil {
		return err
	}
	_, err := o.ExecutionMode.Mode()
	return err
}

func applyTuning(options *ort.SessionOptions, cfg Config) error {
	if cfg.IntraOpNumThreads > 0 {
		if err := options.SetIntraOpNumThreads(cfg.IntraOpNumThreads); err != nil {
			return errors.Wrap(err, "set intra-op threads")
		}
	}
	if cfg.InterOpNumThreads > 0 {
		if err := options.SetInterOpNumThreads(cfg.InterOpNumThreads); err != nil {
			return errors.Wrap(err, "set inter-op threads")
		}
	}

	level, err := cfg.Optimization.GraphLevel.Level()
	if err != nil {
		return err
	}
	if err := options.SetGraphOptimizationLevel(level); err != nil {
		return errors.Wrap(err, "set graph optimization level")
	}

	mode, err := cfg.Optimization.ExecutionMode.Mode()
	if err != nil {
		return err
	}
	if err := options.SetExecutionMode(mode); err != nil {
		return errors.Wrap(err, "set execution mode")
	}
	return nil
}
