// Package profiler - Per-stage timing statistics for pipeline runs.
package profiler

import (
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

// DefaultMaxSamples bounds the samples kept per operation.
const DefaultMaxSamples = 1000

// RuntimeProfiler records how long named operations take.
//
// It is safe for concurrent use. Only the most recent MaxSamples durations of
// each operation are kept for statistics; Count covers every recorded run.
type RuntimeProfiler struct {
	mu         sync.Mutex
	maxSamples int
	startTime  time.Time
	operations map[string]*TimeTracker
	order      []string
}

// TimeTracker tracks operation timing statistics.
type TimeTracker struct {
	durations []float64 // milliseconds
	count     int64
	minTime   time.Duration
	maxTime   time.Duration
}

// OperationStats summarizes the timings of one operation.
type OperationStats struct {
	Name   string
	Count  int64
	Mean   time.Duration
	StdDev time.Duration
	P95    time.Duration
	Min    time.Duration
	Max    time.Duration
}

func (s OperationStats) String() string {
	return fmt.Sprintf("%s: n=%d mean=%s stddev=%s p95=%s min=%s max=%s",
		s.Name, s.Count, s.Mean, s.StdDev, s.P95, s.Min, s.Max)
}

// ProfilingOptions configures the runtime profiler.
type ProfilingOptions struct {
	// MaxSamples specifies maximum number of samples to keep per operation (default: 1000)
	MaxSamples int
}

// NewRuntimeProfiler creates a new runtime profiler with the specified options.
//
// Arguments:
// - opts: Configuration options for the profiler
//
// Returns:
// - A configured RuntimeProfiler instance
func NewRuntimeProfiler(opts ProfilingOptions) *RuntimeProfiler {
	if opts.MaxSamples <= 0 {
		opts.MaxSamples = DefaultMaxSamples
	}
	return &RuntimeProfiler{
		maxSamples: opts.MaxSamples,
		startTime:  time.Now(),
		operations: make(map[string]*TimeTracker),
	}
}

// StartOperation begins timing an operation.
//
// Arguments:
// - name: The name of the operation to track
//
// Returns:
// - A function to call when the operation completes
func (rp *RuntimeProfiler) StartOperation(name string) func() {
	start := time.Now()
	return func() {
		rp.Record(name, time.Since(start))
	}
}

// Record adds one duration for the named operation.
func (rp *RuntimeProfiler) Record(name string, duration time.Duration) {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	tracker, exists := rp.operations[name]
	if !exists {
		tracker = &TimeTracker{minTime: duration, maxTime: duration}
		rp.operations[name] = tracker
		rp.order = append(rp.order, name)
	}

	tracker.durations = append(tracker.durations, float64(duration)/float64(time.Millisecond))
	if len(tracker.durations) > rp.maxSamples {
		tracker.durations = tracker.durations[1:]
	}
	tracker.count++

	if duration < tracker.minTime {
		tracker.minTime = duration
	}
	if duration > tracker.maxTime {
		tracker.maxTime = duration
	}
}

// Stats returns the statistics of one operation.
func (rp *RuntimeProfiler) Stats(name string) (OperationStats, bool) {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	tracker, ok := rp.operations[name]
	if !ok {
		return OperationStats{}, false
	}
	return tracker.stats(name), true
}

// Summary returns the statistics of every operation in first-recorded order.
func (rp *RuntimeProfiler) Summary() []OperationStats {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	out := make([]OperationStats, 0, len(rp.order))
	for _, name := range rp.order {
		out = append(out, rp.operations[name].stats(name))
	}
	return out
}

func (t *TimeTracker) stats(name string) OperationStats {
	sorted := append([]float64(nil), t.durations...)
	sort.Float64s(sorted)

	mean, std := stat.MeanStdDev(sorted, nil)
	if len(sorted) < 2 {
		std = 0
	}

	return OperationStats{
		Name:   name,
		Count:  t.count,
		Mean:   millis(mean),
		StdDev: millis(std),
		P95:    millis(stat.Quantile(0.95, stat.Empirical, sorted, nil)),
		Min:    t.minTime,
		Max:    t.maxTime,
	}
}

func millis(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

// Report logs one entry per operation and a process memory snapshot.
func (rp *RuntimeProfiler) Report(logger logrus.FieldLogger) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	for _, s := range rp.Summary() {
		logger.WithFields(logrus.Fields{
			"operation": s.Name,
			"count":     s.Count,
			"mean_ms":   durationMillis(s.Mean),
			"stddev_ms": durationMillis(s.StdDev),
			"p95_ms":    durationMillis(s.P95),
			"max_ms":    durationMillis(s.Max),
		}).Info("operation timings")
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	logger.WithFields(logrus.Fields{
		"uptime":     time.Since(rp.startTime).Round(time.Millisecond),
		"heap_alloc": formatBytes(mem.HeapAlloc),
		"sys":        formatBytes(mem.Sys),
		"num_gc":     mem.NumGC,
		"goroutines": runtime.NumGoroutine(),
	}).Info("runtime status")
}

func durationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
