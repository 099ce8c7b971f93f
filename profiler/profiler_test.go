package profiler

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntimeProfiler_Stats(t *testing.T) {
	rp := NewRuntimeProfiler(ProfilingOptions{})

	for _, ms := range []int{10, 20, 30, 40} {
		rp.Record("inference", time.Duration(ms)*time.Millisecond)
	}
	rp.Record("decode", time.Millisecond)

	s, ok := rp.Stats("inference")
	require.True(t, ok)
	assert.Equal(t, int64(4), s.Count)
	assert.Equal(t, 25*time.Millisecond, s.Mean)
	assert.InDelta(t, float64(12910*time.Microsecond), float64(s.StdDev), float64(10*time.Microsecond))
	assert.Equal(t, 40*time.Millisecond, s.P95)
	assert.Equal(t, 10*time.Millisecond, s.Min)
	assert.Equal(t, 40*time.Millisecond, s.Max)

	_, ok = rp.Stats("missing")
	assert.False(t, ok)

	summary := rp.Summary()
	require.Len(t, summary, 2)
	assert.Equal(t, "inference", summary[0].Name)
	assert.Equal(t, "decode", summary[1].Name)
	assert.Equal(t, time.Duration(0), summary[1].StdDev, "single sample has no spread")
}

func TestRuntimeProfiler_WindowKeepsCount(t *testing.T) {
	rp := NewRuntimeProfiler(ProfilingOptions{MaxSamples: 2})
	rp.Record("op", 100*time.Millisecond)
	rp.Record("op", 2*time.Millisecond)
	rp.Record("op", 4*time.Millisecond)

	s, ok := rp.Stats("op")
	require.True(t, ok)
	assert.Equal(t, int64(3), s.Count)
	assert.Equal(t, 3*time.Millisecond, s.Mean, "oldest sample dropped")
	assert.Equal(t, 100*time.Millisecond, s.Max, "extremes cover every run")
}

func TestRuntimeProfiler_StartOperation(t *testing.T) {
	rp := NewRuntimeProfiler(ProfilingOptions{})
	done := rp.StartOperation("preprocess")
	done()

	s, ok := rp.Stats("preprocess")
	require.True(t, ok)
	assert.Equal(t, int64(1), s.Count)
	assert.GreaterOrEqual(t, s.Min, time.Duration(0))
}

func TestRuntimeProfiler_Report(t *testing.T) {
	logger, hook := test.NewNullLogger()
	rp := NewRuntimeProfiler(ProfilingOptions{})
	rp.Record("inference", 5*time.Millisecond)

	rp.Report(logger)

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "inference", entries[0].Data["operation"])
	assert.Equal(t, logrus.InfoLevel, entries[1].Level)
	assert.Contains(t, entries[1].Data, "heap_alloc")
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "2.0 MB", formatBytes(2<<20))
}
