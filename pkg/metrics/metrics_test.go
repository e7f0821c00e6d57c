package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ja7ad/spsim/pkg/study"
	"github.com/ja7ad/spsim/pkg/system/proc"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	m := New(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.combinations))

	begin := time.Now()
	m.Observe(study.Result{Status: study.Success(), Begin: begin, End: begin.Add(time.Second)})
	m.Observe(study.Result{Status: study.EarlyExit("backlog"), Begin: begin, End: begin.Add(time.Second)})
	m.Observe(study.Result{Status: study.Error("boom")})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.results.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.results.WithLabelValues("early_exit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.results.WithLabelValues("error")))
	// the error result has no duration
	var h dto.Metric
	require.NoError(t, m.duration.Write(&h))
	assert.EqualValues(t, 2, h.GetHistogram().GetSampleCount())
	assert.InDelta(t, 2.0, h.GetHistogram().GetSampleSum(), 1e-9)
}

func TestObserveUsage(t *testing.T) {
	m := New(2)
	m.ObserveUsage(proc.Usage{CPUSeconds: 0.25, PeakRSS: 2048})
	m.ObserveUsage(proc.Usage{CPUSeconds: 0.5, PeakRSS: 1024})

	assert.InDelta(t, 0.75, testutil.ToFloat64(m.cpu), 1e-12)
	assert.Equal(t, 2048.0, testutil.ToFloat64(m.peakRSS))
}

func TestWriteFile(t *testing.T) {
	m := New(1)
	m.Observe(study.Result{Status: study.Success()})
	m.Checkpoint()

	path := filepath.Join(t.TempDir(), File)
	require.NoError(t, m.WriteFile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(b)
	for _, name := range []string{
		"spsim_combinations 1",
		`spsim_results_total{status="success"} 1`,
		`spsim_results_total{status="error"} 0`,
		"spsim_checkpoints_total 1",
		"spsim_worker_peak_rss_bytes 0",
	} {
		assert.True(t, strings.Contains(text, name), "missing %q in\n%s", name, text)
	}
}
