package metrics

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCreatesSeriesOnFirstUse(t *testing.T) {
	r := NewRecorder()
	r.Plot(1, 10, "run", "Train Loss")
	r.Plot(2, 8, "run", "Train Loss")
	r.Plot(1, 50, "run", "Test")

	assert.Equal(t, []string{"Test", "Train Loss"}, r.Windows())
	series, ok := r.Series("Train Loss")
	require.True(t, ok)
	require.Len(t, series, 1)
	assert.Equal(t, []float64{1, 2}, series[0].X)
	assert.Equal(t, []float64{10, 8}, series[0].Y)

	_, ok = r.Series("missing")
	assert.False(t, ok)
}

func TestFanoutAndLogSink(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	r := NewRecorder()
	Fanout{r, LogSink{Logger: logger}, Discard}.Plot(3, 4, "a", "w")

	series, ok := r.Series("w")
	require.True(t, ok)
	assert.Equal(t, []float64{4}, series[0].Y)
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, "a", hook.LastEntry().Data["name"])
}

func TestLossWindowSnapshotResets(t *testing.T) {
	var w LossWindow
	w.Record(64, 1.2, 20*time.Millisecond)
	w.Record(64, 0.8, 20*time.Millisecond)
	snap := w.Snapshot()
	assert.InDelta(t, 2.0, snap.RunningLoss, 1e-12)
	assert.Equal(t, 2, snap.Steps)
	assert.InDelta(t, 3200, snap.ExamplesPerSec, 1e-6)
	assert.InDelta(t, 20, snap.AvgStepMS, 1e-9)

	assert.Equal(t, Snapshot{}, w.Snapshot())
}

func TestComputeDispersion(t *testing.T) {
	d, err := ComputeDispersion([]float64{80, 90, 100})
	require.NoError(t, err)
	assert.InDelta(t, 200.0/3, d.Variance, 1e-9)
	assert.Equal(t, 100.0, d.Max)
	assert.Equal(t, 80.0, d.Min)

	_, err = ComputeDispersion(nil)
	assert.Error(t, err)
}
