package training

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"DPSGDDev/pkg/checkpoint"
	"DPSGDDev/pkg/config"
	"DPSGDDev/pkg/metrics"
	"DPSGDDev/pkg/rng"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallConfig() *config.Config {
	return &config.Config{
		BatchSize:       20,
		NumMicrobatches: 4,
		LR:              0.05,
		Momentum:        0.5,
		Decay:           0.0005,
		Epochs:          3,
		S:               1,
		Z:               1.1,
		DP:              true,
		Seed:            5,
		Dataset:         config.DatasetSynthetic,
		HiddenSizes:     []int{16},
		TestBatchSize:   50,
		LogEvery:        20,
		Name:            "run",
		SyntheticTrain:  1000,
		SyntheticTest:   200,
		SyntheticDim:    8,
		SyntheticNoise:  0.3,
	}
}

func buildRunner(t *testing.T, cfg *config.Config, sink metrics.Sink, ckpt CheckpointWriter) *Runner {
	t.Helper()
	logger, _ := test.NewNullLogger()
	rc := rng.New(cfg.Seed)
	train, testSet, err := LoadData(cfg, rc)
	require.NoError(t, err)
	r, err := NewRunner(cfg, train, testSet, rc, sink, ckpt, logger)
	require.NoError(t, err)
	return r
}

type recordingWriter struct {
	epochs []int
	err    error
}

func (w *recordingWriter) Save(_ checkpoint.Model, epoch int, _ float64) error {
	w.epochs = append(w.epochs, epoch)
	return w.err
}

func TestRunDPEndToEnd(t *testing.T) {
	cfg := smallConfig()
	logger, _ := test.NewNullLogger()
	writer, err := checkpoint.NewWriter(t.TempDir(), logger)
	require.NoError(t, err)
	rec := metrics.NewRecorder()

	results, err := buildRunner(t, cfg, rec, writer).Run()
	require.NoError(t, err)
	require.Len(t, results, cfg.Epochs)

	for i, res := range results {
		assert.Equal(t, i, res.Epoch)
		assert.GreaterOrEqual(t, res.Accuracy, 0.0)
		assert.LessOrEqual(t, res.Accuracy, 100.0)
		if i == 0 {
			continue
		}
		assert.Len(t, res.PerClass, 10)
		assert.LessOrEqual(t, res.Dispersion.Min, res.Dispersion.Max)
	}

	for _, name := range []string{"model_epoch_1.gob", "model_epoch_2.gob", "model_last.gob", "model_best.gob"} {
		_, err := os.Stat(filepath.Join(writer.Dir(), name))
		assert.NoError(t, err, name)
	}
	snap, err := checkpoint.Load(filepath.Join(writer.Dir(), "model_last.gob"))
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Epoch)
	assert.Equal(t, []int{8, 16, 10}, snap.LayerSizes)

	assert.Equal(t, []string{cfg.WindowName(), cfg.WindowName() + "_class_acc", TrainLossWindow}, rec.Windows())
	acc, ok := rec.Series(cfg.WindowName())
	require.True(t, ok)
	assert.Equal(t, []float64{0, 1, 2}, acc[0].X)
	loss, ok := rec.Series(TrainLossWindow)
	require.True(t, ok)
	// 每轮 50 个批次，第 20、40 步上报
	assert.Equal(t, []float64{70, 90, 120, 140}, loss[0].X)
	class, ok := rec.Series(cfg.WindowName() + "_class_acc")
	require.True(t, ok)
	require.Len(t, class, 3)
	assert.Equal(t, "run_max", class[0].Name)
}

func TestRunNonPrivateLearns(t *testing.T) {
	cfg := smallConfig()
	cfg.DP = false
	cfg.LR = 0.3
	cfg.Epochs = 6
	cfg.SyntheticTrain = 2000
	w := &recordingWriter{}

	results, err := buildRunner(t, cfg, metrics.Discard, w).Run()
	require.NoError(t, err)
	require.Len(t, results, 6)
	assert.Greater(t, results[5].Accuracy, 50.0)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, w.epochs)
}

func TestRunIsReproducible(t *testing.T) {
	run := func() []EpochResult {
		results, err := buildRunner(t, smallConfig(), metrics.Discard, &recordingWriter{}).Run()
		require.NoError(t, err)
		return results
	}
	assert.Equal(t, run(), run())
}

func TestRunStopsOnCheckpointError(t *testing.T) {
	boom := errors.New("disk full")
	results, err := buildRunner(t, smallConfig(), metrics.Discard, &recordingWriter{err: boom}).Run()
	require.ErrorIs(t, err, boom)
	assert.Len(t, results, 1)
}

func TestNewRunnerUsesExponentialSubset(t *testing.T) {
	cfg := smallConfig()
	cfg.Mu = 0.5
	r := buildRunner(t, cfg, metrics.Discard, &recordingWriter{})
	assert.Less(t, r.TrainLoader.Size(), cfg.SyntheticTrain)
	assert.GreaterOrEqual(t, r.TrainLoader.Size(), 10)
	assert.Equal(t, cfg.SyntheticTest, r.TestLoader.Size())
	assert.Len(t, r.PerClass, 10)
}

func TestNewRunnerRejectsInvalidConfig(t *testing.T) {
	cfg := smallConfig()
	logger, _ := test.NewNullLogger()
	rc := rng.New(cfg.Seed)
	train, testSet, err := LoadData(cfg, rc)
	require.NoError(t, err)

	cfg.BatchSize = 18
	_, err = NewRunner(cfg, train, testSet, rc, metrics.Discard, &recordingWriter{}, logger)
	require.Error(t, err)

	cfg = smallConfig()
	cfg.BatchSize = 2000
	_, err = NewRunner(cfg, train, testSet, rc, metrics.Discard, &recordingWriter{}, logger)
	require.Error(t, err)
}

func TestLoadDataRejectsUnknownDataset(t *testing.T) {
	cfg := smallConfig()
	cfg.Dataset = "imagenet"
	_, _, err := LoadData(cfg, rng.New(1))
	require.Error(t, err)
}
