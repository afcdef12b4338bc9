package training

import (
	"testing"

	"DPSGDDev/pkg/dataProcess"
	"DPSGDDev/pkg/metrics"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEvaluator(sink metrics.Sink) *Evaluator {
	logger, _ := test.NewNullLogger()
	return &Evaluator{Sink: sink, Logger: logger}
}

// predictLoader 第i个样本的输入是 preds[i]，标签是 labels[i]
func predictLoader(t *testing.T, preds, labels []int, batchSize int) *dataProcess.Loader {
	t.Helper()
	images := make([][]float64, len(preds))
	for i, p := range preds {
		images[i] = []float64{float64(p)}
	}
	ds, err := dataProcess.NewDataset(images, labels, 3)
	require.NoError(t, err)
	loader, err := dataProcess.NewLoader(ds, nil, dataProcess.LoaderOptions{BatchSize: batchSize}, nil)
	require.NoError(t, err)
	return loader
}

func TestEvaluateAccuracy(t *testing.T) {
	model := newScriptedModel(nil)
	rec := metrics.NewRecorder()
	e := newEvaluator(rec)

	loader := predictLoader(t, []int{0, 1, 2, 0}, []int{0, 1, 2, 1}, 3)
	acc, err := e.Evaluate(model, loader, EvalOptions{Epoch: 4, Name: "run", Win: "win", Plot: true})
	require.NoError(t, err)
	assert.InDelta(t, 75, acc, 1e-12)
	assert.False(t, model.training)

	series, ok := rec.Series("win")
	require.True(t, ok)
	assert.Equal(t, []float64{4}, series[0].X)
	assert.Equal(t, []float64{75}, series[0].Y)
}

func TestEvaluateBounds(t *testing.T) {
	model := newScriptedModel(nil)
	e := newEvaluator(metrics.Discard)

	acc, err := e.Evaluate(model, predictLoader(t, []int{2, 2, 2}, []int{2, 2, 2}, 2), EvalOptions{})
	require.NoError(t, err)
	assert.Equal(t, 100.0, acc)

	acc, err = e.Evaluate(model, predictLoader(t, []int{0, 0}, []int{1, 2}, 2), EvalOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, acc)
}

func TestEvaluateDoesNotPlotUnlessAsked(t *testing.T) {
	rec := metrics.NewRecorder()
	_, err := newEvaluator(rec).Evaluate(newScriptedModel(nil), predictLoader(t, []int{1}, []int{1}, 1), EvalOptions{Win: "win"})
	require.NoError(t, err)
	assert.Empty(t, rec.Windows())
}

func TestEvaluateEmptyLoader(t *testing.T) {
	ds, err := dataProcess.NewDataset([][]float64{{0}}, []int{0}, 1)
	require.NoError(t, err)
	loader, err := dataProcess.NewLoader(ds, []int{}, dataProcess.LoaderOptions{BatchSize: 4}, nil)
	require.NoError(t, err)

	_, err = newEvaluator(metrics.Discard).Evaluate(newScriptedModel(nil), loader, EvalOptions{})
	require.ErrorIs(t, err, ErrEmptyLoader)
}
