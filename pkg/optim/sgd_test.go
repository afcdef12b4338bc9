package optim

import (
	"testing"

	"DPSGDDev/pkg/network"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func singleParam(v float64) ([]network.Parameter, *network.Gradients) {
	params := []network.Parameter{{Name: "w", Value: mat.NewDense(1, 1, []float64{v})}}
	return params, network.NewGradientsLike(params)
}

func TestSGDPlainStep(t *testing.T) {
	params, grads := singleParam(1)
	grads.Tensors[0].Set(0, 0, 0.5)
	opt := NewSGD(SGDConfig{LearningRate: 0.1})
	require.NoError(t, opt.Step(params, grads))
	assert.InDelta(t, 0.95, params[0].Value.At(0, 0), 1e-12)
}

func TestSGDMomentumAndDecay(t *testing.T) {
	params, grads := singleParam(1)
	grads.Tensors[0].Set(0, 0, 1)
	opt := NewSGD(SGDConfig{LearningRate: 0.1, Momentum: 0.9, WeightDecay: 0.5})

	// d = 1 + 0.5*1 = 1.5, v = 1.5, p = 1 - 0.15 = 0.85
	require.NoError(t, opt.Step(params, grads))
	assert.InDelta(t, 0.85, params[0].Value.At(0, 0), 1e-12)

	// d = 1 + 0.5*0.85 = 1.425, v = 0.9*1.5 + 1.425 = 2.775, p = 0.85 - 0.2775
	require.NoError(t, opt.Step(params, grads))
	assert.InDelta(t, 0.5725, params[0].Value.At(0, 0), 1e-12)
}

func TestSGDRejectsMismatchedGradients(t *testing.T) {
	params, _ := singleParam(1)
	other := network.NewGradientsLike([]network.Parameter{{Name: "b", Value: mat.NewDense(1, 1, nil)}})
	assert.Error(t, NewSGD(SGDConfig{LearningRate: 1}).Step(params, other))
}

func TestMultiStepLR(t *testing.T) {
	opt := NewSGD(SGDConfig{LearningRate: 1})
	sched := NewMultiStepLR(opt, DefaultMilestones(8), 0.1)
	want := []float64{1, 1, 1, 0.1, 0.1, 0.01, 0.01}
	for i, lr := range want {
		sched.Step()
		assert.InDelta(t, lr, opt.LearningRate(), 1e-12, "step %d", i+1)
	}
	assert.Equal(t, 7, sched.LastEpoch())
}

func TestDefaultMilestonesSkipFractionalEpochs(t *testing.T) {
	assert.Equal(t, []int{4, 6}, DefaultMilestones(8))
	assert.Equal(t, []int{3}, DefaultMilestones(6))
	assert.Empty(t, DefaultMilestones(5))

	opt := NewSGD(SGDConfig{LearningRate: 1})
	sched := NewMultiStepLR(opt, DefaultMilestones(5), 0.1)
	for i := 0; i < 5; i++ {
		sched.Step()
	}
	assert.Equal(t, 1.0, opt.LearningRate())
}
