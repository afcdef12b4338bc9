package training

import (
	"fmt"
	"math/rand/v2"

	"DPSGDDev/pkg/dataProcess"
	"DPSGDDev/pkg/network"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DPTrainer 差分隐私SGD：每个微批次单独求梯度并裁剪，累加后加噪声取平均，每个批次只更新一次参数
type DPTrainer struct {
	reporter
	privacy         network.PrivacyParams
	numMicrobatches int
	noise           rand.Source
	// accumulator 裁剪后梯度的累加器，每个训练步结束（无论成功与否）都清零
	accumulator *network.Gradients
}

func (t *DPTrainer) Name() string { return "dp-sgd" }

// TrainEpoch 训练一轮
func (t *DPTrainer) TrainEpoch(loader *dataProcess.Loader, epoch int) error {
	return t.runEpoch(loader, epoch, t.Step)
}

// Step 对一个批次执行一次 裁剪-累加-加噪 循环并更新参数。
// 出错时参数不会被修改。
func (t *DPTrainer) Step(batch dataProcess.Batch) (StepStats, error) {
	n := batch.Len()
	if n == 0 || n%t.numMicrobatches != 0 {
		return StepStats{}, fmt.Errorf("%w: batch %d, microbatches %d", ErrIndivisibleBatch, n, t.numMicrobatches)
	}
	size := n / t.numMicrobatches

	if t.accumulator == nil {
		t.accumulator = network.NewGradientsLike(t.model.Parameters())
	}
	acc := t.accumulator
	defer acc.Zero()

	t.model.ZeroGrad()
	session, err := t.model.Begin(batch.Inputs, batch.Labels)
	if err != nil {
		return StepStats{}, err
	}
	defer session.Release()

	losses := session.Losses()
	stats := StepStats{
		Loss:             stat.Mean(losses, nil),
		MicrobatchLosses: microbatchLosses(losses, t.numMicrobatches),
		GradNorms:        make([]float64, t.numMicrobatches),
		ClippedNorms:     make([]float64, t.numMicrobatches),
	}

	weights := make([]float64, n)
	for j := 0; j < t.numMicrobatches; j++ {
		clear(weights)
		for k := j * size; k < (j+1)*size; k++ {
			weights[k] = 1 / float64(size)
		}
		if err := session.Backward(weights); err != nil {
			return StepStats{}, fmt.Errorf("微批次 %d 反向传播失败: %w", j, err)
		}
		grads := t.model.Gradients()
		stats.GradNorms[j] = network.ClipByGlobalNorm(grads, t.privacy.L2NormClip)
		stats.ClippedNorms[j] = grads.L2Norm()
		if err := network.AddGradients(acc, grads); err != nil {
			return StepStats{}, err
		}
		t.model.ZeroGrad()
	}

	network.AddGaussianNoise(acc, t.privacy.Sigma(), t.noise)
	acc.Scale(1 / float64(t.numMicrobatches))
	if !acc.IsFinite() {
		return StepStats{}, ErrNonFiniteGradient
	}

	if err := t.model.Gradients().CopyFrom(acc); err != nil {
		return StepStats{}, err
	}
	if err := t.opt.Step(t.model.Parameters(), t.model.Gradients()); err != nil {
		return StepStats{}, fmt.Errorf("优化器更新失败: %w", err)
	}
	return stats, nil
}

// microbatchLosses 把样本损失重排为 (微批次数, 微批次大小) 并按行取平均
func microbatchLosses(losses []float64, numMicrobatches int) []float64 {
	m := mat.NewDense(numMicrobatches, len(losses)/numMicrobatches, losses)
	out := make([]float64, numMicrobatches)
	for j := range out {
		out[j] = stat.Mean(m.RawRowView(j), nil)
	}
	return out
}
