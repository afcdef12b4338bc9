package training

import (
	"errors"
	"fmt"

	"DPSGDDev/pkg/dataProcess"

	"gonum.org/v1/gonum/stat"
)

// SGDTrainer 非隐私的基线：对批次平均损失做一次反向传播，直接更新参数
type SGDTrainer struct {
	reporter
}

func (t *SGDTrainer) Name() string { return "sgd" }

// TrainEpoch 训练一轮
func (t *SGDTrainer) TrainEpoch(loader *dataProcess.Loader, epoch int) error {
	return t.runEpoch(loader, epoch, t.Step)
}

// Step 前向、反向、更新各一次
func (t *SGDTrainer) Step(batch dataProcess.Batch) (StepStats, error) {
	n := batch.Len()
	if n == 0 {
		return StepStats{}, errors.New("training: empty batch")
	}
	t.model.ZeroGrad()
	session, err := t.model.Begin(batch.Inputs, batch.Labels)
	if err != nil {
		return StepStats{}, err
	}
	defer session.Release()

	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1 / float64(n)
	}
	if err := session.Backward(weights); err != nil {
		return StepStats{}, fmt.Errorf("反向传播失败: %w", err)
	}
	if !t.model.Gradients().IsFinite() {
		return StepStats{}, ErrNonFiniteGradient
	}
	if err := t.opt.Step(t.model.Parameters(), t.model.Gradients()); err != nil {
		return StepStats{}, fmt.Errorf("优化器更新失败: %w", err)
	}
	return StepStats{Loss: stat.Mean(session.Losses(), nil)}, nil
}
