package training

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"DPSGDDev/pkg/dataProcess"
	"DPSGDDev/pkg/metrics"
	"DPSGDDev/pkg/network"

	"github.com/sirupsen/logrus"
)

// TrainLossWindow 训练损失曲线的图组名称
const TrainLossWindow = "Train Loss"

var (
	// ErrIndivisibleBatch 批次大小不能被微批次数整除
	ErrIndivisibleBatch = errors.New("training: batch size not divisible by num_microbatches")
	// ErrNonFiniteGradient 梯度中出现 NaN 或 Inf，终止运行，不更新参数
	ErrNonFiniteGradient = errors.New("training: non-finite gradient")
)

// Optimizer 用模型的临时梯度更新参数
type Optimizer interface {
	Step(params []network.Parameter, grads *network.Gradients) error
}

// StepStats 一个训练步的统计
type StepStats struct {
	// Loss 批次内样本损失的平均值
	Loss float64
	// MicrobatchLosses 每个微批次的平均损失，非DP训练为空
	MicrobatchLosses []float64
	// GradNorms 每个微批次裁剪前的梯度范数
	GradNorms []float64
	// ClippedNorms 每个微批次裁剪后的梯度范数
	ClippedNorms []float64
}

// Trainer 训练策略，启动时选定一次
type Trainer interface {
	Name() string
	Step(batch dataProcess.Batch) (StepStats, error)
	TrainEpoch(loader *dataProcess.Loader, epoch int) error
}

// TrainerConfig 创建训练器所需的参数
type TrainerConfig struct {
	DP              bool
	Privacy         network.PrivacyParams
	NumMicrobatches int
	// Noise DP噪声的随机源
	Noise rand.Source
	// SeriesName 训练损失序列的名称
	SeriesName string
	// LogEvery 每隔多少步上报一次训练损失
	LogEvery int
}

// NewTrainer 根据配置选择DP或非DP训练器
func NewTrainer(model network.Classifier, opt Optimizer, cfg TrainerConfig, sink metrics.Sink, logger logrus.FieldLogger) (Trainer, error) {
	r := reporter{
		model:    model,
		opt:      opt,
		sink:     sink,
		logger:   logger,
		series:   cfg.SeriesName,
		logEvery: cfg.LogEvery,
	}
	if r.logEvery <= 0 {
		r.logEvery = 20
	}
	if !cfg.DP {
		return &SGDTrainer{reporter: r}, nil
	}
	if cfg.NumMicrobatches <= 0 {
		return nil, fmt.Errorf("num_microbatches must be > 0 (got %d)", cfg.NumMicrobatches)
	}
	if cfg.Noise == nil {
		return nil, errors.New("DP训练需要噪声随机源")
	}
	return &DPTrainer{
		reporter:        r,
		privacy:         cfg.Privacy,
		numMicrobatches: cfg.NumMicrobatches,
		noise:           cfg.Noise,
	}, nil
}

// reporter DP和非DP训练器共用的部分：模型、优化器以及周期性的损失上报
type reporter struct {
	model    network.Classifier
	opt      Optimizer
	sink     metrics.Sink
	logger   logrus.FieldLogger
	series   string
	logEvery int
}

// runEpoch 遍历一轮，每 logEvery 步上报累计损失并清零
func (r *reporter) runEpoch(loader *dataProcess.Loader, epoch int, step func(dataProcess.Batch) (StepStats, error)) error {
	r.model.Train()
	batches := loader.Batches()
	var window metrics.LossWindow
	for i, batch := range batches {
		start := time.Now()
		stats, err := step(batch)
		if err != nil {
			return fmt.Errorf("epoch %d step %d: %w", epoch, i, err)
		}
		window.Record(batch.Len(), stats.Loss, time.Since(start))

		if i > 0 && i%r.logEvery == 0 {
			snap := window.Snapshot()
			r.sink.Plot(float64(epoch*len(batches)+i), snap.RunningLoss, r.series, TrainLossWindow)
			r.logger.WithFields(logrus.Fields{
				"epoch":          epoch,
				"step":           i,
				"running_loss":   snap.RunningLoss,
				"examples_per_s": snap.ExamplesPerSec,
				"avg_step_ms":    snap.AvgStepMS,
			}).Info("训练损失")
		}
	}
	return nil
}
