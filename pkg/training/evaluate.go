package training

import (
	"errors"

	"DPSGDDev/pkg/dataProcess"
	"DPSGDDev/pkg/metrics"
	"DPSGDDev/pkg/network"

	"github.com/sirupsen/logrus"
)

// ErrEmptyLoader 加载器中没有样本
var ErrEmptyLoader = errors.New("training: loader has no examples")

// EvalOptions 一次评估的标识和上报方式
type EvalOptions struct {
	Epoch int
	Name  string
	Win   string
	// Plot 为 true 时把 (epoch, acc) 上报到 Win 图组的 Name 序列
	Plot bool
}

// Evaluator 计算top-1准确率
type Evaluator struct {
	Sink   metrics.Sink
	Logger logrus.FieldLogger
}

// Evaluate 在推理模式下计算准确率（百分比）。
// 进入时把模型切到推理模式，返回时不恢复：继续训练前调用方必须切回训练模式（训练器每轮开始时会这样做）。
func (e *Evaluator) Evaluate(model network.Classifier, loader *dataProcess.Loader, opts EvalOptions) (float64, error) {
	model.Eval()
	correct, total := 0, 0
	for _, batch := range loader.Batches() {
		for i, x := range batch.Inputs {
			if model.Predict(x) == batch.Labels[i] {
				correct++
			}
			total++
		}
	}
	if total == 0 {
		return 0, ErrEmptyLoader
	}
	acc := 100 * float64(correct) / float64(total)

	e.Logger.WithFields(logrus.Fields{
		"name":  opts.Name,
		"epoch": opts.Epoch,
		"acc":   acc,
	}).Info("评估完成")
	if opts.Plot {
		e.Sink.Plot(float64(opts.Epoch), acc, opts.Name, opts.Win)
	}
	return acc, nil
}
