package training

import (
	"fmt"
	"strconv"
	"time"

	"DPSGDDev/pkg/checkpoint"
	"DPSGDDev/pkg/dataProcess"
	"DPSGDDev/pkg/metrics"
	"DPSGDDev/pkg/network"

	"github.com/sirupsen/logrus"
)

// Scheduler 每个epoch结束调整一次学习率
type Scheduler interface {
	Step()
}

// CheckpointWriter 保存每个epoch结束时的模型
type CheckpointWriter interface {
	Save(model checkpoint.Model, epoch int, acc float64) error
}

// EpochResult 一个epoch的评估结果
type EpochResult struct {
	Epoch      int
	Accuracy   float64
	PerClass   map[int]float64
	Dispersion metrics.Dispersion
}

// Runner 训练主循环需要的所有组件
type Runner struct {
	Model       network.Classifier
	Trainer     Trainer
	Scheduler   Scheduler
	Evaluator   *Evaluator
	TrainLoader *dataProcess.Loader
	TestLoader  *dataProcess.Loader
	PerClass    map[int]*dataProcess.Loader
	Checkpoints CheckpointWriter
	Sink        metrics.Sink
	Logger      logrus.FieldLogger
	// Epochs 与原始训练脚本一致，训练 epoch 1..Epochs-1，epoch 0 只评估
	Epochs int
	// Name 序列名称，Win 图组名称
	Name string
	Win  string
}

// Run 训练前先评估一次，然后每个epoch：训练、调整学习率、评估全局和各类别准确率、保存检查点。
// 任何错误都会终止运行。
func (r *Runner) Run() ([]EpochResult, error) {
	acc, err := r.Evaluator.Evaluate(r.Model, r.TestLoader, EvalOptions{Epoch: 0, Name: r.Name, Win: r.Win, Plot: true})
	if err != nil {
		return nil, fmt.Errorf("初始评估失败: %w", err)
	}
	results := []EpochResult{{Epoch: 0, Accuracy: acc}}

	for epoch := 1; epoch < r.Epochs; epoch++ {
		start := time.Now()
		if err := r.Trainer.TrainEpoch(r.TrainLoader, epoch); err != nil {
			return results, fmt.Errorf("%s 训练失败: %w", r.Trainer.Name(), err)
		}
		r.Scheduler.Step()

		acc, err := r.Evaluator.Evaluate(r.Model, r.TestLoader, EvalOptions{Epoch: epoch, Name: r.Name, Win: r.Win, Plot: true})
		if err != nil {
			return results, fmt.Errorf("epoch %d 评估失败: %w", epoch, err)
		}

		res := EpochResult{Epoch: epoch, Accuracy: acc, PerClass: make(map[int]float64, len(r.PerClass))}
		accs := make([]float64, 0, len(r.PerClass))
		for _, class := range dataProcess.SortedClasses(r.PerClass) {
			classAcc, err := r.Evaluator.Evaluate(r.Model, r.PerClass[class], EvalOptions{Epoch: epoch, Name: strconv.Itoa(class), Win: r.Win})
			if err != nil {
				return results, fmt.Errorf("epoch %d 类别 %d 评估失败: %w", epoch, class, err)
			}
			res.PerClass[class] = classAcc
			accs = append(accs, classAcc)
		}
		if len(accs) > 0 {
			d, err := metrics.ComputeDispersion(accs)
			if err != nil {
				return results, err
			}
			res.Dispersion = d
			classWin := r.Win + "_class_acc"
			r.Sink.Plot(float64(epoch), d.Variance, r.Name+"_var", classWin)
			r.Sink.Plot(float64(epoch), d.Max, r.Name+"_max", classWin)
			r.Sink.Plot(float64(epoch), d.Min, r.Name+"_min", classWin)
		}

		if err := r.Checkpoints.Save(r.Model, epoch, acc); err != nil {
			return results, fmt.Errorf("epoch %d 保存检查点失败: %w", epoch, err)
		}
		results = append(results, res)

		r.Logger.WithFields(logrus.Fields{
			"epoch":    epoch,
			"acc":      acc,
			"var":      res.Dispersion.Variance,
			"min":      res.Dispersion.Min,
			"max":      res.Dispersion.Max,
			"duration": time.Since(start).Round(time.Millisecond),
		}).Info("epoch 完成")
	}
	return results, nil
}
