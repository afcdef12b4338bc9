package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"DPSGDDev/pkg/checkpoint"
	"DPSGDDev/pkg/config"
	"DPSGDDev/pkg/dataProcess"
	"DPSGDDev/pkg/metrics"
	"DPSGDDev/pkg/network"
	"DPSGDDev/pkg/rng"
	"DPSGDDev/pkg/training"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

func main() {
	path := flag.String("path", "", "检查点文件路径，例如 saved_models/<run-id>/model_best.gob")
	configPath := flag.String("config", "", "可选：训练时使用的配置文件，提供时在测试集上重新评估")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *path == "" {
		logger.Fatal("需要 -path")
	}

	snap, err := checkpoint.Load(*path)
	if err != nil {
		logger.WithError(err).Fatal("读取检查点失败")
	}
	printSummary(os.Stdout, snap)

	if *configPath == "" {
		return
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("加载配置失败")
	}
	acc, n, err := evaluateSnapshot(snap, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("评估失败")
	}
	fmt.Printf("测试集准确率: %.2f%% (%d 个样本)\n", acc, n)
}

// printSummary 打印检查点的元数据和每个参数的L2范数
func printSummary(w io.Writer, snap *checkpoint.Snapshot) {
	fmt.Fprintf(w, "运行ID: %s\n", snap.RunID)
	fmt.Fprintf(w, "Epoch: %d\n", snap.Epoch)
	fmt.Fprintf(w, "准确率: %.2f%%\n", snap.Accuracy)
	fmt.Fprintf(w, "保存时间: %s\n", snap.SavedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "网络结构: %v\n", snap.LayerSizes)
	for _, t := range snap.Params {
		fmt.Fprintf(w, "  %-18s %4dx%-4d L2=%.6f\n", t.Name, t.Rows, t.Cols, floats.Norm(t.Data, 2))
	}
}

// evaluateSnapshot 按快照的网络结构恢复模型，在配置指定的测试集上评估，返回准确率和样本数
func evaluateSnapshot(snap *checkpoint.Snapshot, cfg *config.Config, logger logrus.FieldLogger) (float64, int, error) {
	_, testSet, err := training.LoadData(cfg, rng.New(cfg.Seed))
	if err != nil {
		return 0, 0, fmt.Errorf("加载数据集失败: %w", err)
	}
	model, err := network.NewNeuronNetwork(snap.LayerSizes, rng.New(cfg.Seed).Stream(rng.StreamInit))
	if err != nil {
		return 0, 0, fmt.Errorf("创建网络失败: %w", err)
	}
	sizes := model.LayerSizes()
	if testSet.InputSize() != sizes[0] || testSet.NumClasses != model.NumClasses() {
		return 0, 0, fmt.Errorf("测试集 (输入 %d, 类别 %d) 与网络结构 %v 不一致", testSet.InputSize(), testSet.NumClasses, sizes)
	}
	if err := snap.Restore(model); err != nil {
		return 0, 0, fmt.Errorf("恢复参数失败: %w", err)
	}
	loader, err := dataProcess.NewLoader(testSet, nil, dataProcess.LoaderOptions{BatchSize: cfg.TestBatchSize}, nil)
	if err != nil {
		return 0, 0, err
	}
	evaluator := &training.Evaluator{Sink: metrics.Discard, Logger: logger}
	acc, err := evaluator.Evaluate(model, loader, training.EvalOptions{Epoch: snap.Epoch, Name: snap.RunID})
	if err != nil {
		return 0, 0, err
	}
	return acc, testSet.Len(), nil
}
