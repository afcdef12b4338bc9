package training

import (
	"fmt"

	"DPSGDDev/pkg/config"
	"DPSGDDev/pkg/dataProcess"
	"DPSGDDev/pkg/metrics"
	"DPSGDDev/pkg/network"
	"DPSGDDev/pkg/optim"
	"DPSGDDev/pkg/rng"

	"github.com/sirupsen/logrus"
)

// LoadData 按配置加载训练集和测试集
func LoadData(cfg *config.Config, rc *rng.Context) (*dataProcess.Dataset, *dataProcess.Dataset, error) {
	switch cfg.Dataset {
	case config.DatasetMNIST:
		return dataProcess.LoadMNIST(cfg.DataDir)
	case config.DatasetCIFAR10:
		return dataProcess.LoadCIFAR10(cfg.DataDir)
	case config.DatasetSynthetic:
		r := rc.Stream(rng.StreamData)
		opts := dataProcess.SyntheticOptions{
			NumClasses: 10,
			InputSize:  cfg.SyntheticDim,
			Noise:      cfg.SyntheticNoise,
		}
		centers := dataProcess.SyntheticCenters(opts.NumClasses, opts.InputSize, r)
		opts.Samples = cfg.SyntheticTrain
		train, err := dataProcess.Synthetic(opts, centers, r)
		if err != nil {
			return nil, nil, err
		}
		opts.Samples = cfg.SyntheticTest
		test, err := dataProcess.Synthetic(opts, centers, r)
		if err != nil {
			return nil, nil, err
		}
		return train, test, nil
	}
	return nil, nil, fmt.Errorf("unknown dataset %q", cfg.Dataset)
}

// NewRunner 根据配置组装数据加载器、模型、优化器、训练器和评估器
func NewRunner(cfg *config.Config, train, test *dataProcess.Dataset, rc *rng.Context, sink metrics.Sink, ckpt CheckpointWriter, logger logrus.FieldLogger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if train.InputSize() != test.InputSize() || train.NumClasses != test.NumClasses {
		return nil, fmt.Errorf("训练集与测试集的维度或类别数不一致")
	}

	var trainIdx []int
	if cfg.Mu > 0 {
		idx, err := dataProcess.ExponentialSubset(train, cfg.Mu, rc.Stream(rng.StreamSampler))
		if err != nil {
			return nil, err
		}
		trainIdx = idx
		logger.WithFields(logrus.Fields{"mu": cfg.Mu, "kept": len(idx), "total": train.Len()}).Info("使用指数偏斜采样")
	}
	// 只产生完整批次，保证每个批次都能被微批次数整除
	trainLoader, err := dataProcess.NewLoader(train, trainIdx, dataProcess.LoaderOptions{
		BatchSize: cfg.BatchSize,
		Shuffle:   true,
		DropLast:  true,
	}, rc.Stream(rng.StreamShuffle))
	if err != nil {
		return nil, err
	}
	if trainLoader.Len() == 0 {
		return nil, fmt.Errorf("训练样本 %d 不足一个批次 %d", trainLoader.Size(), cfg.BatchSize)
	}
	testLoader, err := dataProcess.NewLoader(test, nil, dataProcess.LoaderOptions{BatchSize: cfg.TestBatchSize}, nil)
	if err != nil {
		return nil, err
	}
	perClass, err := dataProcess.PerClassLoaders(test, cfg.TestBatchSize)
	if err != nil {
		return nil, err
	}

	sizes := append([]int{train.InputSize()}, cfg.HiddenSizes...)
	sizes = append(sizes, train.NumClasses)
	model, err := network.NewNeuronNetwork(sizes, rc.Stream(rng.StreamInit))
	if err != nil {
		return nil, err
	}

	privacy, err := network.NewPrivacyParams(cfg.S, cfg.Z)
	if err != nil {
		return nil, err
	}
	opt := optim.NewSGD(optim.SGDConfig{
		LearningRate: cfg.LR,
		Momentum:     cfg.Momentum,
		WeightDecay:  cfg.Decay,
	})
	trainer, err := NewTrainer(model, opt, TrainerConfig{
		DP:              cfg.DP,
		Privacy:         privacy,
		NumMicrobatches: cfg.NumMicrobatches,
		Noise:           rc.Stream(rng.StreamNoise),
		SeriesName:      cfg.Name,
		LogEvery:        cfg.LogEvery,
	}, sink, logger)
	if err != nil {
		return nil, err
	}

	return &Runner{
		Model:       model,
		Trainer:     trainer,
		Scheduler:   optim.NewMultiStepLR(opt, optim.DefaultMilestones(cfg.Epochs), 0.1),
		Evaluator:   &Evaluator{Sink: sink, Logger: logger},
		TrainLoader: trainLoader,
		TestLoader:  testLoader,
		PerClass:    perClass,
		Checkpoints: ckpt,
		Sink:        sink,
		Logger:      logger,
		Epochs:      cfg.Epochs,
		Name:        cfg.Name,
		Win:         cfg.WindowName(),
	}, nil
}
