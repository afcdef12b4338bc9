package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"DPSGDDev/pkg/checkpoint"
	"DPSGDDev/pkg/config"
	"DPSGDDev/pkg/dashboard"
	"DPSGDDev/pkg/dataProcess"
	"DPSGDDev/pkg/metrics"
	"DPSGDDev/pkg/rng"
	"DPSGDDev/pkg/training"

	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "configs/params.yaml", "YAML配置文件路径")
	epochs := flag.Int("epochs", 0, "覆盖配置中的 epochs")
	batchSize := flag.Int("batch-size", 0, "覆盖配置中的 batch_size")
	seed := flag.Uint64("seed", 0, "覆盖配置中的随机种子")
	dataDir := flag.String("data-dir", "", "覆盖配置中的 data_dir")
	saveDir := flag.String("save-dir", "", "覆盖配置中的 save_dir")
	dashboardAddr := flag.String("dashboard", "", "仪表盘监听地址，例如 :8097")
	logLevel := flag.String("log-level", "", "日志级别 (debug, info, warn, error)")
	flag.Parse()

	// 只有显式给出 -seed 时才覆盖，-seed 0 也是合法的
	var seedOverride *uint64
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			seedOverride = seed
		}
	})

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("加载配置失败: %v", err)
	}
	cfg.ApplyOverrides(config.Overrides{
		Epochs:        *epochs,
		BatchSize:     *batchSize,
		Seed:          seedOverride,
		DataDir:       *dataDir,
		SaveDir:       *saveDir,
		DashboardAddr: *dashboardAddr,
		LogLevel:      *logLevel,
	})
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("配置无效: %v", err)
	}
	if cfg.Name == "" {
		cfg.Name = time.Now().Format("Jan.02_15.04.05")
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Fatalf("日志级别无效: %v", err)
	}
	logger.SetLevel(level)
	log := logger.WithField("run", cfg.Name)

	// 加载数据集
	rc := rng.New(cfg.Seed)
	trainSet, testSet, err := training.LoadData(cfg, rc)
	if err != nil {
		log.WithError(err).Fatal("加载数据集失败")
	}
	log.WithFields(logrus.Fields{
		"dataset": cfg.Dataset,
		"train":   trainSet.Len(),
		"test":    testSet.Len(),
		"input":   trainSet.InputSize(),
		"classes": trainSet.NumClasses,
	}).Info("数据集已加载")

	ckpt, err := checkpoint.NewWriter(cfg.SaveDir, log)
	if err != nil {
		log.WithError(err).Fatal("创建检查点目录失败")
	}

	recorder := metrics.NewRecorder()
	sinks := metrics.Fanout{recorder, metrics.LogSink{Logger: log}}
	var server *dashboard.HTTPServer
	if cfg.DashboardAddr != "" {
		hub := dashboard.NewHub(log)
		sinks = append(sinks, hub)
		info := dashboard.RunInfo{Name: cfg.Name, Window: cfg.WindowName(), RunID: ckpt.RunID()}
		server = dashboard.NewHTTPServer(cfg.DashboardAddr, info, recorder, hub, log)
		go func() {
			if err := server.Start(); err != nil {
				log.WithError(err).Error("仪表盘退出")
			}
		}()
	}

	runner, err := training.NewRunner(cfg, trainSet, testSet, rc, sinks, ckpt, log)
	if err != nil {
		log.WithError(err).Fatal("初始化训练失败")
	}
	log.WithFields(logrus.Fields{
		"trainer":           runner.Trainer.Name(),
		"window":            cfg.WindowName(),
		"sigma":             cfg.Sigma(),
		"batches_per_epoch": runner.TrainLoader.Len(),
		"checkpoints":       ckpt.Dir(),
	}).Info("开始训练")

	results, err := runner.Run()
	if err != nil {
		log.WithError(err).Fatal("训练失败")
	}

	final := results[len(results)-1]
	for _, class := range dataProcess.SortedClasses(final.PerClass) {
		log.WithFields(logrus.Fields{"class": class, "acc": final.PerClass[class]}).Info("类别准确率")
	}
	log.WithFields(logrus.Fields{
		"epoch": final.Epoch,
		"acc":   final.Accuracy,
		"var":   final.Dispersion.Variance,
	}).Info("训练完成")

	// 展示一些测试样本的预测结果
	for i := 0; i < min(10, testSet.Len()); i++ {
		log.WithFields(logrus.Fields{
			"sample":     i + 1,
			"prediction": runner.Model.Predict(testSet.Vector(i)),
			"label":      testSet.Labels[i],
		}).Debug("测试样本预测")
	}

	if server == nil {
		return
	}
	log.Info("训练结束，仪表盘继续运行，按 Ctrl+C 退出")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("仪表盘关闭失败")
	}
}
