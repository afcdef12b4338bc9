// Package config 读取并校验训练配置（YAML）
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// 支持的数据集
const (
	DatasetSynthetic = "synthetic"
	DatasetMNIST     = "mnist"
	DatasetCIFAR10   = "cifar10"
)

// DefaultSeed 配置文件没有 seed 键时使用的随机种子
const DefaultSeed uint64 = 5

// requiredKeys 配置文件中必须出现的键
var requiredKeys = []string{
	"batch_size", "num_microbatches", "lr", "momentum", "decay",
	"epochs", "S", "z", "dp", "mu",
}

// Config 一次训练运行的全部参数
type Config struct {
	BatchSize       int     `yaml:"batch_size"`
	NumMicrobatches int     `yaml:"num_microbatches"`
	LR              float64 `yaml:"lr"`
	Momentum        float64 `yaml:"momentum"`
	Decay           float64 `yaml:"decay"`
	Epochs          int     `yaml:"epochs"`
	S               float64 `yaml:"S"`
	Z               float64 `yaml:"z"`
	DP              bool    `yaml:"dp"`
	Mu              float64 `yaml:"mu"`

	Seed           uint64  `yaml:"seed"`
	Dataset        string  `yaml:"dataset"`
	DataDir        string  `yaml:"data_dir"`
	HiddenSizes    []int   `yaml:"hidden_sizes"`
	TestBatchSize  int     `yaml:"test_batch_size"`
	LogEvery       int     `yaml:"log_every"`
	SaveDir        string  `yaml:"save_dir"`
	DashboardAddr  string  `yaml:"dashboard_addr"`
	LogLevel       string  `yaml:"log_level"`
	Name           string  `yaml:"name"`
	SyntheticTrain int     `yaml:"synthetic_train"`
	SyntheticTest  int     `yaml:"synthetic_test"`
	SyntheticDim   int     `yaml:"synthetic_dim"`
	SyntheticNoise float64 `yaml:"synthetic_noise"`
}

// Overrides 命令行提供的覆盖值，零值表示不覆盖。
// Seed 为 nil 时不覆盖，0 是合法的种子
type Overrides struct {
	Epochs        int
	BatchSize     int
	Seed          *uint64
	DataDir       string
	SaveDir       string
	DashboardAddr string
	LogLevel      string
}

// Load 读取并校验配置文件
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse 解析YAML，检查必填键、拒绝未知键，填充默认值并校验
func Parse(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var keys map[string]yaml.Node
	if err := yaml.Unmarshal(raw, &keys); err != nil {
		return nil, err
	}
	var missing []string
	for _, k := range requiredKeys {
		if _, ok := keys[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required keys: %s", strings.Join(missing, ", "))
	}

	// seed 键存在时（包括 0）由解码覆盖
	cfg := &Config{Seed: DefaultSeed}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Dataset == "" {
		c.Dataset = DatasetSynthetic
	}
	if c.HiddenSizes == nil {
		c.HiddenSizes = []int{64, 64}
	}
	if c.TestBatchSize <= 0 {
		c.TestBatchSize = 100
	}
	if c.LogEvery <= 0 {
		c.LogEvery = 20
	}
	if c.SaveDir == "" {
		c.SaveDir = "saved_models"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.SyntheticTrain <= 0 {
		c.SyntheticTrain = 2000
	}
	if c.SyntheticTest <= 0 {
		c.SyntheticTest = 500
	}
	if c.SyntheticDim <= 0 {
		c.SyntheticDim = 16
	}
	if c.SyntheticNoise <= 0 {
		c.SyntheticNoise = 0.5
	}
}

// ApplyOverrides 用非零的覆盖值更新配置，调用方随后应再次 Validate
func (c *Config) ApplyOverrides(o Overrides) {
	if o.Epochs > 0 {
		c.Epochs = o.Epochs
	}
	if o.BatchSize > 0 {
		c.BatchSize = o.BatchSize
	}
	if o.Seed != nil {
		c.Seed = *o.Seed
	}
	if o.DataDir != "" {
		c.DataDir = o.DataDir
	}
	if o.SaveDir != "" {
		c.SaveDir = o.SaveDir
	}
	if o.DashboardAddr != "" {
		c.DashboardAddr = o.DashboardAddr
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
}

// Validate 检查配置能否运行，所有错误都在训练开始前报告
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0 (got %d)", c.BatchSize)
	}
	if c.NumMicrobatches <= 0 {
		return fmt.Errorf("num_microbatches must be > 0 (got %d)", c.NumMicrobatches)
	}
	if c.DP && c.BatchSize%c.NumMicrobatches != 0 {
		return fmt.Errorf("batch_size %d is not divisible by num_microbatches %d", c.BatchSize, c.NumMicrobatches)
	}
	if c.LR <= 0 {
		return fmt.Errorf("lr must be > 0 (got %v)", c.LR)
	}
	if c.Momentum < 0 || c.Decay < 0 {
		return fmt.Errorf("momentum and decay must be >= 0 (got %v, %v)", c.Momentum, c.Decay)
	}
	if c.Epochs < 1 {
		return fmt.Errorf("epochs must be >= 1 (got %d)", c.Epochs)
	}
	if !(c.S > 0) {
		return fmt.Errorf("S must be > 0 (got %v)", c.S)
	}
	if !(c.Z >= 0) {
		return fmt.Errorf("z must be >= 0 (got %v)", c.Z)
	}
	if !(c.Mu >= 0) {
		return fmt.Errorf("mu must be >= 0 (got %v)", c.Mu)
	}
	switch c.Dataset {
	case DatasetSynthetic:
	case DatasetMNIST, DatasetCIFAR10:
		if c.DataDir == "" {
			return fmt.Errorf("data_dir is required for dataset %s", c.Dataset)
		}
	default:
		return fmt.Errorf("unknown dataset %q", c.Dataset)
	}
	for i, h := range c.HiddenSizes {
		if h <= 0 {
			return fmt.Errorf("hidden_sizes[%d] must be > 0 (got %d)", i, h)
		}
	}
	return nil
}

// Sigma 噪声标准差 z*S
func (c *Config) Sigma() float64 {
	return c.Z * c.S
}

// WindowName 图组名称，包含本次运行的主要超参数
func (c *Config) WindowName() string {
	return fmt.Sprintf("DP: %t, S: %v, z: %v, BS: %d, Mom: %v, LR: %v, DEC:%v, MB: %d, mu: %v.",
		c.DP, c.S, c.Z, c.BatchSize, c.Momentum, c.LR, c.Decay, c.NumMicrobatches, c.Mu)
}
