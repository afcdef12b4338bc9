// Package optim 实现带动量和权重衰减的SGD以及分段学习率调度
package optim

import (
	"fmt"

	"DPSGDDev/pkg/network"

	"gonum.org/v1/gonum/floats"
)

// SGDConfig SGD优化器参数
type SGDConfig struct {
	LearningRate float64
	Momentum     float64
	WeightDecay  float64
}

// SGD 随机梯度下降，更新规则:
//
//	d = g + decay*p
//	v = momentum*v + d (第一步 v = d)
//	p = p - lr*v
type SGD struct {
	cfg      SGDConfig
	velocity map[string][]float64
}

// NewSGD 创建优化器
func NewSGD(cfg SGDConfig) *SGD {
	return &SGD{cfg: cfg, velocity: make(map[string][]float64)}
}

// LearningRate 当前学习率
func (o *SGD) LearningRate() float64 { return o.cfg.LearningRate }

// SetLearningRate 供学习率调度器使用
func (o *SGD) SetLearningRate(lr float64) { o.cfg.LearningRate = lr }

// Step 用 grads 更新 params，两者按名称一一对应
func (o *SGD) Step(params []network.Parameter, grads *network.Gradients) error {
	if len(params) != len(grads.Tensors) {
		return fmt.Errorf("参数数量 %d 与梯度数量 %d 不一致", len(params), len(grads.Tensors))
	}
	for i, p := range params {
		if grads.Names[i] != p.Name {
			return fmt.Errorf("参数 %s 与梯度 %s 不对应", p.Name, grads.Names[i])
		}
		value := p.Value.RawMatrix().Data
		grad := grads.Tensors[i].RawMatrix().Data
		if len(value) != len(grad) {
			return fmt.Errorf("参数 %s 大小 %d 与梯度大小 %d 不一致", p.Name, len(value), len(grad))
		}

		d := make([]float64, len(grad))
		copy(d, grad)
		if o.cfg.WeightDecay != 0 {
			floats.AddScaled(d, o.cfg.WeightDecay, value)
		}
		if o.cfg.Momentum != 0 {
			v, ok := o.velocity[p.Name]
			if !ok {
				v = make([]float64, len(d))
				copy(v, d)
				o.velocity[p.Name] = v
			} else {
				floats.Scale(o.cfg.Momentum, v)
				floats.Add(v, d)
			}
			d = v
		}
		floats.AddScaled(value, -o.cfg.LearningRate, d)
	}
	return nil
}
