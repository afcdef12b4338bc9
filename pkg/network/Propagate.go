package network

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

/*
该文件包含了网络的前向传播和后向传播
反向传播通过保留前向结果的会话完成，一个批次只做一次前向传播，可以对不同的微批次分别求梯度
*/

var (
	// ErrSessionReleased 会话已释放
	ErrSessionReleased = errors.New("network: session already released")
	// ErrNotTraining 推理模式下不能开启反向传播会话
	ErrNotTraining = errors.New("network: model is in eval mode")
)

// FeedForward 整个网络的前向传播，返回输出层的概率
func (nn *NeuronNetwork) FeedForward(input *mat.VecDense) *mat.VecDense {
	a := input
	for _, layer := range nn.Layers {
		_, a = layer.Forward(a)
	}
	return a
}

// Predict 预测样本的类别（概率最大的下标）
func (nn *NeuronNetwork) Predict(input *mat.VecDense) int {
	output := nn.FeedForward(input)
	maxIdx := 0
	for i := 1; i < output.Len(); i++ {
		if output.AtVec(i) > output.AtVec(maxIdx) {
			maxIdx = i
		}
	}
	return maxIdx
}

// trace 单个样本前向传播的中间结果
type trace struct {
	activations []*mat.VecDense // activations[0]是输入，activations[i+1]是第i层输出
	logits      *mat.VecDense   // 输出层前激活值
	label       int
}

type nnSession struct {
	nn       *NeuronNetwork
	traces   []trace
	losses   []float64
	released bool
}

// Begin 对一个批次做前向传播并保留中间结果
func (nn *NeuronNetwork) Begin(inputs []*mat.VecDense, labels []int) (Session, error) {
	if !nn.training {
		return nil, ErrNotTraining
	}
	if len(inputs) != len(labels) {
		return nil, fmt.Errorf("输入数量 %d 与标签数量 %d 不一致", len(inputs), len(labels))
	}
	numClasses := nn.NumClasses()
	s := &nnSession{
		nn:     nn,
		traces: make([]trace, len(inputs)),
		losses: make([]float64, len(inputs)),
	}
	for i, x := range inputs {
		if x.Len() != nn.Layers[0].InputSize {
			return nil, fmt.Errorf("样本 %d 维度 %d 与输入层 %d 不一致", i, x.Len(), nn.Layers[0].InputSize)
		}
		if labels[i] < 0 || labels[i] >= numClasses {
			return nil, fmt.Errorf("样本 %d 标签 %d 超出范围 [0, %d)", i, labels[i], numClasses)
		}
		activations := make([]*mat.VecDense, len(nn.Layers)+1)
		activations[0] = x
		var z *mat.VecDense
		for l, layer := range nn.Layers {
			z, activations[l+1] = layer.Forward(activations[l])
		}
		s.traces[i] = trace{activations: activations, logits: z, label: labels[i]}
		// 交叉熵 = logsumexp(z) - z_y
		s.losses[i] = LogSumExp(z) - z.AtVec(labels[i])
	}
	return s, nil
}

func (s *nnSession) Losses() []float64 {
	return s.losses
}

// Backward 输出层使用softmax+交叉熵，误差 delta = w*(p - y)
func (s *nnSession) Backward(weights []float64) error {
	if s.released {
		return ErrSessionReleased
	}
	if len(weights) != len(s.traces) {
		return fmt.Errorf("权重数量 %d 与样本数量 %d 不一致", len(weights), len(s.traces))
	}
	nn := s.nn
	grads := nn.grads
	for i, tr := range s.traces {
		w := weights[i]
		if w == 0 {
			continue
		}
		last := len(nn.Layers) - 1
		delta := mat.NewVecDense(tr.activations[last+1].Len(), nil)
		delta.CopyVec(tr.activations[last+1])
		delta.SetVec(tr.label, delta.AtVec(tr.label)-1)
		delta.ScaleVec(w, delta)

		// 从后向前传播误差
		for l := last; l >= 0; l-- {
			layer := nn.Layers[l]
			// dW += delta * a^T, db += delta
			dW := grads.Tensors[2*l]
			dW.RankOne(dW, 1, delta, tr.activations[l])
			db := grads.Tensors[2*l+1]
			for j := 0; j < layer.OutputSize; j++ {
				db.Set(j, 0, db.At(j, 0)+delta.AtVec(j))
			}
			if l == 0 {
				break
			}
			// delta = (W^T * delta) ⊙ σ'(a)
			prev := mat.NewVecDense(layer.InputSize, nil)
			prev.MulVec(layer.Weights.T(), delta)
			prev.MulElemVec(prev, nn.Layers[l-1].Activation.Derivative(tr.activations[l]))
			delta = prev
		}
	}
	return nil
}

// Release 释放保留的中间结果
func (s *nnSession) Release() {
	s.released = true
	s.traces = nil
}
