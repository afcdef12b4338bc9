package network

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

/*
该文件包含整个神经网络的初始化方法
*/

// NeuronNetwork 多层感知机分类器，隐藏层使用ReLU，输出层使用Softmax
type NeuronNetwork struct {
	Layers   []*Layer
	grads    *Gradients // 反向传播写入的临时梯度
	training bool
}

// NewNeuronNetwork 按每层节点数创建网络，layerSize[0]为输入维度，最后一个为类别数
func NewNeuronNetwork(layerSize []int, r *rand.Rand) (*NeuronNetwork, error) {
	if len(layerSize) < 2 {
		return nil, fmt.Errorf("网络至少需要输入层和输出层, 实际 %d 层", len(layerSize))
	}
	for i, size := range layerSize {
		if size <= 0 {
			return nil, fmt.Errorf("第 %d 层节点数必须为正数, 实际 %d", i, size)
		}
	}
	//存储网络中每层的切片
	layers := make([]*Layer, len(layerSize)-1)
	for i := range layers {
		activation := ActivationReLU
		if i == len(layers)-1 {
			activation = ActivationSoftmax
		}
		layers[i] = NewLayer(layerSize[i], layerSize[i+1], activation, r)
	}
	nn := &NeuronNetwork{Layers: layers, training: true}
	nn.grads = NewGradients(nn)
	return nn, nil
}

// LayerSizes 返回每层节点数，包括输入维度
func (nn *NeuronNetwork) LayerSizes() []int {
	sizes := []int{nn.Layers[0].InputSize}
	for _, layer := range nn.Layers {
		sizes = append(sizes, layer.OutputSize)
	}
	return sizes
}

// NumClasses 输出层维度
func (nn *NeuronNetwork) NumClasses() int {
	return nn.Layers[len(nn.Layers)-1].OutputSize
}

// Train 切换到训练模式
func (nn *NeuronNetwork) Train() { nn.training = true }

// Eval 切换到推理模式，推理模式下不能开启反向传播会话
func (nn *NeuronNetwork) Eval() { nn.training = false }

// Training 是否处于训练模式
func (nn *NeuronNetwork) Training() bool { return nn.training }

// Parameters 按固定顺序返回参数。返回的矩阵与网络共享存储，偏置以 n*1 矩阵表示
func (nn *NeuronNetwork) Parameters() []Parameter {
	params := make([]Parameter, 0, 2*len(nn.Layers))
	for i, layer := range nn.Layers {
		params = append(params,
			Parameter{Name: weightName(i), Value: layer.Weights},
			Parameter{Name: biasName(i), Value: mat.NewDense(layer.OutputSize, 1, layer.Biases.RawVector().Data)},
		)
	}
	return params
}

// Gradients 返回网络当前的临时梯度
func (nn *NeuronNetwork) Gradients() *Gradients {
	return nn.grads
}

// ZeroGrad 清空临时梯度
func (nn *NeuronNetwork) ZeroGrad() {
	nn.grads.Zero()
}

func weightName(i int) string { return fmt.Sprintf("layers.%d.weight", i) }
func biasName(i int) string   { return fmt.Sprintf("layers.%d.bias", i) }
