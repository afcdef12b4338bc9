package network

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

/*
该文件包含神经网络层的封装和该层的前向传播
*/

// Layer 全连接层。权重矩阵大小为 OutputSize*InputSize，输入层不单独封装，数据直接输入第一个隐藏层
type Layer struct {
	InputSize  int
	OutputSize int
	Weights    *mat.Dense    //该层的权重矩阵
	Biases     *mat.VecDense //偏置向量
	Activation ActivationFunc
}

// NewLayer 创建一层并初始化权重，ReLU层用He初始化，其余用Xavier初始化
func NewLayer(inputSize int, outputSize int, activation ActivationFunc, r *rand.Rand) *Layer {
	weights := mat.NewDense(outputSize, inputSize, nil)
	scale := math.Sqrt(2.0 / float64(inputSize+outputSize))
	if activation == ActivationReLU {
		scale = math.Sqrt(2.0 / float64(inputSize))
	}
	for i := 0; i < outputSize; i++ {
		for j := 0; j < inputSize; j++ {
			weights.Set(i, j, r.NormFloat64()*scale)
		}
	}
	return &Layer{
		InputSize:  inputSize,
		OutputSize: outputSize,
		Weights:    weights,
		Biases:     mat.NewVecDense(outputSize, nil),
		Activation: activation,
	}
}

// Forward 返回前激活值 z = Wx + b 和激活值 a = f(z)
func (l *Layer) Forward(x *mat.VecDense) (*mat.VecDense, *mat.VecDense) {
	z := mat.NewVecDense(l.OutputSize, nil)
	z.MulVec(l.Weights, x)
	z.AddVec(z, l.Biases)
	return z, l.Activation.Apply(z)
}
