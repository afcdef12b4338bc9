package network

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ActivationFunc 激活函数类型，用枚举表示便于检查点序列化
type ActivationFunc int

const (
	ActivationIdentity ActivationFunc = iota // 恒等
	ActivationReLU                           // ReLU
	ActivationSigmoid                        // Sigmoid
	ActivationSoftmax                        // Softmax，只用于输出层
)

func (a ActivationFunc) String() string {
	switch a {
	case ActivationIdentity:
		return "identity"
	case ActivationReLU:
		return "relu"
	case ActivationSigmoid:
		return "sigmoid"
	case ActivationSoftmax:
		return "softmax"
	}
	return fmt.Sprintf("activation(%d)", int(a))
}

// Apply 对前激活值z计算激活值
func (a ActivationFunc) Apply(z *mat.VecDense) *mat.VecDense {
	switch a {
	case ActivationReLU:
		return ReLU(z)
	case ActivationSigmoid:
		return Sigmoid(z)
	case ActivationSoftmax:
		return Softmax(z)
	}
	out := mat.NewVecDense(z.Len(), nil)
	out.CopyVec(z)
	return out
}

// Derivative 根据激活值计算导数。Softmax的导数与交叉熵合并在输出层处理，这里不支持。
func (a ActivationFunc) Derivative(act *mat.VecDense) *mat.VecDense {
	switch a {
	case ActivationReLU:
		return ReLUDerivative(act)
	case ActivationSigmoid:
		return SigmoidDerivative(act)
	case ActivationSoftmax:
		panic("network: softmax derivative is fused with cross-entropy")
	}
	out := mat.NewVecDense(act.Len(), nil)
	for i := 0; i < act.Len(); i++ {
		out.SetVec(i, 1)
	}
	return out
}

// sigmoid激活函数（对整个向量的操作）
func Sigmoid(z *mat.VecDense) *mat.VecDense {
	out := mat.NewVecDense(z.Len(), nil)
	for i := 0; i < z.Len(); i++ {
		out.SetVec(i, 1/(1+math.Exp(-z.AtVec(i))))
	}
	return out
}

// sigmoid的导数(以激活值表示)
func SigmoidDerivative(a *mat.VecDense) *mat.VecDense {
	out := mat.NewVecDense(a.Len(), nil)
	for i := 0; i < a.Len(); i++ {
		v := a.AtVec(i)
		out.SetVec(i, v*(1-v))
	}
	return out
}

// ReLU 激活函数
func ReLU(z *mat.VecDense) *mat.VecDense {
	out := mat.NewVecDense(z.Len(), nil)
	for i := 0; i < z.Len(); i++ {
		out.SetVec(i, math.Max(z.AtVec(i), 0))
	}
	return out
}

// ReLU 的导数函数
func ReLUDerivative(a *mat.VecDense) *mat.VecDense {
	out := mat.NewVecDense(a.Len(), nil)
	for i := 0; i < a.Len(); i++ {
		if a.AtVec(i) > 0 {
			out.SetVec(i, 1)
		}
	}
	return out
}

// Softmax 数值稳定的softmax，先减去最大值
func Softmax(z *mat.VecDense) *mat.VecDense {
	raw := z.RawVector()
	logits := make([]float64, z.Len())
	for i := range logits {
		logits[i] = raw.Data[i*raw.Inc]
	}
	shift := floats.Max(logits)
	sum := 0.0
	for i, v := range logits {
		logits[i] = math.Exp(v - shift)
		sum += logits[i]
	}
	floats.Scale(1/sum, logits)
	return mat.NewVecDense(len(logits), logits)
}

// LogSumExp 计算 log(sum(exp(z)))
func LogSumExp(z *mat.VecDense) float64 {
	shift := mat.Max(z)
	sum := 0.0
	for i := 0; i < z.Len(); i++ {
		sum += math.Exp(z.AtVec(i) - shift)
	}
	return shift + math.Log(sum)
}
