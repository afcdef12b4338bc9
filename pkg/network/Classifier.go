package network

import "gonum.org/v1/gonum/mat"

// Parameter 命名参数，Value与模型共享存储
type Parameter struct {
	Name  string
	Value *mat.Dense
}

// Classifier 训练器需要的分类模型能力，任何多态分类器实现它即可
type Classifier interface {
	// Train 和 Eval 切换训练/推理模式
	Train()
	Eval()
	Parameters() []Parameter
	// Gradients 返回模型的临时梯度，Session.Backward 累加到这里
	Gradients() *Gradients
	ZeroGrad()
	// Begin 做一次前向传播并保留中间结果，调用方负责 Release
	Begin(inputs []*mat.VecDense, labels []int) (Session, error)
	Predict(input *mat.VecDense) int
}

// Session 一次前向传播保留下来的计算结果，可以对其进行多次反向传播。
// 会话在 Release 之后不可再用，Release 可以重复调用。
type Session interface {
	// Losses 每个样本的交叉熵损失（不做归约）
	Losses() []float64
	// Backward 对加权损失 sum(weights[i]*loss[i]) 反向传播，梯度累加到模型的临时梯度
	Backward(weights []float64) error
	Release()
}
