package network

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Gradients 保存梯度信息的结构体，与参数一一对应
type Gradients struct {
	Names   []string
	Tensors []*mat.Dense
}

// NewGradients 创建与网络参数形状相同的零梯度
func NewGradients(nn *NeuronNetwork) *Gradients {
	return NewGradientsLike(nn.Parameters())
}

// NewGradientsLike 创建与给定参数形状相同的零梯度
func NewGradientsLike(params []Parameter) *Gradients {
	g := &Gradients{
		Names:   make([]string, len(params)),
		Tensors: make([]*mat.Dense, len(params)),
	}
	for i, p := range params {
		r, c := p.Value.Dims()
		g.Names[i] = p.Name
		g.Tensors[i] = mat.NewDense(r, c, nil)
	}
	return g
}

func (g *Gradients) String() string {
	var sb strings.Builder
	for i, t := range g.Tensors {
		fmt.Fprintf(&sb, "%s:\n%v\n", g.Names[i], mat.Formatted(t, mat.Prefix("  "), mat.Squeeze()))
	}
	return sb.String()
}

// data 返回张量的连续存储。梯度张量都由 mat.NewDense 创建，Stride 等于列数
func data(t *mat.Dense) []float64 {
	return t.RawMatrix().Data
}

// Zero 将所有梯度置零
func (g *Gradients) Zero() {
	for _, t := range g.Tensors {
		t.Zero()
	}
}

// IsZero 所有元素是否都为零
func (g *Gradients) IsZero() bool {
	for _, t := range g.Tensors {
		for _, v := range data(t) {
			if v != 0 {
				return false
			}
		}
	}
	return true
}

// IsFinite 所有元素是否都不是NaN或Inf
func (g *Gradients) IsFinite() bool {
	for _, t := range g.Tensors {
		for _, v := range data(t) {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// Scale 所有梯度乘以 f
func (g *Gradients) Scale(f float64) {
	for _, t := range g.Tensors {
		floats.Scale(f, data(t))
	}
}

// L2Norm 把所有参数的梯度视为一个向量计算L2范数
func (g *Gradients) L2Norm() float64 {
	sum := 0.0
	for _, t := range g.Tensors {
		n := floats.Norm(data(t), 2)
		sum += n * n
	}
	return math.Sqrt(sum)
}

// CopyFrom 用 src 覆盖当前梯度，两者形状必须一致
func (g *Gradients) CopyFrom(src *Gradients) error {
	if err := g.checkShape(src); err != nil {
		return err
	}
	for i, t := range g.Tensors {
		t.Copy(src.Tensors[i])
	}
	return nil
}

// Flatten 按参数顺序展开成一个向量
func (g *Gradients) Flatten() []float64 {
	var out []float64
	for _, t := range g.Tensors {
		out = append(out, data(t)...)
	}
	return out
}

func (g *Gradients) checkShape(other *Gradients) error {
	if len(g.Tensors) != len(other.Tensors) {
		return fmt.Errorf("梯度数量不匹配: %d != %d", len(g.Tensors), len(other.Tensors))
	}
	for i, t := range g.Tensors {
		r1, c1 := t.Dims()
		r2, c2 := other.Tensors[i].Dims()
		if r1 != r2 || c1 != c2 || g.Names[i] != other.Names[i] {
			return fmt.Errorf("梯度 %s(%dx%d) 与 %s(%dx%d) 形状不匹配",
				g.Names[i], r1, c1, other.Names[i], r2, c2)
		}
	}
	return nil
}

// AddGradients 累加梯度 accumGrads += grads
func AddGradients(accumGrads *Gradients, grads *Gradients) error {
	if err := accumGrads.checkShape(grads); err != nil {
		return err
	}
	for i, t := range accumGrads.Tensors {
		floats.Add(data(t), data(grads.Tensors[i]))
	}
	return nil
}
