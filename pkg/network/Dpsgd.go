package network

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// clipEpsilon 裁剪系数分母上的常数，避免零梯度时除零
const clipEpsilon = 1e-6

// PrivacyParams 差分隐私SGD参数，运行期间不可变
type PrivacyParams struct {
	// L2范数裁剪阈值 S
	L2NormClip float64
	// 噪声乘数 z
	NoiseMultiplier float64
}

// NewPrivacyParams 校验并创建隐私参数
func NewPrivacyParams(clip, noiseMultiplier float64) (PrivacyParams, error) {
	if !(clip > 0) || math.IsInf(clip, 0) {
		return PrivacyParams{}, fmt.Errorf("裁剪阈值 S 必须为正数, 实际 %v", clip)
	}
	if !(noiseMultiplier >= 0) || math.IsInf(noiseMultiplier, 0) {
		return PrivacyParams{}, errors.New("噪声乘数 z 必须为非负有限数")
	}
	return PrivacyParams{L2NormClip: clip, NoiseMultiplier: noiseMultiplier}, nil
}

// Sigma 噪声标准差 = 噪声乘数 * 裁剪阈值
func (p PrivacyParams) Sigma() float64 {
	return p.NoiseMultiplier * p.L2NormClip
}

// ClipByGlobalNorm 把所有参数的梯度当作一个向量按L2范数裁剪到 maxNorm，返回裁剪前的范数
func ClipByGlobalNorm(grads *Gradients, maxNorm float64) float64 {
	totalNorm := grads.L2Norm()
	coef := maxNorm / (totalNorm + clipEpsilon)
	if coef < 1 {
		grads.Scale(coef)
	}
	return totalNorm
}

// AddGaussianNoise 为每个梯度张量加上同形状的高斯噪声 N(0, sigma^2)
func AddGaussianNoise(grads *Gradients, sigma float64, src rand.Source) {
	normal := distuv.Normal{
		Mu:    0,
		Sigma: sigma,
		Src:   src,
	}
	for _, t := range grads.Tensors {
		d := data(t)
		for i := range d {
			d[i] += normal.Rand()
		}
	}
}
