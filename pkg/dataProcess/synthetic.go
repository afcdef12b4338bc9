package dataProcess

import (
	"fmt"
	"math/rand/v2"
)

// SyntheticOptions 合成数据集参数
type SyntheticOptions struct {
	NumClasses int
	InputSize  int
	Samples    int
	Noise      float64 // 类中心周围的高斯噪声标准差
}

// Synthetic 生成按类可分的高斯团数据，每个类有一个随机中心。
// centers 由同一个随机流决定，训练集和测试集应传入相同的 centers。
func Synthetic(opts SyntheticOptions, centers [][]float64, r *rand.Rand) (*Dataset, error) {
	if len(centers) != opts.NumClasses {
		return nil, fmt.Errorf("类中心数量 %d 与类别数 %d 不一致", len(centers), opts.NumClasses)
	}
	images := make([][]float64, opts.Samples)
	labels := make([]int, opts.Samples)
	for i := range images {
		label := i % opts.NumClasses
		img := make([]float64, opts.InputSize)
		for j := range img {
			img[j] = centers[label][j] + r.NormFloat64()*opts.Noise
		}
		images[i] = img
		labels[i] = label
	}
	return NewDataset(images, labels, opts.NumClasses)
}

// SyntheticCenters 为每个类生成一个 [-1,1] 内的中心
func SyntheticCenters(numClasses, inputSize int, r *rand.Rand) [][]float64 {
	centers := make([][]float64, numClasses)
	for c := range centers {
		centers[c] = make([]float64, inputSize)
		for j := range centers[c] {
			centers[c][j] = r.Float64()*2 - 1
		}
	}
	return centers
}
