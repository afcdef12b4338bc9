package metrics

import (
	"errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Dispersion 各类别准确率的离散程度
type Dispersion struct {
	Variance float64 // 总体方差
	Max      float64
	Min      float64
}

// ComputeDispersion 计算准确率的总体方差、最大值和最小值
func ComputeDispersion(accs []float64) (Dispersion, error) {
	if len(accs) == 0 {
		return Dispersion{}, errors.New("metrics: no accuracies")
	}
	return Dispersion{
		Variance: stat.PopVariance(accs, nil),
		Max:      floats.Max(accs),
		Min:      floats.Min(accs),
	}, nil
}
