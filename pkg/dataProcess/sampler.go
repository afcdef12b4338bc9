package dataProcess

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

// ClassIndices 按标签分组的样本下标
func ClassIndices(ds *Dataset) map[int][]int {
	perClass := make(map[int][]int)
	for i, label := range ds.Labels {
		perClass[label] = append(perClass[label], i)
	}
	return perClass
}

// SortedClasses 升序排列的类别
func SortedClasses[V any](m map[int]V) []int {
	classes := make([]int, 0, len(m))
	for c := range m {
		classes = append(classes, c)
	}
	sort.Ints(classes)
	return classes
}

// PerClassLoaders 每个类别一个加载器，不打乱顺序
func PerClassLoaders(ds *Dataset, batchSize int) (map[int]*Loader, error) {
	loaders := make(map[int]*Loader)
	for class, indices := range ClassIndices(ds) {
		l, err := NewLoader(ds, indices, LoaderOptions{BatchSize: batchSize}, nil)
		if err != nil {
			return nil, fmt.Errorf("创建类别 %d 的加载器失败: %w", class, err)
		}
		loaders[class] = l
	}
	return loaders, nil
}

// ExponentialSubset 按指数衰减构造类别不均衡的子集：类别 c 保留 exp(-mu*c) 比例的样本，
// 每个类别至少保留一个。mu 为 0 时返回全部样本。返回的下标按原顺序排列。
func ExponentialSubset(ds *Dataset, mu float64, r *rand.Rand) ([]int, error) {
	if mu < 0 || math.IsNaN(mu) || math.IsInf(mu, 0) {
		return nil, fmt.Errorf("mu 必须为非负有限数, 实际 %v", mu)
	}
	perClass := ClassIndices(ds)
	var subset []int
	for _, class := range SortedClasses(perClass) {
		indices := perClass[class]
		keep := int(math.Round(float64(len(indices)) * math.Exp(-mu*float64(class))))
		keep = max(1, min(keep, len(indices)))
		picked := make([]int, len(indices))
		copy(picked, indices)
		r.Shuffle(len(picked), func(i, j int) {
			picked[i], picked[j] = picked[j], picked[i]
		})
		subset = append(subset, picked[:keep]...)
	}
	sort.Ints(subset)
	return subset, nil
}
