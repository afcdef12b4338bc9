package dataProcess

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// Batch 一个批次的输入和标签
type Batch struct {
	Inputs []*mat.VecDense
	Labels []int
}

// Len 批次大小
func (b Batch) Len() int { return len(b.Labels) }

// LoaderOptions 数据加载器参数
type LoaderOptions struct {
	BatchSize int
	Shuffle   bool
	// DropLast 丢弃最后一个不完整的批次
	DropLast bool
}

// Loader 按批次遍历数据集的一个子集
type Loader struct {
	ds      *Dataset
	indices []int
	opts    LoaderOptions
	rng     *rand.Rand
}

// NewLoader 创建加载器。indices 为 nil 时使用整个数据集；Shuffle 时 r 不能为 nil
func NewLoader(ds *Dataset, indices []int, opts LoaderOptions, r *rand.Rand) (*Loader, error) {
	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size 必须为正数, 实际 %d", opts.BatchSize)
	}
	if opts.Shuffle && r == nil {
		return nil, errors.New("打乱顺序需要随机流")
	}
	if indices == nil {
		indices = make([]int, ds.Len())
		for i := range indices {
			indices[i] = i
		}
	}
	for _, idx := range indices {
		if idx < 0 || idx >= ds.Len() {
			return nil, fmt.Errorf("样本下标 %d 超出范围", idx)
		}
	}
	return &Loader{ds: ds, indices: indices, opts: opts, rng: r}, nil
}

// Size 加载器覆盖的样本数量
func (l *Loader) Size() int { return len(l.indices) }

// BatchSize 批次大小
func (l *Loader) BatchSize() int { return l.opts.BatchSize }

// Len 每轮的批次数量
func (l *Loader) Len() int {
	n := len(l.indices) / l.opts.BatchSize
	if !l.opts.DropLast && len(l.indices)%l.opts.BatchSize != 0 {
		n++
	}
	return n
}

// Batches 返回一轮的所有批次，Shuffle 时每次调用重新打乱
func (l *Loader) Batches() []Batch {
	order := l.indices
	if l.opts.Shuffle {
		order = make([]int, len(l.indices))
		copy(order, l.indices)
		l.rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}
	batches := make([]Batch, 0, l.Len())
	for start := 0; start < len(order); start += l.opts.BatchSize {
		end := min(start+l.opts.BatchSize, len(order))
		if end-start < l.opts.BatchSize && l.opts.DropLast {
			break
		}
		b := Batch{
			Inputs: make([]*mat.VecDense, 0, end-start),
			Labels: make([]int, 0, end-start),
		}
		for _, idx := range order[start:end] {
			b.Inputs = append(b.Inputs, l.ds.Vector(idx))
			b.Labels = append(b.Labels, l.ds.Labels[idx])
		}
		batches = append(batches, b)
	}
	return batches
}
