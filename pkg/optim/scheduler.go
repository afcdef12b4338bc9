package optim

// MultiStepLR 每当调度步数到达里程碑时学习率乘以 gamma
type MultiStepLR struct {
	opt        *SGD
	milestones map[int]int
	gamma      float64
	steps      int
}

// NewMultiStepLR 创建调度器，重复的里程碑会叠加衰减
func NewMultiStepLR(opt *SGD, milestones []int, gamma float64) *MultiStepLR {
	m := make(map[int]int, len(milestones))
	for _, ms := range milestones {
		m[ms]++
	}
	return &MultiStepLR{opt: opt, milestones: m, gamma: gamma}
}

// DefaultMilestones 训练总轮数的 1/2 和 3/4 处。
// 不是整数的里程碑永远不会被调度步数命中，直接省略，例如 5 轮训练不衰减。
func DefaultMilestones(epochs int) []int {
	var ms []int
	if epochs%2 == 0 {
		ms = append(ms, epochs/2)
	}
	if epochs*3%4 == 0 {
		ms = append(ms, epochs*3/4)
	}
	return ms
}

// Step 每个epoch结束调用一次
func (s *MultiStepLR) Step() {
	s.steps++
	for i := 0; i < s.milestones[s.steps]; i++ {
		s.opt.SetLearningRate(s.opt.LearningRate() * s.gamma)
	}
}

// LastEpoch 已调用 Step 的次数
func (s *MultiStepLR) LastEpoch() int { return s.steps }
