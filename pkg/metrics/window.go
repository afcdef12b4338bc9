package metrics

import "time"

// LossWindow 在两次上报之间累计训练损失和耗时
type LossWindow struct {
	samples int
	steps   int
	loss    float64
	elapsed time.Duration
}

// Record 记录一个训练步
func (w *LossWindow) Record(batchSize int, loss float64, elapsed time.Duration) {
	w.samples += batchSize
	w.steps++
	w.loss += loss
	w.elapsed += elapsed
}

// Snapshot 返回累计值并清零
func (w *LossWindow) Snapshot() Snapshot {
	snap := Snapshot{RunningLoss: w.loss, Steps: w.steps}
	if w.elapsed > 0 {
		snap.ExamplesPerSec = float64(w.samples) / w.elapsed.Seconds()
	}
	if w.steps > 0 {
		snap.AvgStepMS = w.elapsed.Seconds() * 1000 / float64(w.steps)
	}
	*w = LossWindow{}
	return snap
}

// Snapshot 一次上报的内容
type Snapshot struct {
	// RunningLoss 窗口内各步损失之和
	RunningLoss    float64
	Steps          int
	ExamplesPerSec float64
	AvgStepMS      float64
}
