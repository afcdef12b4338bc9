// Package metrics 记录训练过程中的标量时间序列（损失、准确率）
package metrics

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// Point 序列中的一个点
type Point struct {
	Window string  `json:"win"`
	Name   string  `json:"name"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// Sink 接收 (x, y, 序列名, 图组) 并追加到对应序列，第一次使用时创建序列
type Sink interface {
	Plot(x, y float64, name, win string)
}

// Series 一条时间序列
type Series struct {
	Name string    `json:"name"`
	X    []float64 `json:"x"`
	Y    []float64 `json:"y"`
}

// Recorder 内存中的序列存储，并发安全
type Recorder struct {
	mu      sync.RWMutex
	windows map[string]map[string]*Series
}

// NewRecorder 创建空的记录器
func NewRecorder() *Recorder {
	return &Recorder{windows: make(map[string]map[string]*Series)}
}

func (r *Recorder) Plot(x, y float64, name, win string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.windows[win]
	if !ok {
		w = make(map[string]*Series)
		r.windows[win] = w
	}
	s, ok := w[name]
	if !ok {
		s = &Series{Name: name}
		w[name] = s
	}
	s.X = append(s.X, x)
	s.Y = append(s.Y, y)
}

// Windows 所有图组名称，升序
func (r *Recorder) Windows() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.windows))
	for name := range r.windows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Series 返回图组中所有序列的拷贝，按名称排序；图组不存在时返回 false
func (r *Recorder) Series(win string) ([]Series, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.windows[win]
	if !ok {
		return nil, false
	}
	out := make([]Series, 0, len(w))
	for _, s := range w {
		out = append(out, Series{
			Name: s.Name,
			X:    append([]float64(nil), s.X...),
			Y:    append([]float64(nil), s.Y...),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, true
}

// LogSink 把每个点写入日志
type LogSink struct {
	Logger logrus.FieldLogger
}

func (l LogSink) Plot(x, y float64, name, win string) {
	l.Logger.WithFields(logrus.Fields{
		"win":  win,
		"name": name,
		"x":    x,
		"y":    y,
	}).Debug("plot")
}

// Fanout 把点分发给多个 Sink
type Fanout []Sink

func (f Fanout) Plot(x, y float64, name, win string) {
	for _, s := range f {
		s.Plot(x, y, name, win)
	}
}

// Discard 丢弃所有点
var Discard Sink = discard{}

type discard struct{}

func (discard) Plot(float64, float64, string, string) {}
