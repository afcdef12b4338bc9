// Package checkpoint 在每个epoch结束时保存模型参数、epoch和准确率
package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"DPSGDDev/pkg/network"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// Model 可以保存的模型
type Model interface {
	Parameters() []network.Parameter
}

// Tensor 一个参数的快照
type Tensor struct {
	Name string
	Rows int
	Cols int
	Data []float64
}

// Snapshot 检查点内容
type Snapshot struct {
	RunID      string
	Epoch      int
	Accuracy   float64
	LayerSizes []int
	Params     []Tensor
	SavedAt    time.Time
}

// Dense 把参数还原为矩阵
func (t Tensor) Dense() *mat.Dense {
	return mat.NewDense(t.Rows, t.Cols, append([]float64(nil), t.Data...))
}

// Writer 把检查点写到 <dir>/<runID>/ 下
type Writer struct {
	dir     string
	runID   uuid.UUID
	best    float64
	hasBest bool
	logger  logrus.FieldLogger
}

// NewWriter 创建目录并生成本次运行的ID
func NewWriter(root string, logger logrus.FieldLogger) (*Writer, error) {
	runID := uuid.New()
	dir := filepath.Join(root, runID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建检查点目录失败: %w", err)
	}
	return &Writer{dir: dir, runID: runID, logger: logger}, nil
}

// Dir 本次运行的检查点目录
func (w *Writer) Dir() string { return w.dir }

// RunID 本次运行的ID
func (w *Writer) RunID() string { return w.runID.String() }

// Save 写入 model_epoch_<n>.gob 并刷新 model_last.gob，准确率提升时刷新 model_best.gob
func (w *Writer) Save(model Model, epoch int, acc float64) error {
	snap := Snapshot{
		RunID:    w.runID.String(),
		Epoch:    epoch,
		Accuracy: acc,
		SavedAt:  time.Now(),
	}
	if sized, ok := model.(interface{ LayerSizes() []int }); ok {
		snap.LayerSizes = sized.LayerSizes()
	}
	for _, p := range model.Parameters() {
		r, c := p.Value.Dims()
		snap.Params = append(snap.Params, Tensor{
			Name: p.Name,
			Rows: r,
			Cols: c,
			Data: append([]float64(nil), p.Value.RawMatrix().Data...),
		})
	}

	data, err := Encode(snap)
	if err != nil {
		return fmt.Errorf("序列化检查点失败: %w", err)
	}
	targets := []string{fmt.Sprintf("model_epoch_%d.gob", epoch), "model_last.gob"}
	if !w.hasBest || acc > w.best {
		w.best, w.hasBest = acc, true
		targets = append(targets, "model_best.gob")
	}
	for _, name := range targets {
		if err := writeFileAtomic(filepath.Join(w.dir, name), data); err != nil {
			return fmt.Errorf("写入检查点 %s 失败: %w", name, err)
		}
	}
	w.logger.WithFields(logrus.Fields{
		"epoch": epoch,
		"acc":   acc,
		"dir":   w.dir,
	}).Info("检查点已保存")
	return nil
}

// Load 读取检查点文件
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取检查点失败: %w", err)
	}
	var snap Snapshot
	if err := Decode(data, &snap); err != nil {
		return nil, fmt.Errorf("解析检查点 %s 失败: %w", path, err)
	}
	return &snap, nil
}

// Restore 把快照中的参数写回模型，名称和形状必须一致
func (s *Snapshot) Restore(model Model) error {
	params := model.Parameters()
	if len(params) != len(s.Params) {
		return fmt.Errorf("参数数量不匹配: 检查点 %d, 模型 %d", len(s.Params), len(params))
	}
	for i, p := range params {
		t := s.Params[i]
		r, c := p.Value.Dims()
		if t.Name != p.Name || t.Rows != r || t.Cols != c {
			return fmt.Errorf("参数 %s(%dx%d) 与检查点 %s(%dx%d) 不匹配", p.Name, r, c, t.Name, t.Rows, t.Cols)
		}
		p.Value.Copy(t.Dense())
	}
	return nil
}
