package dataProcess

import (
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
)

/*
该文件实现数据集的加载
*/

// Dataset 内存中的数据集，Images 为归一化后的特征
type Dataset struct {
	Images     [][]float64
	Labels     []int
	NumClasses int
	vectors    []*mat.VecDense
}

// NewDataset 校验并创建数据集
func NewDataset(images [][]float64, labels []int, numClasses int) (*Dataset, error) {
	if len(images) != len(labels) {
		return nil, fmt.Errorf("图像数量 %d 与标签数量 %d 不一致", len(images), len(labels))
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("数据集为空")
	}
	dim := len(images[0])
	vectors := make([]*mat.VecDense, len(images))
	for i, img := range images {
		if len(img) != dim {
			return nil, fmt.Errorf("样本 %d 维度 %d 与 %d 不一致", i, len(img), dim)
		}
		if labels[i] < 0 || labels[i] >= numClasses {
			return nil, fmt.Errorf("样本 %d 标签 %d 超出范围 [0, %d)", i, labels[i], numClasses)
		}
		vectors[i] = mat.NewVecDense(dim, img)
	}
	return &Dataset{Images: images, Labels: labels, NumClasses: numClasses, vectors: vectors}, nil
}

// Len 样本数量
func (d *Dataset) Len() int { return len(d.Labels) }

// InputSize 特征维度
func (d *Dataset) InputSize() int { return len(d.Images[0]) }

// Vector 第 i 个样本的特征向量，与 Images 共享存储
func (d *Dataset) Vector(i int) *mat.VecDense { return d.vectors[i] }

// LoadImages 从 gzip 压缩的 IDX 文件加载图像，像素归一化到 [0,1]
func LoadImages(filename string) ([][]float64, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("无法打开图像文件: %w", err)
	}
	defer file.Close()

	// 解压缩文件
	reader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("无法解压缩文件: %w", err)
	}
	defer reader.Close()

	// 读取 IDX 头信息（魔数、维度等）
	var header [4]int32
	if err := binary.Read(reader, binary.BigEndian, &header); err != nil {
		return nil, fmt.Errorf("读取图像文件头失败: %w", err)
	}
	if header[0] != 2051 {
		return nil, fmt.Errorf("文件格式不正确（魔数 %d 不匹配）", header[0])
	}
	numImages, numRows, numCols := int(header[1]), int(header[2]), int(header[3])

	images := make([][]float64, numImages)
	buf := make([]byte, numRows*numCols)
	for i := range images {
		if _, err := io.ReadFull(reader, buf); err != nil {
			return nil, fmt.Errorf("读取图像数据失败: %w", err)
		}
		img := make([]float64, len(buf))
		for j, px := range buf {
			img[j] = float64(px) / 255.0
		}
		images[i] = img
	}
	return images, nil
}

// LoadLabels 从 IDX 文件加载标签数据
func LoadLabels(filename string) ([]int, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("无法打开标签文件: %w", err)
	}
	defer file.Close()

	reader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("无法解压缩文件: %w", err)
	}
	defer reader.Close()

	// 魔数用于验证文件的格式是否正确
	var magicNumber, numItems int32
	if err := binary.Read(reader, binary.BigEndian, &magicNumber); err != nil {
		return nil, fmt.Errorf("读取魔数失败: %w", err)
	}
	if magicNumber != 2049 {
		return nil, fmt.Errorf("文件格式不正确（魔数 %d 不匹配）", magicNumber)
	}
	if err := binary.Read(reader, binary.BigEndian, &numItems); err != nil {
		return nil, fmt.Errorf("读取标签数量失败: %w", err)
	}

	raw := make([]byte, numItems)
	if _, err := io.ReadFull(reader, raw); err != nil {
		return nil, fmt.Errorf("读取标签数据失败: %w", err)
	}
	labels := make([]int, len(raw))
	for i, b := range raw {
		labels[i] = int(b)
	}
	return labels, nil
}

// LoadMNIST 从目录加载 MNIST 训练集和测试集
func LoadMNIST(dir string) (*Dataset, *Dataset, error) {
	load := func(images, labels string) (*Dataset, error) {
		imgs, err := LoadImages(filepath.Join(dir, images))
		if err != nil {
			return nil, err
		}
		lbls, err := LoadLabels(filepath.Join(dir, labels))
		if err != nil {
			return nil, err
		}
		return NewDataset(imgs, lbls, 10)
	}
	train, err := load("train-images-idx3-ubyte.gz", "train-labels-idx1-ubyte.gz")
	if err != nil {
		return nil, nil, fmt.Errorf("加载训练数据失败: %w", err)
	}
	test, err := load("t10k-images-idx3-ubyte.gz", "t10k-labels-idx1-ubyte.gz")
	if err != nil {
		return nil, nil, fmt.Errorf("加载测试数据失败: %w", err)
	}
	return train, test, nil
}
