package dataProcess

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	cifarSide     = 32
	cifarChannels = 3
	cifarPixels   = cifarSide * cifarSide
	cifarRecord   = 1 + cifarChannels*cifarPixels
)

// CIFAR-10 每个通道的均值和标准差
var (
	cifarMean = [cifarChannels]float64{0.4914, 0.4822, 0.4465}
	cifarStd  = [cifarChannels]float64{0.2023, 0.1994, 0.2010}
)

// ReadCIFAR10 读取 CIFAR-10 二进制格式：每条记录1字节标签加 3*32*32 字节像素（按通道排列）
func ReadCIFAR10(r io.Reader) ([][]float64, []int, error) {
	br := bufio.NewReader(r)
	record := make([]byte, cifarRecord)
	var images [][]float64
	var labels []int
	for {
		_, err := io.ReadFull(br, record)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("读取第 %d 条记录失败: %w", len(labels), err)
		}
		if record[0] > 9 {
			return nil, nil, fmt.Errorf("第 %d 条记录标签 %d 非法", len(labels), record[0])
		}
		img := make([]float64, cifarChannels*cifarPixels)
		for c := 0; c < cifarChannels; c++ {
			for p := 0; p < cifarPixels; p++ {
				i := c*cifarPixels + p
				img[i] = (float64(record[1+i])/255.0 - cifarMean[c]) / cifarStd[c]
			}
		}
		images = append(images, img)
		labels = append(labels, int(record[0]))
	}
	return images, labels, nil
}

func loadCIFARFiles(dir string, names ...string) (*Dataset, error) {
	var images [][]float64
	var labels []int
	for _, name := range names {
		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("无法打开 %s: %w", name, err)
		}
		imgs, lbls, err := ReadCIFAR10(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("解析 %s 失败: %w", name, err)
		}
		images = append(images, imgs...)
		labels = append(labels, lbls...)
	}
	return NewDataset(images, labels, 10)
}

// LoadCIFAR10 从 cifar-10-batches-bin 目录加载训练集和测试集
func LoadCIFAR10(dir string) (*Dataset, *Dataset, error) {
	train, err := loadCIFARFiles(dir,
		"data_batch_1.bin", "data_batch_2.bin", "data_batch_3.bin", "data_batch_4.bin", "data_batch_5.bin")
	if err != nil {
		return nil, nil, fmt.Errorf("加载训练数据失败: %w", err)
	}
	test, err := loadCIFARFiles(dir, "test_batch.bin")
	if err != nil {
		return nil, nil, fmt.Errorf("加载测试数据失败: %w", err)
	}
	return train, test, nil
}
