// Package rng 提供显式传递的随机数上下文。
// 训练器、采样器和噪声注入各自从同一个种子派生独立的随机流，测试可以直接注入确定性的生成器。
package rng

import (
	"hash/fnv"
	"math/rand/v2"
	"sync"
)

// 常用随机流名称
const (
	StreamInit    = "init"    // 权重初始化
	StreamShuffle = "shuffle" // 数据加载器打乱顺序
	StreamSampler = "sampler" // 指数偏斜采样
	StreamNoise   = "noise"   // DP高斯噪声
	StreamData    = "data"    // 合成数据集
)

// Context 随机数上下文，按名称管理相互独立的随机流
type Context struct {
	seed    uint64
	mu      sync.Mutex
	streams map[string]*rand.Rand
}

// New 根据种子创建随机数上下文
func New(seed uint64) *Context {
	return &Context{
		seed:    seed,
		streams: make(map[string]*rand.Rand),
	}
}

// Seed 返回上下文的种子
func (c *Context) Seed() uint64 {
	return c.seed
}

// Stream 返回指定名称的随机流，同名多次调用返回同一个生成器
func (c *Context) Stream(name string) *rand.Rand {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.streams[name]; ok {
		return r
	}
	r := rand.New(c.Source(name))
	c.streams[name] = r
	return r
}

// Source 返回一个新的、由种子和名称唯一确定的随机源。
// 与Stream不同，每次调用都从流的起点开始。
func (c *Context) Source(name string) rand.Source {
	h := fnv.New64a()
	h.Write([]byte(name))
	return rand.NewPCG(c.seed, h.Sum64())
}
