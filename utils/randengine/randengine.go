// 随机数引擎，包装了golang.org/x/exp/rand，作为显式注入的随机源使用
package randengine

import (
	"flag"
	"log"

	"golang.org/x/exp/rand"
)

var (
	seedOffset = flag.Uint64("rand.seed_offset", 0, "seed offset") // 种子偏移量，用于调整随机数生成
)

// Engine 随机数引擎
// 功能：可复现的随机数生成器，由调用方持有并注入到需要随机性的模块中
// 说明：相同种子（与相同的种子偏移量）得到相同的随机序列；非线程安全，每个智能体持有自己的实例
type Engine struct {
	*rand.Rand // 底层随机数生成器
}

// New 创建随机数引擎
// 参数：seed-随机数种子
// 说明：种子偏移量允许在不修改配置的情况下调整随机数序列
func New(seed uint64) *Engine {
	return &Engine{Rand: rand.New(rand.NewSource(seed + *seedOffset))}
}

// Choice 从候选集中等概率选出一个元素
// 说明：候选集为空时panic
func Choice[T any](e *Engine, items []T) T {
	if len(items) == 0 {
		log.Panicf("randengine: Choice from empty slice")
	}
	return items[e.Intn(len(items))]
}
