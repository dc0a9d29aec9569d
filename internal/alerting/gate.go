package alerting

import "sync/atomic"

// Gate 全局抑制（冷却）截止时间，进程内唯一
// 截止时间只增不减：Raise 使用 CAS 循环取最大值
type Gate struct {
	deadline atomic.Int64
}

// NewGate 创建闸门，初始截止时间为 0（不抑制）
func NewGate() *Gate {
	return &Gate{}
}

// Allow now >= deadline 时允许新的分类
func (g *Gate) Allow(now int64) bool {
	return now >= g.deadline.Load()
}

// Deadline 当前截止时间（epoch ms）
func (g *Gate) Deadline() int64 {
	return g.deadline.Load()
}

// Raise 将截止时间提升到 max(current, until)，返回提升后的值
func (g *Gate) Raise(until int64) int64 {
	for {
		current := g.deadline.Load()
		if until <= current {
			return current
		}
		if g.deadline.CompareAndSwap(current, until) {
			return until
		}
	}
}
