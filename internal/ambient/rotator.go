package ambient

import (
	"math/rand"
	"sync"
	"time"
)

// Rotator 轮换策略
// 决定下一次轮换的等待时长与目标资源
type Rotator struct {
	minInterval time.Duration
	maxInterval time.Duration
	rng         *rand.Rand
	mu          sync.Mutex
}

func NewRotator(minInterval, maxInterval time.Duration) *Rotator {
	if maxInterval < minInterval {
		maxInterval = minInterval
	}
	return &Rotator{
		minInterval: minInterval,
		maxInterval: maxInterval,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NextInterval 在 [minInterval, maxInterval] 内均匀随机取等待时长
func (r *Rotator) NextInterval() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	span := r.maxInterval - r.minInterval
	if span <= 0 {
		return r.minInterval
	}
	return r.minInterval + time.Duration(r.rng.Int63n(int64(span)+1))
}

// PickStart 随机选初始资源下标
func (r *Rotator) PickStart(count int) int {
	if count < 2 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(count)
}

// PickNext 从 count 个资源里随机选一个不同于 current 的下标
// count < 2 时返回 current，表示无可轮换目标
func (r *Rotator) PickNext(current, count int) int {
	if count < 2 {
		return current
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.rng.Intn(count - 1)
	if next >= current {
		next++
	}
	return next
}
