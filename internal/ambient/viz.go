package ambient

import (
	"hash/fnv"
	"math"
	"time"
)

// vizSource 采样时刻的活跃通道快照
type vizSource struct {
	seed uint64
	gain float64
}

// SampleCombinedAmplitude 合成当前活跃通道的幅度包络
// 通道锁只用于取快照，合成在锁外进行
func (m *mixerImpl) SampleCombinedAmplitude() []byte {
	m.mu.Lock()
	var sources []vizSource
	for _, key := range m.order {
		ch := m.channels[key]
		if ch.playing && ch.volume > 0 {
			sources = append(sources, vizSource{
				seed: channelSeed(key),
				gain: ch.effectiveGain(),
			})
		}
	}
	length := m.config.VizBufferLength
	m.mu.Unlock()

	if len(sources) == 0 {
		return nil
	}
	return synthesize(sources, length, time.Now())
}

// synthesize 每通道一条低频正弦波叠加确定性抖动，
// 按通道增益缩放后逐字节饱和叠加
func synthesize(sources []vizSource, length int, now time.Time) []byte {
	buf := make([]byte, length)
	t := float64(now.UnixNano()) / float64(time.Second)

	for _, src := range sources {
		// 种子决定波形周期数与相位推进速度，同一通道形态稳定
		cycles := 1.0 + float64(src.seed%7)
		speed := 0.2 + float64(src.seed>>3%5)*0.15
		phase := t * speed
		jitter := src.seed | 1

		for i := range buf {
			pos := float64(i) / float64(length)
			wave := (math.Sin(2*math.Pi*(pos*cycles+phase)) + 1) / 2

			// 线性同余抖动，无共享状态
			jitter = jitter*6364136223846793005 + 1442695040888963407
			j := float64(jitter>>33&0xff) / 255

			v := wave * (0.85 + 0.15*j) * src.gain
			sum := int(buf[i]) + int(v*255)
			if sum > 255 {
				sum = 255
			}
			buf[i] = byte(sum)
		}
	}
	return buf
}

// channelSeed 由通道键导出稳定的合成参数
func channelSeed(key string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return h.Sum64()
}
