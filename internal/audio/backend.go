package audio

import (
	"fmt"
	"strings"
	"time"

	"github.com/mellowdesk/ambientd/internal/logging"
)

// PlayableUnit 单个已解码资源的播放句柄，由所属频道独占
// 解码数据本身不可变，可变的只有播放位置与增益
type PlayableUnit interface {
	// Play 开始播放，loop 为 true 时到尾部后回绕
	Play(loop bool)
	// SetGain 立即设置增益（取消进行中的渐变）
	SetGain(gain float64)
	// FadeTo 在 d 时间内线性渐变到目标增益
	FadeTo(gain float64, d time.Duration)
	// Stop 停止播放并复位到起始位置
	Stop()
	// Position 当前播放位置
	Position() time.Duration
	// Close 释放资源，之后此句柄不可再用
	Close()
}

// Backend 播放后端，负责把各单元的 PCM 混合写入输出设备
// 混音逻辑对后端类型不感知；后端在启动时选定一次，之后不再切换
type Backend interface {
	Name() string
	Start() error
	// NewUnit 用引擎采样率的立体声帧创建一个播放单元
	NewUnit(pcm [][2]float64) (PlayableUnit, error)
	Close() error
}

// Probe 依次探测可用后端：优先 portaudio，失败时回退 oto
func Probe(sampleRate int) (Backend, error) {
	backend, err := newPortaudioBackend(sampleRate)
	if err == nil {
		logging.Infof("Backend: selected portaudio")
		return backend, nil
	}
	logging.Warnf("Backend: portaudio unavailable (%v), falling back to oto", err)

	backend, otoErr := newOtoBackend(sampleRate)
	if otoErr != nil {
		return nil, fmt.Errorf("no playback backend available: portaudio: %v, oto: %w", err, otoErr)
	}
	logging.Infof("Backend: selected oto")
	return backend, nil
}

// NewBackend 按名称创建后端；空名称等价于 Probe
func NewBackend(name string, sampleRate int) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return Probe(sampleRate)
	case "portaudio":
		return newPortaudioBackend(sampleRate)
	case "oto":
		return newOtoBackend(sampleRate)
	default:
		return nil, fmt.Errorf("unknown backend: %s", name)
	}
}

func clampGain(gain float64) float64 {
	if gain < 0 {
		return 0
	}
	if gain > 1 {
		return 1
	}
	return gain
}
