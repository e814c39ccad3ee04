package ambient

import (
	"context"
	"time"

	"github.com/mellowdesk/ambientd/internal/audio"
	"github.com/mellowdesk/ambientd/internal/catalog"
)

// loadedAsset 已加载的资源与其播放单元
type loadedAsset struct {
	asset catalog.AssetDescriptor
	unit  audio.PlayableUnit
}

// channelState 单个通道的运行时状态，由 Mixer 的互斥锁保护
type channelState struct {
	spec    ChannelSpec
	machine *StateMachine

	// volume 用户音量，0.0-1.0
	volume  float64
	playing bool

	// pool 本次会话选定格式的候选资源
	pool   []catalog.AssetDescriptor
	loaded []loadedAsset
	// current 当前播放的 loaded 下标，仅在 playing 时有效
	current int

	// rotateTimer 本通道持有的轮换定时器
	// rotateGen 代计数，用于丢弃停止后才触发的过期轮换
	rotateTimer *time.Timer
	rotateGen   uint64

	// loadCancel 取消本通道的加载任务
	// loadGen 代计数，用于丢弃刷新后才完成的过期加载
	loadCancel context.CancelFunc
	loadGen    uint64
}

func newChannelState(spec ChannelSpec) *channelState {
	return &channelState{
		spec:    spec,
		machine: NewStateMachine(),
	}
}

// effectiveGain 当前音量对应的实际增益
func (ch *channelState) effectiveGain() float64 {
	return ch.volume * ch.spec.BaseGain
}

// currentAssetName 当前播放资源名，未播放时为空
func (ch *channelState) currentAssetName() string {
	if !ch.playing || ch.current < 0 || ch.current >= len(ch.loaded) {
		return ""
	}
	return ch.loaded[ch.current].asset.Name
}

func (ch *channelState) info() ChannelInfo {
	return ChannelInfo{
		Key:          ch.spec.Key,
		DisplayName:  ch.spec.DisplayName,
		Volume:       ch.volume * 100,
		Playing:      ch.playing,
		State:        ch.machine.GetCurrentState().String(),
		LoadedAssets: len(ch.loaded),
		TotalAssets:  len(ch.pool),
		CurrentAsset: ch.currentAssetName(),
	}
}
