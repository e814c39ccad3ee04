package ambient

import (
	"time"
)

// Mixer 环境音混音器，负责通道音量管理、资源加载编排与轮换调度
// 所有状态变更都通过 SetChannelVolume / Refresh / Close 进入
type Mixer interface {
	// SetChannelVolume 设置通道音量，percent 取值 0-100，越界自动截断
	// 音量为 0 时通道停止播放；从 0 调到正值时按需触发加载与播放
	// 对同一通道重复设置相同音量是幂等的
	SetChannelVolume(key string, percent float64) error

	// SampleCombinedAmplitude 采样当前活跃通道的合成幅度包络
	// 无活跃通道时返回 nil，否则返回固定长度的字节序列，每字节 0-255
	SampleCombinedAmplitude() []byte

	// Channels 返回所有通道的当前快照，顺序与配置一致
	Channels() []ChannelInfo

	// Refresh 重新扫描资源目录，所有通道回到未加载状态
	// 音量为正的通道随后自动重新加载
	Refresh() error

	// Close 停止全部播放、取消加载任务并释放已加载资源
	Close() error
}

// ChannelSpec 通道静态配置
type ChannelSpec struct {
	// Key 通道键，同时也是资源根目录下的分类目录名
	Key string
	// DisplayName 展示名称
	DisplayName string
	// BaseGain 通道基准增益，实际增益 = BaseGain * percent / 100
	BaseGain float64
}

// ChannelInfo 通道运行时快照
type ChannelInfo struct {
	Key          string  `json:"key"`
	DisplayName  string  `json:"displayName"`
	Volume       float64 `json:"volume"`
	Playing      bool    `json:"playing"`
	State        string  `json:"state"`
	LoadedAssets int     `json:"loadedAssets"`
	TotalAssets  int     `json:"totalAssets"`
	CurrentAsset string  `json:"currentAsset,omitempty"`
}

// MixerConfig Mixer 配置
type MixerConfig struct {
	// Extensions 支持的扩展名，按偏好从高到低排列
	// 通道只使用其中单一格式的文件，不混用
	Extensions []string
	// FadeDuration 轮换交叉淡入淡出时长
	FadeDuration time.Duration
	// MinInterval / MaxInterval 轮换间隔区间
	MinInterval time.Duration
	MaxInterval time.Duration
	// VizBufferLength 幅度包络缓冲区长度
	VizBufferLength int
}

// DefaultMixerConfig 默认配置
func DefaultMixerConfig() *MixerConfig {
	return &MixerConfig{
		Extensions:      []string{"mp3", "wav", "ogg", "m4a", "aac", "flac", "wma"},
		FadeDuration:    2 * time.Second,
		MinInterval:     3 * time.Minute,
		MaxInterval:     8 * time.Minute,
		VizBufferLength: 256,
	}
}
