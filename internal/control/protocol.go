package control

import (
	"github.com/mellowdesk/ambientd/internal/ambient"
)

// 请求动作
const (
	ActionSetVolume    = "set_volume"
	ActionListChannels = "list_channels"
	ActionRefresh      = "refresh"
)

// 推送与应答类型
const (
	TypeAck       = "ack"
	TypeError     = "error"
	TypeChannels  = "channels"
	TypeAmplitude = "amplitude"
	TypeNoSignal  = "no_signal"
)

// Request 客户端发来的控制请求
type Request struct {
	Action  string  `json:"action"`
	ID      string  `json:"id,omitempty"`
	Channel string  `json:"channel,omitempty"`
	Volume  float64 `json:"volume,omitempty"`
}

// Response 服务端应答或推送
// Amplitude 经 JSON 编码后为 base64 字符串
type Response struct {
	Type      string                `json:"type"`
	ID        string                `json:"id,omitempty"`
	Error     string                `json:"error,omitempty"`
	Channels  []ambient.ChannelInfo `json:"channels,omitempty"`
	Amplitude []byte                `json:"amplitude,omitempty"`
}
