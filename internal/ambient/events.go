package ambient

import (
	"time"

	"github.com/mellowdesk/ambientd/internal/catalog"
)

// EventBus 事件总线，负责组件间异步通信
type EventBus interface {
	Publish(event Event)
	Subscribe(eventType EventType, handler EventHandler)
}

// Event 事件接口
type Event interface {
	Type() EventType
}

// EventType 事件类型
type EventType int

const (
	EventTypeChannelStateChanged EventType = iota
	EventTypeAssetLoaded
	EventTypeAssetLoadFailed
	EventTypeRotationCompleted
	EventTypeChannelUnavailable
)

// EventHandler 事件处理器
type EventHandler func(event Event)

// Event 事件实现
type BaseEvent struct {
	eventType EventType
	timestamp time.Time
}

func (e *BaseEvent) Type() EventType {
	return e.eventType
}

func (e *BaseEvent) Timestamp() time.Time {
	return e.timestamp
}

// ChannelStateChangedEvent 通道加载状态变化事件
type ChannelStateChangedEvent struct {
	BaseEvent
	Channel  string
	OldState LoadState
	NewState LoadState
}

func NewChannelStateChangedEvent(channel string, oldState, newState LoadState) *ChannelStateChangedEvent {
	return &ChannelStateChangedEvent{
		BaseEvent: BaseEvent{
			eventType: EventTypeChannelStateChanged,
			timestamp: time.Now(),
		},
		Channel:  channel,
		OldState: oldState,
		NewState: newState,
	}
}

// AssetLoadedEvent 资源加载成功事件
type AssetLoadedEvent struct {
	BaseEvent
	Channel string
	Asset   catalog.AssetDescriptor
}

func NewAssetLoadedEvent(channel string, asset catalog.AssetDescriptor) *AssetLoadedEvent {
	return &AssetLoadedEvent{
		BaseEvent: BaseEvent{
			eventType: EventTypeAssetLoaded,
			timestamp: time.Now(),
		},
		Channel: channel,
		Asset:   asset,
	}
}

// AssetLoadFailedEvent 资源加载失败事件
// 失败的资源在本次会话内不再重试
type AssetLoadFailedEvent struct {
	BaseEvent
	Channel string
	Asset   catalog.AssetDescriptor
	Reason  string
}

func NewAssetLoadFailedEvent(channel string, asset catalog.AssetDescriptor, reason string) *AssetLoadFailedEvent {
	return &AssetLoadFailedEvent{
		BaseEvent: BaseEvent{
			eventType: EventTypeAssetLoadFailed,
			timestamp: time.Now(),
		},
		Channel: channel,
		Asset:   asset,
		Reason:  reason,
	}
}

// RotationCompletedEvent 轮换完成事件
type RotationCompletedEvent struct {
	BaseEvent
	Channel   string
	FromAsset string
	ToAsset   string
}

func NewRotationCompletedEvent(channel, fromAsset, toAsset string) *RotationCompletedEvent {
	return &RotationCompletedEvent{
		BaseEvent: BaseEvent{
			eventType: EventTypeRotationCompleted,
			timestamp: time.Now(),
		},
		Channel:   channel,
		FromAsset: fromAsset,
		ToAsset:   toAsset,
	}
}

// ChannelUnavailableEvent 通道不可用事件（所有候选资源加载失败）
type ChannelUnavailableEvent struct {
	BaseEvent
	Channel string
}

func NewChannelUnavailableEvent(channel string) *ChannelUnavailableEvent {
	return &ChannelUnavailableEvent{
		BaseEvent: BaseEvent{
			eventType: EventTypeChannelUnavailable,
			timestamp: time.Now(),
		},
		Channel: channel,
	}
}
