package ambient

import "slices"

// LoadState 表示通道资源的加载状态
type LoadState int

const (
	// LoadStateUnloaded 尚未加载任何资源
	LoadStateUnloaded LoadState = iota
	// LoadStateLoadingFirst 正在加载首个资源，播放被阻塞
	LoadStateLoadingFirst
	// LoadStateBackgroundLoading 首个资源就绪，其余资源后台分批加载中
	LoadStateBackgroundLoading
	// LoadStateReady 全部可用资源加载完毕
	LoadStateReady
)

func (s LoadState) String() string {
	switch s {
	case LoadStateUnloaded:
		return "Unloaded"
	case LoadStateLoadingFirst:
		return "LoadingFirst"
	case LoadStateBackgroundLoading:
		return "BackgroundLoading"
	case LoadStateReady:
		return "Ready"
	default:
		return "Unknown"
	}
}

// StateMachine 通道加载状态机
type StateMachine struct {
	currentState LoadState
}

func NewStateMachine() *StateMachine {
	return &StateMachine{
		currentState: LoadStateUnloaded,
	}
}

// CanTransition 检查是否可以转换
func (sm *StateMachine) CanTransition(to LoadState) bool {
	from := sm.currentState

	validTransitions := map[LoadState][]LoadState{
		LoadStateUnloaded:          {LoadStateLoadingFirst},
		LoadStateLoadingFirst:      {LoadStateBackgroundLoading, LoadStateReady, LoadStateUnloaded},
		LoadStateBackgroundLoading: {LoadStateReady, LoadStateUnloaded},
		LoadStateReady:             {LoadStateUnloaded},
	}

	validTo, ok := validTransitions[from]
	if !ok {
		return false
	}

	return slices.Contains(validTo, to)
}

// Transition 状态转换
func (sm *StateMachine) Transition(to LoadState) bool {
	if sm.CanTransition(to) {
		sm.currentState = to
		return true
	}
	return false
}

// GetCurrentState 获取当前状态
func (sm *StateMachine) GetCurrentState() LoadState {
	return sm.currentState
}
