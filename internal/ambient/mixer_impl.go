package ambient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mellowdesk/ambientd/internal/audio"
	"github.com/mellowdesk/ambientd/internal/catalog"
	"github.com/mellowdesk/ambientd/internal/logging"
)

// ErrUnknownChannel 目标通道未配置
var ErrUnknownChannel = errors.New("unknown channel")

// ErrMixerClosed Mixer 已关闭
var ErrMixerClosed = errors.New("mixer closed")

// mixerImpl Mixer 实现
// 单把互斥锁保护全部通道状态；加载在后台 goroutine 进行，
// 结果通过带代计数的回调重新进入锁内应用
type mixerImpl struct {
	config  *MixerConfig
	catalog catalog.Catalog
	loader  audio.Loader
	bus     EventBus
	rotator *Rotator

	mu       sync.Mutex
	channels map[string]*channelState
	order    []string
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMixer 创建 Mixer
func NewMixer(cat catalog.Catalog, loader audio.Loader, bus EventBus, specs []ChannelSpec, config *MixerConfig) Mixer {
	if config == nil {
		config = DefaultMixerConfig()
	}
	if bus == nil {
		bus = NewEventBus()
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &mixerImpl{
		config:   config,
		catalog:  cat,
		loader:   loader,
		bus:      bus,
		rotator:  NewRotator(config.MinInterval, config.MaxInterval),
		channels: make(map[string]*channelState, len(specs)),
		order:    make([]string, 0, len(specs)),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, spec := range specs {
		if _, exists := m.channels[spec.Key]; exists {
			continue
		}
		m.channels[spec.Key] = newChannelState(spec)
		m.order = append(m.order, spec.Key)
	}
	return m
}

func (m *mixerImpl) SetChannelVolume(key string, percent float64) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrMixerClosed
	}
	ch, ok := m.channels[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChannel, key)
	}

	volume := percent / 100
	if volume == ch.volume {
		return nil
	}
	ch.volume = volume
	logging.Infof("Mixer: channel %s volume set to %.0f%%", key, percent)

	if volume == 0 {
		m.stopLocked(ch)
		return nil
	}

	switch ch.machine.GetCurrentState() {
	case LoadStateUnloaded:
		m.beginLoadLocked(ch)
	case LoadStateLoadingFirst:
		// 首个资源就绪后按当前音量自动开始播放
	default:
		if ch.playing {
			ch.loaded[ch.current].unit.SetGain(ch.effectiveGain())
		} else if len(ch.loaded) > 0 {
			m.startPlayingLocked(ch)
		}
	}
	return nil
}

func (m *mixerImpl) Channels() []ChannelInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos := make([]ChannelInfo, 0, len(m.order))
	for _, key := range m.order {
		infos = append(infos, m.channels[key].info())
	}
	return infos
}

func (m *mixerImpl) Refresh() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrMixerClosed
	}
	for _, key := range m.order {
		m.resetLocked(m.channels[key])
	}
	m.mu.Unlock()

	categories := m.catalog.Discover(true)
	logging.Infof("Mixer: refreshed catalog, %d categories", len(categories))

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrMixerClosed
	}
	for _, key := range m.order {
		ch := m.channels[key]
		if ch.volume > 0 {
			m.beginLoadLocked(ch)
		}
	}
	return nil
}

func (m *mixerImpl) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	for _, key := range m.order {
		m.resetLocked(m.channels[key])
	}
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
	return nil
}

// stopLocked 停止播放并使未触发的轮换失效
// 代计数自增保证已出队的定时器回调成为空操作
func (m *mixerImpl) stopLocked(ch *channelState) {
	ch.rotateGen++
	if ch.rotateTimer != nil {
		ch.rotateTimer.Stop()
		ch.rotateTimer = nil
	}
	if ch.playing {
		ch.loaded[ch.current].unit.Stop()
		ch.playing = false
	}
}

// resetLocked 停止播放、取消加载并释放通道的全部资源
func (m *mixerImpl) resetLocked(ch *channelState) {
	m.stopLocked(ch)
	ch.loadGen++
	if ch.loadCancel != nil {
		ch.loadCancel()
		ch.loadCancel = nil
	}
	for _, la := range ch.loaded {
		la.unit.Close()
	}
	ch.loaded = nil
	ch.pool = nil
	ch.current = 0
	m.transitionLocked(ch, LoadStateUnloaded)
}

func (m *mixerImpl) transitionLocked(ch *channelState, to LoadState) {
	old := ch.machine.GetCurrentState()
	if ch.machine.Transition(to) {
		m.bus.Publish(NewChannelStateChangedEvent(ch.spec.Key, old, to))
	}
}

func (m *mixerImpl) startPlayingLocked(ch *channelState) {
	ch.current = m.rotator.PickStart(len(ch.loaded))
	unit := ch.loaded[ch.current].unit
	unit.SetGain(ch.effectiveGain())
	unit.Play(true)
	ch.playing = true
	logging.Infof("Mixer: channel %s playing %s", ch.spec.Key, ch.loaded[ch.current].asset.Name)

	if len(ch.loaded) > 1 {
		m.scheduleRotationLocked(ch)
	}
}

func (m *mixerImpl) scheduleRotationLocked(ch *channelState) {
	gen := ch.rotateGen
	key := ch.spec.Key
	ch.rotateTimer = time.AfterFunc(m.rotator.NextInterval(), func() {
		m.rotate(key, gen)
	})
}

// rotate 定时器回调：交叉淡入淡出切换到另一个已加载资源
func (m *mixerImpl) rotate(key string, gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, ok := m.channels[key]
	if !ok || gen != ch.rotateGen || !ch.playing {
		return
	}
	ch.rotateTimer = nil
	if len(ch.loaded) < 2 {
		// 资源不足，等后台加载补充后再恢复调度
		return
	}

	next := m.rotator.PickNext(ch.current, len(ch.loaded))
	out := ch.loaded[ch.current].unit
	in := ch.loaded[next].unit
	fade := m.config.FadeDuration

	// 两条线性斜坡时长相同，叠加增益恒等于通道增益
	out.FadeTo(0, fade)
	time.AfterFunc(fade, out.Stop)
	in.SetGain(0)
	in.Play(true)
	in.FadeTo(ch.effectiveGain(), fade)

	from := ch.loaded[ch.current].asset.Name
	to := ch.loaded[next].asset.Name
	ch.current = next
	logging.Infof("Mixer: channel %s rotated %s -> %s", key, from, to)
	m.bus.Publish(NewRotationCompletedEvent(key, from, to))

	m.scheduleRotationLocked(ch)
}

// beginLoadLocked 把通道转入加载并启动后台加载任务
func (m *mixerImpl) beginLoadLocked(ch *channelState) {
	m.transitionLocked(ch, LoadStateLoadingFirst)

	ctx, cancel := context.WithCancel(m.ctx)
	ch.loadCancel = cancel
	gen := ch.loadGen
	key := ch.spec.Key

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.loadChannel(ctx, key, gen)
	}()
}

// loadChannel 后台加载任务：选池、顺序加载首个资源、分批加载其余
func (m *mixerImpl) loadChannel(ctx context.Context, key string, gen uint64) {
	pool := m.selectPool(key)

	m.mu.Lock()
	ch, ok := m.channels[key]
	if !ok || gen != ch.loadGen {
		m.mu.Unlock()
		return
	}
	ch.pool = pool
	m.mu.Unlock()

	if len(pool) == 0 {
		logging.Warnf("Mixer: channel %s has no playable assets", key)
		m.bus.Publish(NewChannelUnavailableEvent(key))
		return
	}

	// 顺序尝试候选资源，失败的在本次会话内不再重试
	var first audio.PlayableUnit
	firstIdx := -1
	for i, asset := range pool {
		if ctx.Err() != nil {
			return
		}
		unit, err := m.loader.LoadFirst(ctx, asset)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logging.Warnf("Mixer: channel %s failed to load %s: %v", key, asset.Name, err)
			m.bus.Publish(NewAssetLoadFailedEvent(key, asset, err.Error()))
			continue
		}
		first = unit
		firstIdx = i
		break
	}

	if first == nil {
		logging.Errorf("Mixer: channel %s exhausted all %d assets", key, len(pool))
		m.bus.Publish(NewChannelUnavailableEvent(key))
		return
	}

	rest := pool[firstIdx+1:]

	m.mu.Lock()
	if gen != ch.loadGen {
		m.mu.Unlock()
		first.Close()
		return
	}
	ch.loaded = append(ch.loaded, loadedAsset{asset: pool[firstIdx], unit: first})
	if len(rest) == 0 {
		m.transitionLocked(ch, LoadStateReady)
	} else {
		m.transitionLocked(ch, LoadStateBackgroundLoading)
	}
	m.bus.Publish(NewAssetLoadedEvent(key, pool[firstIdx]))
	if ch.volume > 0 && !ch.playing {
		m.startPlayingLocked(ch)
	}
	m.mu.Unlock()

	if len(rest) == 0 {
		return
	}

	m.loader.LoadBatches(ctx, rest,
		func(asset catalog.AssetDescriptor, unit audio.PlayableUnit) {
			m.onBackgroundLoaded(key, gen, asset, unit)
		},
		func(asset catalog.AssetDescriptor, err error) {
			m.bus.Publish(NewAssetLoadFailedEvent(key, asset, err.Error()))
		})

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen == ch.loadGen && ctx.Err() == nil {
		m.transitionLocked(ch, LoadStateReady)
	}
}

// onBackgroundLoaded 后台批加载成功回调
func (m *mixerImpl) onBackgroundLoaded(key string, gen uint64, asset catalog.AssetDescriptor, unit audio.PlayableUnit) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, ok := m.channels[key]
	if !ok || gen != ch.loadGen {
		unit.Close()
		return
	}
	ch.loaded = append(ch.loaded, loadedAsset{asset: asset, unit: unit})
	m.bus.Publish(NewAssetLoadedEvent(key, asset))

	// 第二个资源到位后恢复轮换调度
	if ch.playing && ch.rotateTimer == nil && len(ch.loaded) > 1 {
		m.scheduleRotationLocked(ch)
	}
}

// selectPool 选出通道的候选资源池
// 只取偏好最高且至少有一个文件的扩展名，不同格式不混用
func (m *mixerImpl) selectPool(key string) []catalog.AssetDescriptor {
	var dir string
	for _, c := range m.catalog.Discover(false) {
		if c.Name == key {
			dir = c.Path
			break
		}
	}
	if dir == "" {
		return nil
	}

	files := m.catalog.ListFiles(dir, false)
	for _, ext := range m.config.Extensions {
		var pool []catalog.AssetDescriptor
		for _, f := range files {
			if f.Extension == ext {
				pool = append(pool, f)
			}
		}
		if len(pool) > 0 {
			return pool
		}
	}
	return nil
}
