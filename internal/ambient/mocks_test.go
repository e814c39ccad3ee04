package ambient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mellowdesk/ambientd/internal/audio"
	"github.com/mellowdesk/ambientd/internal/catalog"
)

// fakeCatalog 内存目录
type fakeCatalog struct {
	mu         sync.Mutex
	categories []catalog.Category
	files      map[string][]catalog.AssetDescriptor
	refreshes  int
}

func (c *fakeCatalog) Discover(forceRefresh bool) []catalog.Category {
	c.mu.Lock()
	defer c.mu.Unlock()
	if forceRefresh {
		c.refreshes++
	}
	return c.categories
}

func (c *fakeCatalog) ListFiles(path string, forceRefresh bool) []catalog.AssetDescriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.files[path]
}

func (c *fakeCatalog) refreshCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshes
}

// fakeUnit 记录播放调用的假播放单元，calls 按调用顺序记录
type fakeUnit struct {
	mu      sync.Mutex
	name    string
	playing bool
	loop    bool
	gain    float64
	fades   []float64
	calls   []string
	stops   int
	closed  bool
}

func (u *fakeUnit) Play(loop bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.playing = true
	u.loop = loop
	u.calls = append(u.calls, "play")
}

func (u *fakeUnit) SetGain(gain float64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.gain = gain
	u.calls = append(u.calls, fmt.Sprintf("gain:%.2f", gain))
}

func (u *fakeUnit) FadeTo(gain float64, d time.Duration) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.gain = gain
	u.fades = append(u.fades, gain)
	u.calls = append(u.calls, fmt.Sprintf("fade:%.2f", gain))
}

func (u *fakeUnit) Stop() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.playing = false
	u.stops++
	u.calls = append(u.calls, "stop")
}

func (u *fakeUnit) Position() time.Duration { return 0 }

func (u *fakeUnit) Close() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.closed = true
}

type unitSnapshot struct {
	name    string
	playing bool
	loop    bool
	gain    float64
	stops   int
	closed  bool
}

func (u *fakeUnit) callLog() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.calls...)
}

func (u *fakeUnit) fadeTargets() []float64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]float64(nil), u.fades...)
}

func (u *fakeUnit) snapshot() unitSnapshot {
	u.mu.Lock()
	defer u.mu.Unlock()
	return unitSnapshot{
		name:    u.name,
		playing: u.playing,
		loop:    u.loop,
		gain:    u.gain,
		stops:   u.stops,
		closed:  u.closed,
	}
}

// fakeLoader 立即完成的加载器，失败路径可配置
type fakeLoader struct {
	mu    sync.Mutex
	fail  map[string]error
	delay time.Duration
	units []*fakeUnit
	loads []string
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{fail: make(map[string]error)}
}

func (l *fakeLoader) LoadFirst(ctx context.Context, asset catalog.AssetDescriptor) (audio.PlayableUnit, error) {
	l.mu.Lock()
	l.loads = append(l.loads, asset.Path)
	delay := l.delay
	err := l.fail[asset.Path]
	l.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}

	u := &fakeUnit{name: asset.Name}
	l.mu.Lock()
	l.units = append(l.units, u)
	l.mu.Unlock()
	return u, nil
}

func (l *fakeLoader) LoadBatches(ctx context.Context, assets []catalog.AssetDescriptor, onLoaded func(catalog.AssetDescriptor, audio.PlayableUnit), onFailed func(catalog.AssetDescriptor, error)) {
	for _, asset := range assets {
		unit, err := l.LoadFirst(ctx, asset)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			if onFailed != nil {
				onFailed(asset, err)
			}
			continue
		}
		if ctx.Err() != nil {
			unit.Close()
			return
		}
		onLoaded(asset, unit)
	}
}

func (l *fakeLoader) loadCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.loads)
}

func (l *fakeLoader) unitList() []*fakeUnit {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*fakeUnit(nil), l.units...)
}
