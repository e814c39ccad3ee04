package audio

import (
	"errors"
	"sync"
	"time"
)

// mockBackend records created units without touching any audio device.
type mockBackend struct {
	mu    sync.Mutex
	units []*mockUnit
	fail  bool
}

func (b *mockBackend) Name() string { return "mock" }
func (b *mockBackend) Start() error { return nil }
func (b *mockBackend) Close() error { return nil }

func (b *mockBackend) NewUnit(pcm [][2]float64) (PlayableUnit, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return nil, errors.New("mock backend failure")
	}
	u := &mockUnit{pcm: pcm}
	b.units = append(b.units, u)
	return u, nil
}

type mockUnit struct {
	mu      sync.Mutex
	pcm     [][2]float64
	playing bool
	loop    bool
	gain    float64
	stops   int
	closed  bool
}

func (u *mockUnit) Play(loop bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.playing = true
	u.loop = loop
}

func (u *mockUnit) SetGain(gain float64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.gain = gain
}

func (u *mockUnit) FadeTo(gain float64, d time.Duration) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.gain = gain
}

func (u *mockUnit) Stop() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.playing = false
	u.stops++
}

func (u *mockUnit) Position() time.Duration { return 0 }

func (u *mockUnit) Close() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.closed = true
}

// mockDecoder serves canned PCM with optional per-path failures and delay.
type mockDecoder struct {
	mu    sync.Mutex
	pcm   [][2]float64
	fail  map[string]error
	delay time.Duration
	calls []string
}

func newMockDecoder(frames int) *mockDecoder {
	pcm := make([][2]float64, frames)
	for i := range pcm {
		pcm[i] = [2]float64{0.1, -0.1}
	}
	return &mockDecoder{pcm: pcm, fail: make(map[string]error)}
}

func (d *mockDecoder) DecodeFile(path, extension string) ([][2]float64, error) {
	d.mu.Lock()
	d.calls = append(d.calls, path)
	delay := d.delay
	err := d.fail[path]
	pcm := d.pcm
	d.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	return pcm, nil
}

func (d *mockDecoder) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}
