package audio

import (
	"errors"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/mellowdesk/ambientd/internal/logging"
)

const paFramesPerBuffer = 1024

// paBackend 使用一条 portaudio 输出流作为主总线，
// 回调内把所有活动单元按各自增益求和后写出
type paBackend struct {
	sampleRate int

	mu     sync.Mutex
	units  map[*paUnit]struct{}
	stream *portaudio.Stream
	closed bool
}

func newPortaudioBackend(sampleRate int) (Backend, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	b := &paBackend{
		sampleRate: sampleRate,
		units:      make(map[*paUnit]struct{}),
	}
	stream, err := portaudio.OpenDefaultStream(0, 2, float64(sampleRate), paFramesPerBuffer, b.audioCallback)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	b.stream = stream
	return b, nil
}

func (b *paBackend) Name() string { return "portaudio" }

func (b *paBackend) Start() error {
	b.mu.Lock()
	stream := b.stream
	b.mu.Unlock()
	if stream == nil {
		return errors.New("portaudio backend is closed")
	}
	return stream.Start()
}

func (b *paBackend) NewUnit(pcm [][2]float64) (PlayableUnit, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.New("portaudio backend is closed")
	}
	u := &paUnit{backend: b, pcm: pcm}
	b.units[u] = struct{}{}
	return u, nil
}

func (b *paBackend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	stream := b.stream
	b.stream = nil
	b.units = make(map[*paUnit]struct{})
	b.mu.Unlock()

	if stream != nil {
		if err := stream.Stop(); err != nil {
			logging.Errorf("Backend: failed to stop portaudio stream: %v", err)
		}
		if err := stream.Close(); err != nil {
			logging.Errorf("Backend: failed to close portaudio stream: %v", err)
		}
	}
	portaudio.Terminate()
	return nil
}

func (b *paBackend) audioCallback(out [][]float32) {
	for i := range out[0] {
		out[0][i] = 0
		out[1][i] = 0
	}

	b.mu.Lock()
	for u := range b.units {
		u.mixInto(out)
	}
	b.mu.Unlock()

	for i := range out[0] {
		out[0][i] = clampSample(out[0][i])
		out[1][i] = clampSample(out[1][i])
	}
}

func clampSample(v float32) float32 {
	if v > 1.0 {
		return 1.0
	}
	if v < -1.0 {
		return -1.0
	}
	return v
}

// paUnit 的字段由所属后端的互斥锁保护；
// mixInto 只会在回调持锁时调用
type paUnit struct {
	backend *paBackend
	pcm     [][2]float64

	pos     int
	playing bool
	loop    bool

	gain       float64
	gainTarget float64
	gainStep   float64 // per-frame delta while ramping
}

func (u *paUnit) mixInto(out [][]float32) {
	if !u.playing || len(u.pcm) == 0 {
		return
	}
	for i := range out[0] {
		if u.pos >= len(u.pcm) {
			if !u.loop {
				u.playing = false
				return
			}
			u.pos = 0
		}
		if u.gainStep != 0 {
			u.gain += u.gainStep
			if (u.gainStep > 0 && u.gain >= u.gainTarget) ||
				(u.gainStep < 0 && u.gain <= u.gainTarget) {
				u.gain = u.gainTarget
				u.gainStep = 0
			}
		}
		frame := u.pcm[u.pos]
		g := float32(u.gain)
		out[0][i] += float32(frame[0]) * g
		out[1][i] += float32(frame[1]) * g
		u.pos++
	}
}

func (u *paUnit) Play(loop bool) {
	u.backend.mu.Lock()
	defer u.backend.mu.Unlock()
	u.loop = loop
	u.pos = 0
	u.playing = true
}

func (u *paUnit) SetGain(gain float64) {
	u.backend.mu.Lock()
	defer u.backend.mu.Unlock()
	u.gain = clampGain(gain)
	u.gainTarget = u.gain
	u.gainStep = 0
}

func (u *paUnit) FadeTo(gain float64, d time.Duration) {
	u.backend.mu.Lock()
	defer u.backend.mu.Unlock()
	target := clampGain(gain)
	frames := d.Seconds() * float64(u.backend.sampleRate)
	if frames <= 0 {
		u.gain = target
		u.gainTarget = target
		u.gainStep = 0
		return
	}
	u.gainTarget = target
	u.gainStep = (target - u.gain) / frames
	if u.gainStep == 0 {
		u.gain = target
	}
}

func (u *paUnit) Stop() {
	u.backend.mu.Lock()
	defer u.backend.mu.Unlock()
	u.playing = false
	u.pos = 0
}

func (u *paUnit) Position() time.Duration {
	u.backend.mu.Lock()
	defer u.backend.mu.Unlock()
	return time.Duration(float64(u.pos) / float64(u.backend.sampleRate) * float64(time.Second))
}

func (u *paUnit) Close() {
	u.backend.mu.Lock()
	defer u.backend.mu.Unlock()
	u.playing = false
	u.pcm = nil
	delete(u.backend.units, u)
}
