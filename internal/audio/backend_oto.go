package audio

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/hajimehoshi/oto/v2"
)

const otoFadeStep = 25 * time.Millisecond

// otoBackend 回退后端：每个单元持有自己的 oto 播放器，
// 增益经 SetVolume 设置，渐变由定时步进逼近
type otoBackend struct {
	sampleRate int
	ctx        *oto.Context
	ready      chan struct{}

	mu     sync.Mutex
	closed bool
}

func newOtoBackend(sampleRate int) (Backend, error) {
	ctx, ready, err := oto.NewContext(sampleRate, 2, 2)
	if err != nil {
		return nil, err
	}
	return &otoBackend{sampleRate: sampleRate, ctx: ctx, ready: ready}, nil
}

func (b *otoBackend) Name() string { return "oto" }

func (b *otoBackend) Start() error {
	select {
	case <-b.ready:
		return nil
	case <-time.After(3 * time.Second):
		return errors.New("oto context not ready")
	}
}

func (b *otoBackend) NewUnit(pcm [][2]float64) (PlayableUnit, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.New("oto backend is closed")
	}
	return &otoUnit{backend: b, data: framesToPCM16(pcm)}, nil
}

func (b *otoBackend) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	// oto contexts have no Close; players are closed by their units.
	return nil
}

// framesToPCM16 把立体声浮点帧转换为 16-bit LE 字节流
func framesToPCM16(pcm [][2]float64) []byte {
	data := make([]byte, len(pcm)*4)
	for i, frame := range pcm {
		l := sampleToInt16(frame[0])
		r := sampleToInt16(frame[1])
		data[i*4] = byte(l)
		data[i*4+1] = byte(l >> 8)
		data[i*4+2] = byte(r)
		data[i*4+3] = byte(r >> 8)
	}
	return data
}

func sampleToInt16(v float64) int16 {
	if v > 1.0 {
		v = 1.0
	} else if v < -1.0 {
		v = -1.0
	}
	return int16(v * 32767)
}

type otoUnit struct {
	backend *otoBackend
	data    []byte

	mu        sync.Mutex
	player    oto.Player
	gain      float64
	fadeGen   uint64
	startedAt time.Time
	closed    bool
}

func (u *otoUnit) Play(loop bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed || len(u.data) == 0 {
		return
	}
	if u.player != nil {
		u.player.Close()
	}
	var reader io.Reader
	if loop {
		reader = &loopReader{data: u.data}
	} else {
		reader = &onceReader{data: u.data}
	}
	player := u.backend.ctx.NewPlayer(reader)
	player.SetVolume(u.gain)
	player.Play()
	u.player = player
	u.startedAt = time.Now()
}

func (u *otoUnit) SetGain(gain float64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.fadeGen++
	u.gain = clampGain(gain)
	if u.player != nil {
		u.player.SetVolume(u.gain)
	}
}

func (u *otoUnit) FadeTo(gain float64, d time.Duration) {
	u.mu.Lock()
	u.fadeGen++
	gen := u.fadeGen
	from := u.gain
	target := clampGain(gain)
	u.mu.Unlock()

	if d <= 0 {
		u.SetGain(target)
		return
	}

	go func() {
		start := time.Now()
		ticker := time.NewTicker(otoFadeStep)
		defer ticker.Stop()
		for range ticker.C {
			progress := float64(time.Since(start)) / float64(d)
			if progress > 1 {
				progress = 1
			}
			current := from + (target-from)*progress

			u.mu.Lock()
			if gen != u.fadeGen || u.closed {
				u.mu.Unlock()
				return
			}
			u.gain = current
			if u.player != nil {
				u.player.SetVolume(current)
			}
			u.mu.Unlock()

			if progress >= 1 {
				return
			}
		}
	}()
}

func (u *otoUnit) Stop() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.fadeGen++
	if u.player != nil {
		u.player.Close()
		u.player = nil
	}
}

func (u *otoUnit) Position() time.Duration {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.player == nil || len(u.data) == 0 {
		return 0
	}
	total := time.Duration(float64(len(u.data)/4) / float64(u.backend.sampleRate) * float64(time.Second))
	if total <= 0 {
		return 0
	}
	return time.Since(u.startedAt) % total
}

func (u *otoUnit) Close() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.fadeGen++
	u.closed = true
	if u.player != nil {
		u.player.Close()
		u.player = nil
	}
	u.data = nil
}

// loopReader 循环读取固定数据，供环境音无缝续播
type loopReader struct {
	data []byte
	pos  int
}

func (lr *loopReader) Read(p []byte) (n int, err error) {
	if len(lr.data) == 0 {
		return 0, errors.New("loopReader: empty data")
	}
	for len(p) > 0 {
		if lr.pos >= len(lr.data) {
			lr.pos = 0
		}
		copied := copy(p, lr.data[lr.pos:])
		lr.pos += copied
		p = p[copied:]
		n += copied
	}
	return n, nil
}

type onceReader struct {
	data []byte
	pos  int
}

func (r *onceReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}
