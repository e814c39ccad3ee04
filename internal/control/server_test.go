package control

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mellowdesk/ambientd/internal/ambient"
)

// mockMixer 记录调用的混音器替身
type mockMixer struct {
	mu        sync.Mutex
	volumes   map[string]float64
	refreshes int
	amplitude []byte
	channels  []ambient.ChannelInfo
	volumeErr error
}

func newMockMixer() *mockMixer {
	return &mockMixer{
		volumes: make(map[string]float64),
		channels: []ambient.ChannelInfo{
			{Key: "rain", DisplayName: "Rain", Volume: 50, Playing: true, State: "Ready"},
			{Key: "cafe", DisplayName: "Cafe", State: "Unloaded"},
		},
	}
}

func (m *mockMixer) SetChannelVolume(key string, percent float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.volumeErr != nil {
		return m.volumeErr
	}
	m.volumes[key] = percent
	return nil
}

func (m *mockMixer) SampleCombinedAmplitude() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.amplitude
}

func (m *mockMixer) Channels() []ambient.ChannelInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.channels
}

func (m *mockMixer) Refresh() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshes++
	return nil
}

func (m *mockMixer) Close() error { return nil }

func (m *mockMixer) setChannels(channels []ambient.ChannelInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels = channels
}

func (m *mockMixer) setAmplitude(buf []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.amplitude = buf
}

func (m *mockMixer) volume(key string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.volumes[key]
	return v, ok
}

func startTestServer(t *testing.T, mixer ambient.Mixer, bus ambient.EventBus) (*Server, *websocket.Conn) {
	t.Helper()
	s := NewServer(mixer, bus, &Config{
		Addr:         "127.0.0.1:0",
		PushInterval: 10 * time.Millisecond,
	})
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+s.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return s, conn
}

// readUntil 跳过推送消息，读到指定类型为止
func readUntil(t *testing.T, conn *websocket.Conn, wantType string) Response {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var resp Response
		if err := conn.ReadJSON(&resp); err != nil {
			t.Fatalf("read failed waiting for %s: %v", wantType, err)
		}
		if resp.Type == wantType {
			return resp
		}
	}
}

func TestSetVolumeRoundTrip(t *testing.T) {
	mixer := newMockMixer()
	_, conn := startTestServer(t, mixer, nil)

	req := Request{Action: ActionSetVolume, ID: "r1", Channel: "rain", Volume: 65}
	if err := conn.WriteJSON(req); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	resp := readUntil(t, conn, TypeAck)
	if resp.ID != "r1" {
		t.Errorf("expected id r1, got %s", resp.ID)
	}
	if v, ok := mixer.volume("rain"); !ok || v != 65 {
		t.Errorf("expected volume 65 applied, got %v (%v)", v, ok)
	}
}

func TestSetVolumeError(t *testing.T) {
	mixer := newMockMixer()
	mixer.volumeErr = errors.New("unknown channel: whale")
	_, conn := startTestServer(t, mixer, nil)

	conn.WriteJSON(Request{Action: ActionSetVolume, ID: "r2", Channel: "whale", Volume: 10})

	resp := readUntil(t, conn, TypeError)
	if resp.ID != "r2" || resp.Error == "" {
		t.Errorf("expected error response for r2, got %+v", resp)
	}
}

func TestListChannels(t *testing.T) {
	mixer := newMockMixer()
	_, conn := startTestServer(t, mixer, nil)

	conn.WriteJSON(Request{Action: ActionListChannels, ID: "r3"})

	resp := readUntil(t, conn, TypeChannels)
	if len(resp.Channels) != 2 {
		t.Fatalf("expected 2 channels, got %d", len(resp.Channels))
	}
	if resp.Channels[0].Key != "rain" || !resp.Channels[0].Playing {
		t.Errorf("unexpected first channel: %+v", resp.Channels[0])
	}
}

func TestRefresh(t *testing.T) {
	mixer := newMockMixer()
	_, conn := startTestServer(t, mixer, nil)

	conn.WriteJSON(Request{Action: ActionRefresh, ID: "r4"})

	readUntil(t, conn, TypeAck)
	mixer.mu.Lock()
	refreshes := mixer.refreshes
	mixer.mu.Unlock()
	if refreshes != 1 {
		t.Errorf("expected 1 refresh, got %d", refreshes)
	}
}

func TestUnknownAction(t *testing.T) {
	mixer := newMockMixer()
	_, conn := startTestServer(t, mixer, nil)

	conn.WriteJSON(Request{Action: "dance", ID: "r5"})

	resp := readUntil(t, conn, TypeError)
	if resp.ID != "r5" {
		t.Errorf("expected id r5, got %s", resp.ID)
	}
}

func TestAmplitudePushAndSilence(t *testing.T) {
	mixer := newMockMixer()
	buf := make([]byte, 256)
	for i := range buf {
		buf[i] = byte(i)
	}
	mixer.setAmplitude(buf)
	_, conn := startTestServer(t, mixer, nil)

	resp := readUntil(t, conn, TypeAmplitude)
	if len(resp.Amplitude) != 256 {
		t.Fatalf("expected 256 bytes, got %d", len(resp.Amplitude))
	}
	if resp.Amplitude[10] != 10 {
		t.Errorf("unexpected amplitude content: %d", resp.Amplitude[10])
	}

	// 转入静默后推送一次 no_signal
	mixer.setAmplitude(nil)
	readUntil(t, conn, TypeNoSignal)
}

func TestStateChangePushesChannels(t *testing.T) {
	mixer := newMockMixer()
	bus := ambient.NewEventBus()
	_, conn := startTestServer(t, mixer, bus)

	bus.Publish(ambient.NewChannelStateChangedEvent("rain", ambient.LoadStateUnloaded, ambient.LoadStateLoadingFirst))

	resp := readUntil(t, conn, TypeChannels)
	if len(resp.Channels) != 2 || resp.Channels[0].Key != "rain" {
		t.Errorf("unexpected channels push: %+v", resp.Channels)
	}
}

func TestRapidStateChangesPushLatestSnapshot(t *testing.T) {
	mixer := newMockMixer()
	bus := ambient.NewEventBus()
	_, conn := startTestServer(t, mixer, bus)

	// 连续两次状态变化，快照在推送锁内读取，最后一条推送必然反映较新的状态
	bus.Publish(ambient.NewChannelStateChangedEvent("rain", ambient.LoadStateUnloaded, ambient.LoadStateLoadingFirst))
	mixer.setChannels([]ambient.ChannelInfo{
		{Key: "rain", DisplayName: "Rain", Volume: 80, Playing: true, State: "Ready"},
		{Key: "cafe", DisplayName: "Cafe", State: "Unloaded"},
	})
	bus.Publish(ambient.NewChannelStateChangedEvent("rain", ambient.LoadStateLoadingFirst, ambient.LoadStateReady))

	readUntil(t, conn, TypeChannels)
	second := readUntil(t, conn, TypeChannels)
	if second.Channels[0].Volume != 80 {
		t.Errorf("expected last push to carry the newest snapshot, got volume %.0f", second.Channels[0].Volume)
	}
}
