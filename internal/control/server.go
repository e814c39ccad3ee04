package control

import (
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mellowdesk/ambientd/internal/ambient"
	"github.com/mellowdesk/ambientd/internal/logging"
)

// Config 控制服务配置
type Config struct {
	// Addr 监听地址，如 127.0.0.1:8724
	Addr string
	// PushInterval 幅度包络推送间隔
	PushInterval time.Duration
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Addr:         "127.0.0.1:8724",
		PushInterval: 33 * time.Millisecond,
	}
}

// Server WebSocket 控制服务
// 请求应答控制混音器，幅度包络按固定间隔推送
type Server struct {
	config   *Config
	mixer    ambient.Mixer
	bus      ambient.EventBus
	upgrader websocket.Upgrader

	listener   net.Listener
	httpServer *http.Server

	mu     sync.Mutex
	conns  map[*connection]struct{}
	closed bool

	// pushMu 串行化快照读取与推送
	// 事件处理各自运行在独立 goroutine 上，持锁期间读快照保证后推送的不早于先推送的
	pushMu sync.Mutex
}

// connection 单个客户端连接，写入由 writeMu 串行化
type connection struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	done    chan struct{}
}

func (c *connection) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// NewServer 创建控制服务
// bus 可为 nil，此时不推送通道状态快照
func NewServer(mixer ambient.Mixer, bus ambient.EventBus, config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	return &Server{
		config: config,
		mixer:  mixer,
		bus:    bus,
		upgrader: websocket.Upgrader{
			// 本地控制服务，不校验来源
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[*connection]struct{}),
	}
}

// Start 开始监听，返回时端口已就绪
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	s.httpServer = &http.Server{Handler: mux}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Errorf("Control: serve failed: %v", err)
		}
	}()

	if s.bus != nil {
		onChange := func(ambient.Event) { s.broadcastChannels() }
		s.bus.Subscribe(ambient.EventTypeChannelStateChanged, onChange)
		s.bus.Subscribe(ambient.EventTypeRotationCompleted, onChange)
		s.bus.Subscribe(ambient.EventTypeChannelUnavailable, onChange)
	}

	logging.Infof("Control: listening on %s", listener.Addr())
	return nil
}

// broadcastChannels 向所有客户端推送通道快照
func (s *Server) broadcastChannels() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	conns := make([]*connection, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	if len(conns) == 0 {
		return
	}

	s.pushMu.Lock()
	defer s.pushMu.Unlock()
	snapshot := s.mixer.Channels()
	for _, c := range conns {
		if err := c.writeJSON(Response{Type: TypeChannels, Channels: snapshot}); err != nil {
			logging.Warnf("Control: push channels failed: %v", err)
		}
	}
}

// Addr 实际监听地址
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.config.Addr
	}
	return s.listener.Addr().String()
}

func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conns := make([]*connection, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.conn.Close()
	}
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warnf("Control: upgrade failed: %v", err)
		return
	}

	c := &connection{conn: ws, done: make(chan struct{})}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ws.Close()
		return
	}
	s.conns[c] = struct{}{}
	s.mu.Unlock()

	logging.Infof("Control: client connected from %s", ws.RemoteAddr())

	go s.pushLoop(c)
	s.readLoop(c)

	close(c.done)
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	ws.Close()
	logging.Infof("Control: client disconnected from %s", ws.RemoteAddr())
}

func (s *Server) readLoop(c *connection) {
	for {
		var req Request
		if err := c.conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Warnf("Control: read failed: %v", err)
			}
			return
		}
		if err := s.handleRequest(c, req); err != nil {
			return
		}
	}
}

func (s *Server) handleRequest(c *connection, req Request) error {
	switch req.Action {
	case ActionSetVolume:
		if err := s.mixer.SetChannelVolume(req.Channel, req.Volume); err != nil {
			return c.writeJSON(Response{Type: TypeError, ID: req.ID, Error: err.Error()})
		}
		return c.writeJSON(Response{Type: TypeAck, ID: req.ID})

	case ActionListChannels:
		return c.writeJSON(Response{Type: TypeChannels, ID: req.ID, Channels: s.mixer.Channels()})

	case ActionRefresh:
		if err := s.mixer.Refresh(); err != nil {
			return c.writeJSON(Response{Type: TypeError, ID: req.ID, Error: err.Error()})
		}
		return c.writeJSON(Response{Type: TypeAck, ID: req.ID})

	default:
		return c.writeJSON(Response{Type: TypeError, ID: req.ID, Error: "unknown action: " + req.Action})
	}
}

// pushLoop 按固定间隔推送幅度包络
// 无活跃通道时只在转入静默的那一刻推送一次 no_signal
func (s *Server) pushLoop(c *connection) {
	ticker := time.NewTicker(s.config.PushInterval)
	defer ticker.Stop()

	active := true
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
		}

		buf := s.mixer.SampleCombinedAmplitude()
		if buf == nil {
			if active {
				active = false
				if err := c.writeJSON(Response{Type: TypeNoSignal}); err != nil {
					return
				}
			}
			continue
		}
		active = true
		if err := c.writeJSON(Response{Type: TypeAmplitude, Amplitude: buf}); err != nil {
			return
		}
	}
}
