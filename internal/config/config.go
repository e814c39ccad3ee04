package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

const DefaultPath = "config/ambientd.json"

type AppConfig struct {
	Logging  LoggingConfig            `json:"logging"`
	Catalog  CatalogConfig            `json:"catalog"`
	Audio    AudioConfig              `json:"audio"`
	Channels map[string]ChannelConfig `json:"channels"`
	Control  ControlConfig            `json:"control"`
}

type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

type CatalogConfig struct {
	Root       string   `json:"root"`
	Extensions []string `json:"extensions"`
}

type AudioConfig struct {
	Engine  EngineConfig  `json:"engine"`
	Loader  LoaderConfig  `json:"loader"`
	Rotator RotatorConfig `json:"rotator"`
	Viz     VizConfig     `json:"viz"`
}

type EngineConfig struct {
	SampleRate int `json:"sample_rate"`
	// Backend 为空时启动期探测，可选 "portaudio" / "oto"
	Backend string `json:"backend"`
}

type LoaderConfig struct {
	BatchSize     int `json:"batch_size"`
	BatchDelayMs  int `json:"batch_delay_ms"`
	LoadTimeoutMs int `json:"load_timeout_ms"`
}

type RotatorConfig struct {
	MinIntervalMs int `json:"min_interval_ms"`
	MaxIntervalMs int `json:"max_interval_ms"`
	FadeMs        int `json:"fade_ms"`
}

type VizConfig struct {
	BufferLength   int `json:"buffer_length"`
	PushIntervalMs int `json:"push_interval_ms"`
}

type ChannelConfig struct {
	DisplayName string  `json:"display_name"`
	BaseGain    float64 `json:"base_gain"`
}

type ControlConfig struct {
	Addr string `json:"addr"`
}

func (c LoaderConfig) BatchDelay() time.Duration  { return time.Duration(c.BatchDelayMs) * time.Millisecond }
func (c LoaderConfig) LoadTimeout() time.Duration { return time.Duration(c.LoadTimeoutMs) * time.Millisecond }

func (c RotatorConfig) MinInterval() time.Duration {
	return time.Duration(c.MinIntervalMs) * time.Millisecond
}

func (c RotatorConfig) MaxInterval() time.Duration {
	return time.Duration(c.MaxIntervalMs) * time.Millisecond
}

func (c RotatorConfig) Fade() time.Duration { return time.Duration(c.FadeMs) * time.Millisecond }

func (c VizConfig) PushInterval() time.Duration {
	return time.Duration(c.PushIntervalMs) * time.Millisecond
}

func DefaultConfig() *AppConfig {
	return &AppConfig{
		Logging: LoggingConfig{},
		Catalog: CatalogConfig{
			Root:       "./sounds",
			Extensions: []string{"mp3", "wav", "ogg", "m4a", "aac", "flac", "wma"},
		},
		Audio: AudioConfig{
			Engine: EngineConfig{
				SampleRate: 44100,
			},
			Loader: LoaderConfig{
				BatchSize:     3,
				BatchDelayMs:  500,
				LoadTimeoutMs: 10000,
			},
			Rotator: RotatorConfig{
				MinIntervalMs: 3 * 60 * 1000,
				MaxIntervalMs: 8 * 60 * 1000,
				FadeMs:        2000,
			},
			Viz: VizConfig{
				BufferLength:   256,
				PushIntervalMs: 33,
			},
		},
		Channels: map[string]ChannelConfig{
			"rain":         {DisplayName: "Rain", BaseGain: 0.8},
			"thunderstorm": {DisplayName: "Thunderstorm", BaseGain: 1.0},
			"cafe":         {DisplayName: "Cafe", BaseGain: 0.5},
			"fireplace":    {DisplayName: "Fireplace", BaseGain: 0.7},
			"wind":         {DisplayName: "Wind", BaseGain: 0.7},
			"waves":        {DisplayName: "Waves", BaseGain: 0.75},
		},
		Control: ControlConfig{
			Addr: "127.0.0.1:8724",
		},
	}
}

// DefaultBaseGain 未配置的分类使用的基准增益
const DefaultBaseGain = 0.7

// ChannelFor 返回某个分类的配置，未配置时使用默认值
func (c *AppConfig) ChannelFor(name string) ChannelConfig {
	if cfg, ok := c.Channels[name]; ok {
		if cfg.DisplayName == "" {
			cfg.DisplayName = name
		}
		return cfg
	}
	return ChannelConfig{DisplayName: name, BaseGain: DefaultBaseGain}
}

func Load(path string) (*AppConfig, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultPath
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.ApplyEnv()
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

func (c *AppConfig) ApplyEnv() {
	if level := strings.TrimSpace(os.Getenv("LOG_LEVEL")); level != "" {
		c.Logging.Level = level
	}
	if format := strings.TrimSpace(os.Getenv("LOG_FORMAT")); format != "" {
		c.Logging.Format = format
	}
	if root := strings.TrimSpace(os.Getenv("AMBIENT_SOUND_ROOT")); root != "" {
		c.Catalog.Root = root
	}
	if addr := strings.TrimSpace(os.Getenv("AMBIENT_CONTROL_ADDR")); addr != "" {
		c.Control.Addr = addr
	}
}

func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.Catalog.Root) == "" {
		return errors.New("catalog.root must not be empty")
	}
	if len(c.Catalog.Extensions) == 0 {
		return errors.New("catalog.extensions must not be empty")
	}
	if c.Audio.Engine.SampleRate <= 0 {
		return errors.New("audio.engine.sample_rate must be positive")
	}
	switch strings.ToLower(strings.TrimSpace(c.Audio.Engine.Backend)) {
	case "", "portaudio", "oto":
	default:
		return fmt.Errorf("invalid audio.engine.backend: %s", c.Audio.Engine.Backend)
	}
	if c.Audio.Loader.BatchSize <= 0 {
		return errors.New("audio.loader.batch_size must be positive")
	}
	if c.Audio.Loader.BatchDelayMs < 0 {
		return errors.New("audio.loader.batch_delay_ms must be non-negative")
	}
	if c.Audio.Loader.LoadTimeoutMs <= 0 {
		return errors.New("audio.loader.load_timeout_ms must be positive")
	}
	if c.Audio.Rotator.MinIntervalMs <= 0 {
		return errors.New("audio.rotator.min_interval_ms must be positive")
	}
	if c.Audio.Rotator.MaxIntervalMs < c.Audio.Rotator.MinIntervalMs {
		return errors.New("audio.rotator.max_interval_ms must be >= min_interval_ms")
	}
	if c.Audio.Rotator.FadeMs <= 0 {
		return errors.New("audio.rotator.fade_ms must be positive")
	}
	if c.Audio.Viz.BufferLength <= 0 {
		return errors.New("audio.viz.buffer_length must be positive")
	}
	if c.Audio.Viz.PushIntervalMs <= 0 {
		return errors.New("audio.viz.push_interval_ms must be positive")
	}

	for name, ch := range c.Channels {
		if ch.BaseGain < 0 || ch.BaseGain > 1 {
			return fmt.Errorf("channel %s: base_gain must be in [0,1]", name)
		}
	}

	return nil
}
