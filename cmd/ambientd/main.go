package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mellowdesk/ambientd/internal/ambient"
	"github.com/mellowdesk/ambientd/internal/audio"
	"github.com/mellowdesk/ambientd/internal/catalog"
	"github.com/mellowdesk/ambientd/internal/config"
	"github.com/mellowdesk/ambientd/internal/control"
	"github.com/mellowdesk/ambientd/internal/logging"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "config file path")
	flag.Parse()

	appConfig, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logging.Init(logging.Config{
		Level:  appConfig.Logging.Level,
		Format: appConfig.Logging.Format,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	logging.Infof("========================================")
	logging.Infof("        ambientd Starting...            ")
	logging.Infof("========================================")

	logging.Infof("Scanning sound catalog (root=%s)...", appConfig.Catalog.Root)
	cat := catalog.New(appConfig.Catalog.Root, appConfig.Catalog.Extensions)
	categories := cat.Discover(false)
	if len(categories) == 0 {
		logging.Warnf("No sound categories found under %s", appConfig.Catalog.Root)
	}

	logging.Infof("Selecting audio backend...")
	backend, err := audio.NewBackend(appConfig.Audio.Engine.Backend, appConfig.Audio.Engine.SampleRate)
	if err != nil {
		logging.Fatalf("Failed to create audio backend: %v", err)
	}
	defer backend.Close()
	if err := backend.Start(); err != nil {
		logging.Fatalf("Failed to start audio backend: %v", err)
	}
	logging.Infof("Audio backend %s started (sample rate %d)", backend.Name(), appConfig.Audio.Engine.SampleRate)

	decoder := audio.NewDecoder(appConfig.Audio.Engine.SampleRate, nil)
	loader := audio.NewLoader(backend, decoder, &audio.LoaderConfig{
		BatchSize:   appConfig.Audio.Loader.BatchSize,
		BatchDelay:  appConfig.Audio.Loader.BatchDelay(),
		LoadTimeout: appConfig.Audio.Loader.LoadTimeout(),
	})

	specs := make([]ambient.ChannelSpec, 0, len(categories))
	for _, category := range categories {
		chCfg := appConfig.ChannelFor(category.Name)
		specs = append(specs, ambient.ChannelSpec{
			Key:         category.Name,
			DisplayName: chCfg.DisplayName,
			BaseGain:    chCfg.BaseGain,
		})
		logging.Infof("Channel %s: %d files", category.Name, category.FileCount)
	}

	bus := ambient.NewEventBus()
	bus.Subscribe(ambient.EventTypeChannelUnavailable, func(e ambient.Event) {
		ev := e.(*ambient.ChannelUnavailableEvent)
		logging.Warnf("Channel %s is unavailable", ev.Channel)
	})

	mixer := ambient.NewMixer(cat, loader, bus, specs, &ambient.MixerConfig{
		Extensions:      appConfig.Catalog.Extensions,
		FadeDuration:    appConfig.Audio.Rotator.Fade(),
		MinInterval:     appConfig.Audio.Rotator.MinInterval(),
		MaxInterval:     appConfig.Audio.Rotator.MaxInterval(),
		VizBufferLength: appConfig.Audio.Viz.BufferLength,
	})
	defer mixer.Close()
	logging.Infof("Mixer created with %d channels", len(specs))

	server := control.NewServer(mixer, bus, &control.Config{
		Addr:         appConfig.Control.Addr,
		PushInterval: appConfig.Audio.Viz.PushInterval(),
	})
	if err := server.Start(); err != nil {
		logging.Fatalf("Failed to start control server: %v", err)
	}
	defer server.Close()

	logging.Infof("ambientd ready (session %s)", logging.SessionID())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logging.Infof("Received signal %v, shutting down...", sig)
}
