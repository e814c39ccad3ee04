package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gordonklaus/portaudio"

	"github.com/mellowdesk/ambientd/internal/audio"
)

func main() {
	probe := flag.Bool("probe", false, "Probe the playback backend ambientd would select")
	sampleRate := flag.Int("rate", 44100, "Sample rate for the probe")
	flag.Parse()

	fmt.Println("=== Audio Output Diagnostics ===")
	fmt.Println()

	if *probe {
		runProbe(*sampleRate)
		return
	}

	if err := portaudio.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize PortAudio: %v\n", err)
		os.Exit(1)
	}
	defer portaudio.Terminate()

	hostAPIs, err := portaudio.HostApis()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get host APIs: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Found %d Host API(s):\n", len(hostAPIs))
	for i, api := range hostAPIs {
		fmt.Printf("  [%d] %s (devices: %d)\n", i, api.Name, len(api.Devices))
	}
	fmt.Println()

	defaultOutput, err := portaudio.DefaultOutputDevice()
	if err != nil {
		fmt.Printf("Default Output Device: (error: %v)\n", err)
	} else {
		fmt.Printf("Default Output Device: %s\n", defaultOutput.Name)
	}
	fmt.Println()

	devices, err := portaudio.Devices()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list devices: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Output-capable devices:\n")
	for i, dev := range devices {
		if dev.MaxOutputChannels == 0 {
			continue
		}
		fmt.Printf("  [%d] %s (channels: %d, default rate: %.0fHz, latency: %v)\n",
			i, dev.Name, dev.MaxOutputChannels, dev.DefaultSampleRate, dev.DefaultLowOutputLatency)
	}
}

// runProbe 按 ambientd 的启动顺序探测后端：portaudio 优先，失败回退 oto
func runProbe(rate int) {
	backend, err := audio.Probe(rate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "No playback backend available: %v\n", err)
		os.Exit(1)
	}
	defer backend.Close()

	if err := backend.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Backend %s failed to start: %v\n", backend.Name(), err)
		os.Exit(1)
	}
	fmt.Printf("Selected backend: %s (sample rate %d)\n", backend.Name(), rate)
}
