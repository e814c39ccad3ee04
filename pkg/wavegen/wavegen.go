// Package wavegen generates synthetic stereo PCM for diagnostics and test assets.
package wavegen

import (
	"errors"
	"math"
	"math/rand"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Tone returns stereo frames of a sine wave at the given frequency.
// Both channels carry the same signal at 0.6 peak amplitude.
func Tone(freq, seconds float64, sampleRate int) [][2]float64 {
	frames := int(seconds * float64(sampleRate))
	pcm := make([][2]float64, frames)
	for i := range pcm {
		t := float64(i) / float64(sampleRate)
		v := 0.6 * math.Sin(2*math.Pi*freq*t)
		pcm[i] = [2]float64{v, v}
	}
	return pcm
}

// Noisy returns a sine wave with uniform noise mixed in.
// The same seed always produces the same output.
func Noisy(freq, seconds float64, sampleRate int, noise float64, seed int64) [][2]float64 {
	frames := int(seconds * float64(sampleRate))
	pcm := make([][2]float64, frames)
	rng := rand.New(rand.NewSource(seed))
	for i := range pcm {
		t := float64(i) / float64(sampleRate)
		v := 0.4*math.Sin(2*math.Pi*freq*t) + noise*(rng.Float64()*2-1)
		pcm[i] = [2]float64{v, v}
	}
	return pcm
}

// WriteWAV writes stereo frames as a 16-bit PCM WAV file.
// Samples outside [-1, 1] are clipped.
func WriteWAV(path string, pcm [][2]float64, sampleRate int) error {
	if len(pcm) == 0 {
		return errors.New("wavegen: empty input")
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	enc := wav.NewEncoder(out, sampleRate, 16, 2, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: sampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, len(pcm)*2),
	}
	for i, frame := range pcm {
		buf.Data[i*2] = sampleToInt(frame[0])
		buf.Data[i*2+1] = sampleToInt(frame[1])
	}

	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}

func sampleToInt(v float64) int {
	if v > 1.0 {
		v = 1.0
	}
	if v < -1.0 {
		v = -1.0
	}
	return int(v * 32767)
}
