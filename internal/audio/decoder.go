package audio

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/faiface/beep"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/vorbis"
	"github.com/faiface/beep/wav"
)

// ErrUnsupportedFormat 目录识别但解码器不支持的格式
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Decoder 把单个音频文件解码为引擎采样率的立体声帧
type Decoder struct {
	sampleRate int
	resampler  Resampler
}

func NewDecoder(sampleRate int, resampler Resampler) *Decoder {
	if resampler == nil {
		resampler = NewLinearResampler()
	}
	return &Decoder{sampleRate: sampleRate, resampler: resampler}
}

// DecodeFile 按扩展名选择解码器，整体解码后重采样到引擎采样率
func (d *Decoder) DecodeFile(path, extension string) ([][2]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch strings.ToLower(extension) {
	case "wav":
		streamer, format, err = wav.Decode(f)
	case "mp3":
		streamer, format, err = mp3.Decode(f)
	case "ogg":
		streamer, format, err = vorbis.Decode(f)
	case "flac":
		streamer, format, err = flac.Decode(f)
	default:
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, extension)
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	defer streamer.Close()

	pcm := make([][2]float64, 0, streamer.Len())
	buf := make([][2]float64, 2048)
	for {
		n, ok := streamer.Stream(buf)
		pcm = append(pcm, buf[:n]...)
		if !ok {
			break
		}
	}
	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("stream %s: %w", path, err)
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("decode %s: empty audio", path)
	}

	if int(format.SampleRate) != d.sampleRate {
		resampled, err := d.resampler.Resample(pcm, int(format.SampleRate), d.sampleRate)
		if err != nil {
			return nil, fmt.Errorf("resample %s: %w", path, err)
		}
		pcm = resampled
	}
	return pcm, nil
}
