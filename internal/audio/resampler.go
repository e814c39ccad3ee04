package audio

import (
	"fmt"
	"math"
)

// Resampler 采样率转换器接口
// 用于把解码出的帧序列转换为引擎采样率
type Resampler interface {
	// Resample 重采样立体声帧
	// inputRate / outputRate 单位 Hz
	Resample(input [][2]float64, inputRate, outputRate int) ([][2]float64, error)
}

// LinearResampler 线性插值重采样器
// 优点：简单、快速、无依赖
// 缺点：高频可能失真；对解码一次、循环播放的环境音足够
type LinearResampler struct{}

func NewLinearResampler() *LinearResampler {
	return &LinearResampler{}
}

// Resample 使用线性插值进行重采样
//
//	ratio = inputRate / outputRate
//	position = outputIndex * ratio
//	i = floor(position)
//	frac = position - i
//	output[outputIndex] = input[i] * (1 - frac) + input[i+1] * frac
func (r *LinearResampler) Resample(input [][2]float64, inputRate, outputRate int) ([][2]float64, error) {
	if inputRate <= 0 || outputRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: input=%d, output=%d", inputRate, outputRate)
	}
	if len(input) == 0 {
		return [][2]float64{}, nil
	}

	if inputRate == outputRate {
		result := make([][2]float64, len(input))
		copy(result, input)
		return result, nil
	}

	ratio := float64(inputRate) / float64(outputRate)
	outputFrames := int(math.Ceil(float64(len(input)) / ratio))
	output := make([][2]float64, outputFrames)

	for outFrame := 0; outFrame < outputFrames; outFrame++ {
		position := float64(outFrame) * ratio
		inFrame := int(position)
		frac := position - float64(inFrame)

		if inFrame >= len(input)-1 {
			inFrame = len(input) - 2
			if inFrame < 0 {
				inFrame = 0
			}
			frac = 1.0
		}

		next := inFrame + 1
		if next >= len(input) {
			next = inFrame
		}

		for ch := 0; ch < 2; ch++ {
			s1 := input[inFrame][ch]
			s2 := input[next][ch]
			output[outFrame][ch] = s1*(1.0-frac) + s2*frac
		}
	}

	return output, nil
}
