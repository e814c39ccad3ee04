package main

import (
	"flag"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mellowdesk/ambientd/internal/audio"
	"github.com/mellowdesk/ambientd/pkg/wavegen"
)

var (
	file     = flag.String("file", "", "要播放的音频文件（wav/mp3/ogg/flac），留空生成正弦波")
	backend  = flag.String("backend", "", "后端：portaudio / oto，留空自动探测")
	duration = flag.Float64("duration", 2.0, "生成音频的持续时间（秒）")
	fade     = flag.Float64("fade", 2.0, "交叉淡入淡出时长（秒）")
	help     = flag.Bool("h", false, "显示帮助信息")
)

func main() {
	flag.Parse()

	if *help {
		flag.Usage()
		return
	}

	fmt.Println("=== 混音后端验证工具 ===")
	fmt.Println()

	const sampleRate = 44100
	b, err := audio.NewBackend(*backend, sampleRate)
	if err != nil {
		fmt.Printf("创建后端失败: %v\n", err)
		return
	}
	defer b.Close()
	if err := b.Start(); err != nil {
		fmt.Printf("启动后端失败: %v\n", err)
		return
	}
	fmt.Printf("后端: %s (采样率 %dHz)\n", b.Name(), sampleRate)

	var first [][2]float64
	if *file != "" {
		fmt.Printf("1. 解码 %s ...\n", *file)
		decoder := audio.NewDecoder(sampleRate, nil)
		ext := strings.TrimPrefix(filepath.Ext(*file), ".")
		first, err = decoder.DecodeFile(*file, ext)
		if err != nil {
			fmt.Printf("解码失败: %v\n", err)
			return
		}
		fmt.Printf("   %d 帧 (%.1f 秒)\n", len(first), float64(len(first))/sampleRate)
	} else {
		fmt.Println("1. 生成 440Hz 测试音频...")
		first = wavegen.Tone(440, *duration, sampleRate)
	}
	second := wavegen.Tone(330, *duration, sampleRate)

	u1, err := b.NewUnit(first)
	if err != nil {
		fmt.Printf("创建播放单元失败: %v\n", err)
		return
	}
	defer u1.Close()
	u2, err := b.NewUnit(second)
	if err != nil {
		fmt.Printf("创建播放单元失败: %v\n", err)
		return
	}
	defer u2.Close()

	fmt.Println("2. 循环播放第一个单元 (3 秒)...")
	u1.SetGain(0.8)
	u1.Play(true)
	time.Sleep(3 * time.Second)

	fadeDur := time.Duration(*fade * float64(time.Second))
	fmt.Printf("3. 交叉切换到 330Hz (%.1f 秒)...\n", *fade)
	u1.FadeTo(0, fadeDur)
	u2.SetGain(0)
	u2.Play(true)
	u2.FadeTo(0.8, fadeDur)
	time.Sleep(fadeDur + 2*time.Second)
	u1.Stop()

	fmt.Println("4. 淡出...")
	u2.FadeTo(0, fadeDur)
	time.Sleep(fadeDur)
	u2.Stop()

	fmt.Println()
	fmt.Println("完成!")
}
