package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mellowdesk/ambientd/pkg/wavegen"
)

// 生成一棵可供 ambientd 使用的测试音频目录树
func main() {
	root := flag.String("root", "./sounds", "输出根目录")
	seconds := flag.Float64("seconds", 3, "每个文件时长（秒）")
	count := flag.Int("count", 3, "每个分类的文件数")
	flag.Parse()

	categories := []struct {
		name string
		freq float64
	}{
		{"rain", 420},
		{"thunderstorm", 80},
		{"cafe", 260},
		{"fireplace", 140},
		{"wind", 190},
		{"waves", 110},
	}

	const sampleRate = 44100
	for _, category := range categories {
		dir := filepath.Join(*root, category.name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "创建目录失败: %v\n", err)
			os.Exit(1)
		}
		for i := 1; i <= *count; i++ {
			path := filepath.Join(dir, fmt.Sprintf("%s_%02d.wav", category.name, i))
			freq := category.freq * (1 + 0.12*float64(i-1))
			pcm := wavegen.Noisy(freq, *seconds, sampleRate, 0.1, int64(freq))
			if err := wavegen.WriteWAV(path, pcm, sampleRate); err != nil {
				fmt.Fprintf(os.Stderr, "生成 %s 失败: %v\n", path, err)
				os.Exit(1)
			}
			fmt.Printf("生成 %s (%.0fHz, %.1f秒)\n", path, freq, *seconds)
		}
	}
	fmt.Println("完成!")
}
