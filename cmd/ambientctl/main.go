package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chzyer/readline"
	"github.com/gorilla/websocket"

	"github.com/mellowdesk/ambientd/internal/control"
)

// ambientctl 交互式控制台，通过 WebSocket 控制本机 ambientd
func main() {
	addr := flag.String("addr", "127.0.0.1:8724", "ambientd control address")
	flag.Parse()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+*addr+"/ws", nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接 %s: %v\n", *addr, err)
		os.Exit(1)
	}
	defer conn.Close()

	replies := make(chan control.Response, 16)
	go receive(conn, replies)

	rl, err := readline.NewEx(&readline.Config{
		Prompt: "ambient> ",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("set"),
			readline.PcItem("list"),
			readline.PcItem("viz"),
			readline.PcItem("refresh"),
			readline.PcItem("help"),
			readline.PcItem("quit"),
		),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline 初始化失败: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Println("=== ambientctl: 已连接", *addr, "===")
	fmt.Println("输入 help 查看命令")

	for {
		line, err := rl.Readline()
		if err != nil {
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "quit", "exit":
			return
		case "help":
			printHelp()
		case "set":
			if len(fields) != 3 {
				fmt.Println("用法: set <通道> <音量 0-100>")
				continue
			}
			volume, err := strconv.ParseFloat(fields[2], 64)
			if err != nil {
				fmt.Println("音量必须是数字:", fields[2])
				continue
			}
			send(conn, control.Request{
				Action:  control.ActionSetVolume,
				ID:      nextID(),
				Channel: fields[1],
				Volume:  volume,
			}, replies)
		case "list":
			send(conn, control.Request{Action: control.ActionListChannels, ID: nextID()}, replies)
		case "viz":
			showViz()
		case "refresh":
			send(conn, control.Request{Action: control.ActionRefresh, ID: nextID()}, replies)
		default:
			fmt.Println("未知命令:", fields[0])
		}
	}
}

var idCounter atomic.Uint64

func nextID() string {
	return fmt.Sprintf("ctl-%d", idCounter.Add(1))
}

// latestFrame 最近一帧幅度包络，nil 表示无信号
var (
	frameMu     sync.Mutex
	latestFrame []byte
)

// receive 只把带请求 ID 的应答送入 replies
// 幅度推送存入 latestFrame，其余服务端主动推送丢弃
func receive(conn *websocket.Conn, replies chan<- control.Response) {
	for {
		var resp control.Response
		if err := conn.ReadJSON(&resp); err != nil {
			close(replies)
			return
		}
		switch {
		case resp.Type == control.TypeAmplitude:
			frameMu.Lock()
			latestFrame = resp.Amplitude
			frameMu.Unlock()
		case resp.Type == control.TypeNoSignal:
			frameMu.Lock()
			latestFrame = nil
			frameMu.Unlock()
		case resp.ID != "":
			replies <- resp
		}
	}
}

// showViz 连续一秒渲染幅度包络为文本条
func showViz() {
	const frames = 10
	for i := 0; i < frames; i++ {
		frameMu.Lock()
		frame := latestFrame
		frameMu.Unlock()
		if frame == nil {
			fmt.Println("(无信号)")
		} else {
			fmt.Println(renderBars(frame, 64))
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// renderBars 把幅度包络压缩成 width 列的字符条，空帧返回空串
func renderBars(frame []byte, width int) string {
	if len(frame) == 0 || width <= 0 {
		return ""
	}
	levels := []byte(" .:-=+*#%@")
	if len(frame) < width {
		width = len(frame)
	}
	var sb strings.Builder
	bucket := len(frame) / width
	for i := 0; i < width; i++ {
		sum := 0
		for j := i * bucket; j < (i+1)*bucket; j++ {
			sum += int(frame[j])
		}
		avg := sum / bucket
		sb.WriteByte(levels[avg*(len(levels)-1)/255])
	}
	return sb.String()
}

func send(conn *websocket.Conn, req control.Request, replies <-chan control.Response) {
	if err := conn.WriteJSON(req); err != nil {
		fmt.Println("发送失败:", err)
		return
	}
	resp, ok := <-replies
	if !ok {
		fmt.Println("连接已断开")
		os.Exit(1)
	}

	switch resp.Type {
	case control.TypeAck:
		fmt.Println("OK")
	case control.TypeError:
		fmt.Println("错误:", resp.Error)
	case control.TypeChannels:
		fmt.Printf("%-14s %-14s %-8s %-8s %-18s %s\n", "KEY", "NAME", "VOLUME", "PLAYING", "STATE", "ASSET")
		for _, ch := range resp.Channels {
			fmt.Printf("%-14s %-14s %-8.0f %-8v %-18s %s\n",
				ch.Key, ch.DisplayName, ch.Volume, ch.Playing, ch.State, ch.CurrentAsset)
		}
	}
}

func printHelp() {
	fmt.Println("set <通道> <音量>   设置通道音量 (0-100，0 停止播放)")
	fmt.Println("list                列出所有通道状态")
	fmt.Println("viz                 实时显示幅度包络一秒")
	fmt.Println("refresh             重新扫描资源目录")
	fmt.Println("quit                退出")
}
