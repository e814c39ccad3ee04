package audio

import (
	"context"
	"time"

	"github.com/mellowdesk/ambientd/internal/catalog"
)

// Loader 资源加载器，负责把目录条目变为可播放单元
// 首个资源优先加载以尽快解除播放阻塞，其余分批后台加载
type Loader interface {
	// LoadFirst 加载单个资源，受单资源超时约束
	LoadFirst(ctx context.Context, asset catalog.AssetDescriptor) (PlayableUnit, error)
	// LoadBatches 分批加载剩余资源，阻塞直到全部批次完成或 ctx 取消
	// 批内失败互不影响（all-settled），失败资源记录日志后丢弃，不重试
	// onLoaded 在每个资源成功后调用；onFailed 在每个资源失败后调用，可为 nil
	LoadBatches(ctx context.Context, assets []catalog.AssetDescriptor, onLoaded func(catalog.AssetDescriptor, PlayableUnit), onFailed func(catalog.AssetDescriptor, error))
}

// LoaderConfig Loader 配置
type LoaderConfig struct {
	BatchSize   int
	BatchDelay  time.Duration
	LoadTimeout time.Duration
}

// DefaultLoaderConfig 默认配置：批大小 3，批间隔 500ms，单资源超时 10s
func DefaultLoaderConfig() *LoaderConfig {
	return &LoaderConfig{
		BatchSize:   3,
		BatchDelay:  500 * time.Millisecond,
		LoadTimeout: 10 * time.Second,
	}
}

// UnitDecoder 供 Loader 使用的最小解码接口
type UnitDecoder interface {
	DecodeFile(path, extension string) ([][2]float64, error)
}
