package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mellowdesk/ambientd/internal/catalog"
	"github.com/mellowdesk/ambientd/internal/logging"
)

// ErrLoadTimeout 单个资源加载超过时限
var ErrLoadTimeout = errors.New("asset load timed out")

type loaderImpl struct {
	config  *LoaderConfig
	backend Backend
	decoder UnitDecoder
}

func NewLoader(backend Backend, decoder UnitDecoder, config *LoaderConfig) Loader {
	if config == nil {
		config = DefaultLoaderConfig()
	}
	return &loaderImpl{
		config:  config,
		backend: backend,
		decoder: decoder,
	}
}

func (l *loaderImpl) LoadFirst(ctx context.Context, asset catalog.AssetDescriptor) (PlayableUnit, error) {
	type result struct {
		pcm [][2]float64
		err error
	}

	done := make(chan result, 1)
	go func() {
		pcm, err := l.decoder.DecodeFile(asset.Path, asset.Extension)
		done <- result{pcm: pcm, err: err}
	}()

	timer := time.NewTimer(l.config.LoadTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		// The decode goroutine is abandoned; its eventual result is discarded.
		return nil, fmt.Errorf("%w: %s after %s", ErrLoadTimeout, asset.Name, l.config.LoadTimeout)
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		return l.backend.NewUnit(res.pcm)
	}
}

func (l *loaderImpl) LoadBatches(ctx context.Context, assets []catalog.AssetDescriptor, onLoaded func(catalog.AssetDescriptor, PlayableUnit), onFailed func(catalog.AssetDescriptor, error)) {
	for start := 0; start < len(assets); start += l.config.BatchSize {
		if ctx.Err() != nil {
			return
		}

		end := start + l.config.BatchSize
		if end > len(assets) {
			end = len(assets)
		}
		batch := assets[start:end]

		units := make([]PlayableUnit, len(batch))
		errs := make([]error, len(batch))
		var wg sync.WaitGroup
		for i, asset := range batch {
			wg.Add(1)
			go func(i int, asset catalog.AssetDescriptor) {
				defer wg.Done()
				unit, err := l.LoadFirst(ctx, asset)
				if err != nil {
					if !errors.Is(err, context.Canceled) {
						logging.Warnf("Loader: skipping %s: %v", asset.Name, err)
						errs[i] = err
					}
					return
				}
				units[i] = unit
			}(i, asset)
		}
		wg.Wait()

		for i, unit := range units {
			if unit == nil {
				if errs[i] != nil && onFailed != nil && ctx.Err() == nil {
					onFailed(batch[i], errs[i])
				}
				continue
			}
			if ctx.Err() != nil {
				unit.Close()
				continue
			}
			onLoaded(batch[i], unit)
		}

		if end < len(assets) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(l.config.BatchDelay):
			}
		}
	}
}
