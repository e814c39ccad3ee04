package audio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mellowdesk/ambientd/internal/catalog"
)

func testAsset(name string) catalog.AssetDescriptor {
	return catalog.AssetDescriptor{
		Name:      name,
		Path:      "/sounds/rain/" + name,
		Extension: "mp3",
	}
}

func TestLoadFirstSuccess(t *testing.T) {
	backend := &mockBackend{}
	decoder := newMockDecoder(128)
	loader := NewLoader(backend, decoder, nil)

	unit, err := loader.LoadFirst(context.Background(), testAsset("light.mp3"))
	if err != nil {
		t.Fatalf("LoadFirst failed: %v", err)
	}
	if unit == nil {
		t.Fatal("expected a playable unit")
	}
	if len(backend.units) != 1 {
		t.Errorf("expected 1 unit created, got %d", len(backend.units))
	}
	if len(backend.units[0].pcm) != 128 {
		t.Errorf("expected 128 frames, got %d", len(backend.units[0].pcm))
	}
}

func TestLoadFirstTimeout(t *testing.T) {
	backend := &mockBackend{}
	decoder := newMockDecoder(16)
	decoder.delay = 200 * time.Millisecond
	loader := NewLoader(backend, decoder, &LoaderConfig{
		BatchSize:   3,
		BatchDelay:  time.Millisecond,
		LoadTimeout: 20 * time.Millisecond,
	})

	_, err := loader.LoadFirst(context.Background(), testAsset("slow.mp3"))
	if !errors.Is(err, ErrLoadTimeout) {
		t.Errorf("expected ErrLoadTimeout, got %v", err)
	}
}

func TestLoadFirstDecodeError(t *testing.T) {
	backend := &mockBackend{}
	decoder := newMockDecoder(16)
	asset := testAsset("broken.mp3")
	decoder.fail[asset.Path] = errors.New("corrupt stream")
	loader := NewLoader(backend, decoder, nil)

	_, err := loader.LoadFirst(context.Background(), asset)
	if err == nil {
		t.Fatal("expected decode error")
	}
	if len(backend.units) != 0 {
		t.Errorf("expected no units on failure, got %d", len(backend.units))
	}
}

func TestLoadFirstContextCancelled(t *testing.T) {
	backend := &mockBackend{}
	decoder := newMockDecoder(16)
	decoder.delay = 200 * time.Millisecond
	loader := NewLoader(backend, decoder, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := loader.LoadFirst(ctx, testAsset("a.mp3"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestLoadBatchesAllSettled(t *testing.T) {
	backend := &mockBackend{}
	decoder := newMockDecoder(16)
	assets := []catalog.AssetDescriptor{
		testAsset("a.mp3"), testAsset("b.mp3"), testAsset("c.mp3"),
		testAsset("d.mp3"), testAsset("e.mp3"),
	}
	// 同批内的失败不应影响其余资源
	decoder.fail[assets[1].Path] = errors.New("corrupt stream")
	decoder.fail[assets[3].Path] = errors.New("corrupt stream")

	loader := NewLoader(backend, decoder, &LoaderConfig{
		BatchSize:   2,
		BatchDelay:  time.Millisecond,
		LoadTimeout: time.Second,
	})

	var loaded, failed []string
	loader.LoadBatches(context.Background(), assets, func(asset catalog.AssetDescriptor, unit PlayableUnit) {
		if unit == nil {
			t.Errorf("nil unit delivered for %s", asset.Name)
		}
		loaded = append(loaded, asset.Name)
	}, func(asset catalog.AssetDescriptor, err error) {
		if err == nil {
			t.Errorf("nil error reported for %s", asset.Name)
		}
		failed = append(failed, asset.Name)
	})

	wantFailed := []string{"b.mp3", "d.mp3"}
	if len(failed) != len(wantFailed) {
		t.Fatalf("expected %d failures, got %d (%v)", len(wantFailed), len(failed), failed)
	}
	for i, name := range wantFailed {
		if failed[i] != name {
			t.Errorf("failed[%d] = %s, want %s", i, failed[i], name)
		}
	}

	want := []string{"a.mp3", "c.mp3", "e.mp3"}
	if len(loaded) != len(want) {
		t.Fatalf("expected %d loaded assets, got %d (%v)", len(want), len(loaded), loaded)
	}
	for i, name := range want {
		if loaded[i] != name {
			t.Errorf("loaded[%d] = %s, want %s", i, loaded[i], name)
		}
	}
	if decoder.callCount() != len(assets) {
		t.Errorf("expected %d decode attempts, got %d", len(assets), decoder.callCount())
	}
}

func TestLoadBatchesCancelled(t *testing.T) {
	backend := &mockBackend{}
	decoder := newMockDecoder(16)
	decoder.delay = 20 * time.Millisecond
	assets := []catalog.AssetDescriptor{
		testAsset("a.mp3"), testAsset("b.mp3"),
		testAsset("c.mp3"), testAsset("d.mp3"),
	}

	loader := NewLoader(backend, decoder, &LoaderConfig{
		BatchSize:   1,
		BatchDelay:  time.Millisecond,
		LoadTimeout: time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	count := 0
	loader.LoadBatches(ctx, assets, func(catalog.AssetDescriptor, PlayableUnit) {
		count++
		if count == 1 {
			cancel()
		}
	}, nil)

	if count >= len(assets) {
		t.Errorf("expected cancellation to stop loading early, got %d callbacks", count)
	}
	// 取消后交付的单元必须已被关闭
	for _, u := range backend.units[count:] {
		u.mu.Lock()
		closed := u.closed
		u.mu.Unlock()
		if !closed {
			t.Error("expected undelivered unit to be closed after cancel")
		}
	}
}

func TestLoadBatchesEmpty(t *testing.T) {
	loader := NewLoader(&mockBackend{}, newMockDecoder(16), nil)
	called := false
	loader.LoadBatches(context.Background(), nil, func(catalog.AssetDescriptor, PlayableUnit) {
		called = true
	}, nil)
	if called {
		t.Error("expected no callbacks for empty asset list")
	}
}
