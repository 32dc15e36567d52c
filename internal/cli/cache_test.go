package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/graphanneal/pkg/cache"
)

func TestCacheDir(t *testing.T) {
	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if filepath.Base(dir) != appName {
		t.Errorf("cacheDir() = %q, want a %q directory", dir, appName)
	}
}

func TestNewCache(t *testing.T) {
	ctx := context.Background()
	c := New(&syncBuffer{}, log.InfoLevel)

	t.Run("disabled", func(t *testing.T) {
		cc, err := c.newCache(ctx, cacheOpts{noCache: true, redis: "ignored:1"})
		if err != nil {
			t.Fatalf("newCache() error = %v", err)
		}
		if _, ok := cc.(*cache.NullCache); !ok {
			t.Errorf("newCache() = %T, want *cache.NullCache", cc)
		}
	})

	t.Run("file", func(t *testing.T) {
		dir := t.TempDir()
		cc, err := c.newCache(ctx, cacheOpts{dir: dir})
		if err != nil {
			t.Fatalf("newCache() error = %v", err)
		}
		defer cc.Close()
		fc, ok := cc.(*cache.FileCache)
		if !ok {
			t.Fatalf("newCache() = %T, want *cache.FileCache", cc)
		}
		if fc.Dir() != dir {
			t.Errorf("Dir() = %q, want %q", fc.Dir(), dir)
		}
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cc, err := c.newCache(ctx, cacheOpts{redis: mr.Addr()})
		if err != nil {
			t.Fatalf("newCache() error = %v", err)
		}
		defer cc.Close()
		if _, ok := cc.(*cache.RedisCache); !ok {
			t.Errorf("newCache() = %T, want *cache.RedisCache", cc)
		}
	})
}

func TestCacheClearCommand(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		t.Fatalf("NewFileCache() error = %v", err)
	}
	key := cache.Hash([]byte("entry"))
	if err := fc.Set(ctx, key, []byte("{}"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	captureOutput(t)
	if err := execute(t, "cache", "clear", "--cache-dir", dir); err != nil {
		t.Fatalf("cache clear error = %v", err)
	}
	if _, ok, _ := fc.Get(ctx, key); ok {
		t.Error("entry survived cache clear")
	}
}
