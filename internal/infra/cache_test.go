package infra

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestNewMemoryCache_Defaults(t *testing.T) {
	c := NewMemoryCache(0, 0)
	defer c.Close()

	if c.ttl != DefaultCacheTTL {
		t.Errorf("ttl = %v, want %v", c.ttl, DefaultCacheTTL)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestMemoryCache_SetAndGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(100, time.Minute)
	defer c.Close()

	if err := c.Set(ctx, "key1", []byte(`{"results":[]}`), 0); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	got, ok, err := c.Get(ctx, "key1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !ok {
		t.Fatal("expected to find key1")
	}
	if string(got) != `{"results":[]}` {
		t.Errorf("got %s", got)
	}
}

func TestMemoryCache_GetNotFound(t *testing.T) {
	c := NewMemoryCache(100, time.Minute)
	defer c.Close()

	got, ok, err := c.Get(context.Background(), "nonexistent")
	if err != nil || ok || got != nil {
		t.Errorf("Get(nonexistent) = %v, %v, %v; want nil, false, nil", got, ok, err)
	}
}

func TestMemoryCache_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(10, time.Minute)
	defer c.Close()

	value := []byte("original")
	_ = c.Set(ctx, "k", value, 0)
	value[0] = 'X'

	got, _, _ := c.Get(ctx, "k")
	if string(got) != "original" {
		t.Errorf("cache aliased the caller's slice: %s", got)
	}

	got[0] = 'Y'
	again, _, _ := c.Get(ctx, "k")
	if string(again) != "original" {
		t.Errorf("cache aliased the returned slice: %s", again)
	}
}

func TestMemoryCache_PerEntryTTL(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(10, time.Minute)
	defer c.Close()

	_ = c.Set(ctx, "short", []byte("v"), 10*time.Millisecond)
	_ = c.Set(ctx, "long", []byte("v"), 0)

	if _, ok, _ := c.Get(ctx, "short"); !ok {
		t.Error("expected to find key before expiration")
	}

	time.Sleep(30 * time.Millisecond)

	if _, ok, _ := c.Get(ctx, "short"); ok {
		t.Error("expected short-lived key to be expired")
	}
	if _, ok, _ := c.Get(ctx, "long"); !ok {
		t.Error("expected default-TTL key to survive")
	}
}

func TestMemoryCache_CacheTTLCapsEntryTTL(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(10, 20*time.Millisecond)
	defer c.Close()

	_ = c.Set(ctx, "k", []byte("v"), time.Hour)
	time.Sleep(50 * time.Millisecond)

	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("entry outlived the cache TTL")
	}
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(3, time.Minute)
	defer c.Close()

	for i := 0; i < 3; i++ {
		_ = c.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), 0)
	}
	// Touch k0 so k1 becomes the oldest
	_, _, _ = c.Get(ctx, "k0")
	_ = c.Set(ctx, "k3", []byte("v"), 0)

	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
	if _, ok, _ := c.Get(ctx, "k1"); ok {
		t.Error("expected k1 to be evicted")
	}
	for _, k := range []string{"k0", "k2", "k3"} {
		if _, ok, _ := c.Get(ctx, k); !ok {
			t.Errorf("expected %s to remain", k)
		}
	}
}

func TestMemoryCache_Delete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(10, time.Minute)
	defer c.Close()

	_ = c.Set(ctx, "k", []byte("v"), 0)
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("expected key to be deleted")
	}
	// Deleting a missing key is not an error
	if err := c.Delete(ctx, "missing"); err != nil {
		t.Errorf("Delete(missing) error: %v", err)
	}
}

func TestMemoryCache_Close(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(10, time.Minute)

	_ = c.Set(ctx, "k", []byte("v"), 0)
	if err := c.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() after Close = %d, want 0", c.Len())
	}
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(50, time.Minute)
	defer c.Close()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := range 100 {
				key := fmt.Sprintf("key-%d-%d", i, j%10)
				_ = c.Set(ctx, key, []byte("v"), 0)
				_, _, _ = c.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()

	if c.Len() > 50 {
		t.Errorf("Len() = %d exceeds capacity 50", c.Len())
	}
}

func TestNopCache(t *testing.T) {
	ctx := context.Background()
	var c Cache = NopCache{}

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil || hit || data != nil {
		t.Errorf("NopCache.Get = %v, %v, %v; want miss", data, hit, err)
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close error: %v", err)
	}
}

func TestHashKey(t *testing.T) {
	k1 := HashKey("search", "password", false, "hunter2")
	k2 := HashKey("search", "password", false, "hunter2")
	if k1 != k2 {
		t.Error("HashKey should be deterministic")
	}

	if !strings.HasPrefix(k1, "search:") {
		t.Errorf("key %q missing prefix", k1)
	}
	if len(k1) != len("search:")+64 {
		t.Errorf("key length = %d, want %d", len(k1), len("search:")+64)
	}
	if strings.Contains(k1, "hunter2") {
		t.Error("term leaked into cache key")
	}

	variants := []string{
		HashKey("search", "password", true, "hunter2"),
		HashKey("search", "username", false, "hunter2"),
		HashKey("hash", "password", false, "hunter2"),
		HashKey("search", "password", false, "hunter3"),
	}
	for i, v := range variants {
		if v == k1 {
			t.Errorf("variant %d collides with base key", i)
		}
	}
}

func TestNewRedisCacheFromURL(t *testing.T) {
	c, err := NewRedisCacheFromURL("redis://localhost:6379/2", "", 0)
	if err != nil {
		t.Fatalf("NewRedisCacheFromURL error: %v", err)
	}
	defer c.Close()

	if c.prefix != DefaultRedisPrefix {
		t.Errorf("prefix = %q, want %q", c.prefix, DefaultRedisPrefix)
	}
	if c.ttl != DefaultCacheTTL {
		t.Errorf("ttl = %v, want %v", c.ttl, DefaultCacheTTL)
	}
	if got := c.key("search:abc"); got != "snusbase:search:abc" {
		t.Errorf("key() = %q", got)
	}
}

func TestNewRedisCacheFromURL_Invalid(t *testing.T) {
	if _, err := NewRedisCacheFromURL("http://not-redis", "", 0); err == nil {
		t.Error("expected error for non-redis URL")
	}
}

func TestRedisCache_UnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := NewRedisCache(client, "test:", time.Minute)
	defer c.Close()

	ctx := context.Background()
	if _, ok, err := c.Get(ctx, "k"); err == nil || ok {
		t.Errorf("Get = ok %v, err %v; want backend error", ok, err)
	}
	if err := c.Set(ctx, "k", []byte("v"), 0); err == nil {
		t.Error("expected Set error")
	}
	if err := c.Ping(ctx); err == nil {
		t.Error("expected Ping error")
	}
}
