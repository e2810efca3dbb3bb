package cache

import (
	"context"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name     string
		platform string
		nativeID string
		rawURL   string
		expected string
	}{
		{
			name:     "有内容 ID 时优先",
			platform: "twitter",
			nativeID: "12345",
			rawURL:   "https://x.com/user/status/12345?s=20",
			expected: "twitter:12345",
		},
		{
			name:     "无 ID 时去掉查询串和锚点",
			platform: "generic",
			rawURL:   "https://example.com/post?utm_source=share#comments",
			expected: "generic:https://example.com/post",
		},
		{
			name:     "URL 解析失败时原样使用",
			platform: "generic",
			rawURL:   "://bad",
			expected: "generic:://bad",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Key(tt.platform, tt.nativeID, tt.rawURL); got != tt.expected {
				t.Errorf("Key = %q, want %q", got, tt.expected)
			}
		})
	}
}

// 写入后在 TTL 内读取，标题和作者必须原样取回
func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	ctx := context.Background()

	if err := c.Set(ctx, "k", &Entry{Title: "T", Author: "A"}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	entry, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if entry == nil {
		t.Fatal("期望命中缓存")
	}
	if entry.Title != "T" || entry.Author != "A" {
		t.Errorf("entry = %+v, want {T A}", entry)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(10 * time.Millisecond)
	ctx := context.Background()

	c.Set(ctx, "k", &Entry{Title: "T"})
	time.Sleep(30 * time.Millisecond)

	entry, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if entry != nil {
		t.Error("过期条目不应命中")
	}
}

func TestMemoryCacheMiss(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	entry, err := c.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if entry != nil {
		t.Error("未写入的键不应命中")
	}
}
