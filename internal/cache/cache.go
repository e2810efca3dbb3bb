// Package cache 提供标题缓存：配置了 Redis 时走 Redis，
// 否则使用进程内带过期的 map。只有校验通过的提取结果才会写入。
package cache

import (
	"context"
	"net/url"
	"sync"
	"time"
)

// Entry 缓存值
type Entry struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

// TitleCache 标题缓存接口
type TitleCache interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, entry *Entry) error
}

// Key 生成缓存键：优先平台内容 ID，否则用去掉查询串和锚点的 URL
//
// 各平台处理器统一走这里，避免同一内容因分享参数不同而缓存多份。
func Key(platform, nativeID, rawURL string) string {
	if nativeID != "" {
		return platform + ":" + nativeID
	}
	if u, err := url.Parse(rawURL); err == nil {
		u.RawQuery = ""
		u.Fragment = ""
		return platform + ":" + u.String()
	}
	return platform + ":" + rawURL
}

// MemoryCache 进程内缓存（无 Redis 时的默认实现）
type MemoryCache struct {
	mu  sync.RWMutex
	ttl time.Duration
	m   map[string]memoryEntry
}

type memoryEntry struct {
	entry    Entry
	expireAt time.Time
}

// NewMemoryCache 创建进程内缓存
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl: ttl,
		m:   make(map[string]memoryEntry),
	}
}

// Get 读取缓存，过期或未命中返回 nil
func (c *MemoryCache) Get(ctx context.Context, key string) (*Entry, error) {
	c.mu.RLock()
	me, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if time.Now().After(me.expireAt) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return nil, nil
	}
	entry := me.entry
	return &entry, nil
}

// Set 写入缓存
func (c *MemoryCache) Set(ctx context.Context, key string, entry *Entry) error {
	c.mu.Lock()
	c.m[key] = memoryEntry{entry: *entry, expireAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	return nil
}
