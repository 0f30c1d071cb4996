package weather

import (
	"context"
	"sync"
	"time"
)

// memoryEntry はメモリキャッシュの1エントリ。
type memoryEntry struct {
	value     NormalizedWeather
	expiresAt time.Time
}

// MemoryCache はプロセス内のTTL付きキャッシュ。
// 単一インスタンス構成やテストで使用する。
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time // テスト用に差し替え可能
}

// NewMemoryCache はMemoryCacheの新しいインスタンスを生成する。
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get はキーに対応する有効なエントリを返す。
func (c *MemoryCache) Get(_ context.Context, key string) (*NormalizedWeather, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || !c.now().Before(entry.expiresAt) {
		return nil, false, nil
	}
	value := entry.value
	return &value, true, nil
}

// Set はエントリをttlの間保持する。
func (c *MemoryCache) Set(_ context.Context, key string, value NormalizedWeather, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryEntry{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

// Len は保持しているエントリ数を返す（期限切れを含む）。
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Sweep は期限切れのエントリを削除し、削除件数を返す。
func (c *MemoryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// StartSweeper は期限切れエントリを定期的に削除するゴルーチンを起動する。
// コンテキストがキャンセルされると停止する。
func (c *MemoryCache) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Sweep()
			}
		}
	}()
}

var _ Cache = (*MemoryCache)(nil)
