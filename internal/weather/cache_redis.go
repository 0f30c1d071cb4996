package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix はRedis上でのキー名前空間。
const redisKeyPrefix = "tenki:"

// RedisCache はRedisを使った共有キャッシュ。
// 複数インスタンス構成でキャッシュを共有する場合に使用する。
type RedisCache struct {
	client *redis.Client
}

// ConnectRedis はURLからRedisクライアントを生成し、疎通を確認する。
// redis:// 形式のURLとhost:port形式の両方を受け付ける。
func ConnectRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	var opts *redis.Options
	if parsed, err := redis.ParseURL(rawURL); err == nil {
		opts = parsed
	} else {
		opts = &redis.Options{Addr: rawURL}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("Redisへの接続に失敗しました: %w", err)
	}
	return client, nil
}

// NewRedisCache はRedisCacheの新しいインスタンスを生成する。
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get はキーに対応するエントリを返す。キーが存在しない場合はミスとして扱う。
func (c *RedisCache) Get(ctx context.Context, key string) (*NormalizedWeather, bool, error) {
	raw, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("Redisからの読み取りに失敗しました: %w", err)
	}

	var value NormalizedWeather
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, false, fmt.Errorf("キャッシュ値のデコードに失敗しました: %w", err)
	}
	return &value, true, nil
}

// Set はエントリをJSONとしてttlの間保持する。
func (c *RedisCache) Set(ctx context.Context, key string, value NormalizedWeather, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("キャッシュ値のエンコードに失敗しました: %w", err)
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("Redisへの書き込みに失敗しました: %w", err)
	}
	return nil
}

var _ Cache = (*RedisCache)(nil)
