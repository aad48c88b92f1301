package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	PageCachePrefix = "page:cache"
	PageGenKey      = PageCachePrefix + ":gen"
	LockTTL         = 2 * time.Second
	LockKeyPrefix   = "lock:page"
)

// PageCache 整页缓存。写操作递增代数，旧代数的 key 自然过期
type PageCache struct {
	RDB *redis.Client
}

func NewPageCache(rdb *redis.Client) *PageCache {
	return &PageCache{RDB: rdb}
}

func (c *PageCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.RDB.Get(ctx, PageGenKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *PageCache) key(ctx context.Context, name string) (string, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d:%s", PageCachePrefix, gen, name), nil
}

// Get 返回缓存内容，ok=false 表示未命中
func (c *PageCache) Get(ctx context.Context, name string) ([]byte, bool, error) {
	k, err := c.key(ctx, name)
	if err != nil {
		return nil, false, err
	}
	b, err := c.RDB.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *PageCache) Set(ctx context.Context, name string, body []byte, ttl time.Duration) error {
	k, err := c.key(ctx, name)
	if err != nil {
		return err
	}
	return c.RDB.Set(ctx, k, body, ttl).Err()
}

// Invalidate 使所有已缓存页面失效
func (c *PageCache) Invalidate(ctx context.Context) error {
	return c.RDB.Incr(ctx, PageGenKey).Err()
}

// DistLock 基于 SetNX 的分布式锁，只有持有者能释放
type DistLock struct {
	RDB *redis.Client
	TTL time.Duration
}

func NewDistLock(rdb *redis.Client) *DistLock {
	return &DistLock{RDB: rdb, TTL: LockTTL}
}

func lockKey(name string) string {
	return fmt.Sprintf("%s:%s", LockKeyPrefix, name)
}

// Acquire 请求加锁
func (l *DistLock) Acquire(ctx context.Context, name, token string) (bool, error) {
	return l.RDB.SetNX(ctx, lockKey(name), token, l.TTL).Result()
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`)

// Release 用lua保证原子性
func (l *DistLock) Release(ctx context.Context, name, token string) error {
	return releaseScript.Run(ctx, l.RDB, []string{lockKey(name)}, token).Err()
}
