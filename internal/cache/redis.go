// Package cache 提供 Redis 缓存操作的封装
// 处理时间线快照缓存、晚安卡片插入锁、活动计数等需要快速访问的数据
// 所有方法都容忍 nil 接收者：未配置 Redis 时各服务降级为只走数据库
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"psa-server/internal/config"
	"psa-server/internal/model"
)

// 缓存键常量
const (
	keyTimeline      = "chat:timeline"       // 时间线快照
	keyActivity      = "chat:activity"       // 时间线变更计数
	keyGoodnightLock = "winddown:goodnight"  // 晚安卡片插入锁
)

// timelineTTL 时间线快照的过期时间
// 快照只是读加速，权威数据始终在数据库里，所以 TTL 很短
const timelineTTL = 5 * time.Second

// goodnightLockTTL 晚安卡片插入锁的持有时间
// 只需要覆盖"查重——插入"这个窗口
const goodnightLockTTL = 10 * time.Second

// RedisCache 封装 Redis 客户端，提供业务相关的缓存操作
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache 创建 RedisCache 实例
// 参数:
//   - cfg: 应用配置（包含 Redis 连接信息）
//
// 返回:
//   - *RedisCache: 缓存实例
//   - error: 连接错误
func NewRedisCache(cfg *config.Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// Close 关闭 Redis 连接
func (c *RedisCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// ==================== 时间线快照 ====================

// GetTimeline 读取时间线快照
// 返回:
//   - []model.Message: 快照内容
//   - bool: 是否命中
func (c *RedisCache) GetTimeline(ctx context.Context) ([]model.Message, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, keyTimeline).Bytes()
	if err != nil {
		// redis.Nil 表示未命中，其他错误也按未命中处理
		return nil, false
	}
	var messages []model.Message
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, false
	}
	return messages, true
}

// SetTimeline 写入时间线快照
// 序列化失败或写入失败都静默忽略，缓存从不阻断主流程
func (c *RedisCache) SetTimeline(ctx context.Context, messages []model.Message) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(messages)
	if err != nil {
		return
	}
	c.client.Set(ctx, keyTimeline, raw, timelineTTL)
}

// InvalidateTimeline 使时间线快照失效
// 每次 append / patch / clear 之后调用
func (c *RedisCache) InvalidateTimeline(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Del(ctx, keyTimeline)
}

// ==================== 活动计数 ====================

// BumpActivity 时间线变更计数加一
// WebSocket hub 以此为信号向客户端广播刷新提示
func (c *RedisCache) BumpActivity(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Incr(ctx, keyActivity)
}

// GetActivity 读取时间线变更计数
func (c *RedisCache) GetActivity(ctx context.Context) int64 {
	if c == nil || c.client == nil {
		return 0
	}
	n, err := c.client.Get(ctx, keyActivity).Int64()
	if err == redis.Nil || err != nil {
		return 0
	}
	return n
}

// ==================== 晚安卡片插入锁 ====================

// AcquireGoodnightLock 尝试获取晚安卡片插入锁
// SETNX 语义：同一时刻只有一个请求能拿到锁
// 未配置 Redis 时直接返回 true，行为退化为原始的"先查再插"
// 返回:
//   - bool: 是否获取成功
func (c *RedisCache) AcquireGoodnightLock(ctx context.Context) bool {
	if c == nil || c.client == nil {
		return true
	}
	ok, err := c.client.SetNX(ctx, keyGoodnightLock, "1", goodnightLockTTL).Result()
	if err != nil {
		return true
	}
	return ok
}

// ReleaseGoodnightLock 释放晚安卡片插入锁
func (c *RedisCache) ReleaseGoodnightLock(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Del(ctx, keyGoodnightLock)
}
