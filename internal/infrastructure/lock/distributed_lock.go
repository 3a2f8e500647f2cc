package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ============================================================================
// 分布式锁实现
// ============================================================================
//
// 【为什么需要分布式锁？】
//
// 场景：两个买家同时购买同一个挂单（或同一用户重复提交回收请求）
//
// 数据库事务 + 行锁已经保证了正确性（CAS 状态流转只允许一次成交），
// 分布式锁在此之上把同一标的的并发请求序列化，让后到者直接拿到
// "状态不合法"而不是在数据库里排队竞争行锁。
//
// 【Redis 分布式锁原理】
//
// 加锁：SET key value NX EX timeout
//   - NX: 只有 key 不存在时才设置（保证互斥）
//   - EX: 设置过期时间（防止死锁）
//   - value: 锁持有者标识（释放时验证，防止误删别人的锁）
//
// 释放锁：使用 Lua 脚本保证原子性
//   - 先检查 value 是否是自己的
//   - 再删除 key
//
// ============================================================================

var (
	ErrLockFailed = errors.New("获取分布式锁失败")
)

// DistributedLock 分布式锁
type DistributedLock struct {
	client     *redis.Client
	key        string        // 锁的 key
	value      string        // 锁的 value（用于验证锁的持有者）
	expiration time.Duration // 锁的过期时间
}

// NewDistributedLock 创建分布式锁
func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock 尝试获取锁（非阻塞）
//
// 【关键点】使用 SetNX 命令，只有当 key 不存在时才能设置成功
// 这保证了同一时刻只有一个客户端能获取到锁
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
	if err != nil {
		return false, err
	}
	return success, nil
}

// Lock 阻塞式获取锁（带重试）
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		// 等待一段时间后重试
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
			// 继续重试
		}
	}
	return ErrLockFailed
}

// Unlock 释放锁
//
// 【关键点】使用 Lua 脚本保证"检查+删除"操作的原子性
//
// 为什么要检查 value？
//
//	场景：A 获取锁 -> A 处理超时，锁自动过期 -> B 获取锁 -> A 执行完毕，调用 Unlock
//	如果不检查 value，A 会把 B 的锁删掉！
func (l *DistributedLock) Unlock(ctx context.Context) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
	_, err := l.client.Eval(ctx, script, []string{l.key}, l.value).Result()
	return err
}

// ============================================================================
// 便捷函数：按业务标的维度的锁
// ============================================================================

// NewOfferLock 创建挂单结算锁（按挂单维度）
//
// 按挂单加锁而不是按用户加锁：不同挂单的购买可以并发，
// 同一挂单的并发购买/取消被序列化，这正是我们想要的。
func NewOfferLock(client *redis.Client, offerID int64, token string) *DistributedLock {
	key := fmt.Sprintf("market:lock:offer:%d", offerID)
	return NewDistributedLock(client, key, token, 30*time.Second)
}

// NewExchangeLock 创建交换结算锁（按交换请求维度）
func NewExchangeLock(client *redis.Client, exchangeID int64, token string) *DistributedLock {
	key := fmt.Sprintf("market:lock:exchange:%d", exchangeID)
	return NewDistributedLock(client, key, token, 30*time.Second)
}

// NewRecycleLock 创建回收提交锁（按用户维度）
// 防止同一用户的重复提交并发写入
func NewRecycleLock(client *redis.Client, userID int64, token string) *DistributedLock {
	key := fmt.Sprintf("recycle:lock:user:%d", userID)
	return NewDistributedLock(client, key, token, 30*time.Second)
}
