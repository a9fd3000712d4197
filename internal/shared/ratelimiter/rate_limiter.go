// Package ratelimiter は、クライアントごとのリクエスト頻度を固定ウィンドウで制限します。
package ratelimiter

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Result は1回の判定結果です。
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAfter time.Duration
}

// Limiter は、キー（通常はクライアントIP）ごとにリクエストを数えて上限判定を行うインターフェースです。
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

type window struct {
	count int
	start time.Time
}

// MemoryLimiter はプロセス内のマップでカウントする固定ウィンドウ方式のリミッターです。
// 複数インスタンス構成ではインスタンスごとに独立してカウントされます。
type MemoryLimiter struct {
	mu       sync.Mutex
	limit    int
	interval time.Duration
	windows  map[string]*window
	now      func() time.Time
}

var _ Limiter = (*MemoryLimiter)(nil)

// NewMemoryLimiter は新しいMemoryLimiterのインスタンスを生成します。
func NewMemoryLimiter(limit int, interval time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:    limit,
		interval: interval,
		windows:  make(map[string]*window),
		now:      time.Now,
	}
}

// Allow はキーのカウントを1つ進め、上限内かどうかを返します。
func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	// interval を過ぎたらカウントリセット
	if !ok || now.Sub(w.start) >= l.interval {
		w = &window{start: now}
		l.windows[key] = w
		l.sweep(now)
	}
	w.count++

	return result(l.limit, w.count, l.interval-now.Sub(w.start)), nil
}

// sweep は期限切れのウィンドウを削除します。新しいウィンドウを作るときだけ呼ばれます。
func (l *MemoryLimiter) sweep(now time.Time) {
	for k, w := range l.windows {
		if now.Sub(w.start) >= l.interval {
			delete(l.windows, k)
		}
	}
}

// RedisLimiter はRedisのINCRとPEXPIREでカウントする固定ウィンドウ方式のリミッターです。
// 全インスタンスで同じカウンタを共有します。
type RedisLimiter struct {
	rdb      *redis.Client
	limit    int
	interval time.Duration
	prefix   string
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter は新しいRedisLimiterのインスタンスを生成します。
// prefix が空の場合は "ratelimit" を使用します。
func NewRedisLimiter(rdb *redis.Client, limit int, interval time.Duration, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisLimiter{rdb: rdb, limit: limit, interval: interval, prefix: prefix}
}

// Allow はキーのカウンタをINCRし、最初のリクエストでウィンドウの有効期限を設定します。
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	k := l.prefix + ":" + key

	count, err := l.rdb.Incr(ctx, k).Result()
	if err != nil {
		return Result{}, err
	}
	if count == 1 {
		if err := l.rdb.PExpire(ctx, k, l.interval).Err(); err != nil {
			return Result{}, err
		}
		return result(l.limit, 1, l.interval), nil
	}

	ttl, err := l.rdb.PTTL(ctx, k).Result()
	if err != nil {
		return Result{}, err
	}
	// 有効期限が失われたキーは次のウィンドウで作り直されるよう期限を付け直す
	if ttl < 0 {
		if err := l.rdb.PExpire(ctx, k, l.interval).Err(); err != nil {
			return Result{}, err
		}
		ttl = l.interval
	}
	return result(l.limit, int(count), ttl), nil
}

func result(limit, count int, resetAfter time.Duration) Result {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:    count <= limit,
		Limit:      limit,
		Remaining:  remaining,
		ResetAfter: resetAfter,
	}
}
