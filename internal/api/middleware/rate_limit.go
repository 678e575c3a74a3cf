package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"sproutscan/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Decision 限流判斷結果
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter 按客戶端鍵限流
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// RateLimiter 令牌桶
type RateLimiter struct {
	tokens   float64
	capacity float64
	rate     float64
	lastTime time.Time
}

// NewRateLimiter 創建新的令牌桶，window 內最多 requests 次
func NewRateLimiter(requests int, window time.Duration, now time.Time) *RateLimiter {
	return &RateLimiter{
		tokens:   float64(requests),
		capacity: float64(requests),
		rate:     float64(requests) / window.Seconds(),
		lastTime: now,
	}
}

// allow 補充令牌後嘗試取用一個，呼叫者需持有鎖
func (rl *RateLimiter) allow(now time.Time) Decision {
	elapsed := now.Sub(rl.lastTime).Seconds()
	if elapsed > 0 {
		rl.tokens = math.Min(rl.capacity, rl.tokens+elapsed*rl.rate)
		rl.lastTime = now
	}

	if rl.tokens >= 1 {
		rl.tokens--
		return Decision{Allowed: true, Remaining: int(rl.tokens)}
	}

	wait := (1 - rl.tokens) / rl.rate
	return Decision{RetryAfter: time.Duration(wait * float64(time.Second))}
}

func (rl *RateLimiter) full(now time.Time) bool {
	return rl.tokens+now.Sub(rl.lastTime).Seconds()*rl.rate >= rl.capacity
}

// MemoryLimiter 單機限流，每個客戶端一個令牌桶
type MemoryLimiter struct {
	mu          sync.Mutex
	buckets     map[string]*RateLimiter
	requests    int
	window      time.Duration
	lastCleanup time.Time
	now         func() time.Time
}

// NewMemoryLimiter 創建單機限流器
func NewMemoryLimiter(requests int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		buckets:     make(map[string]*RateLimiter),
		requests:    requests,
		window:      window,
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

// Allow 檢查是否允許請求
func (m *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if now.Sub(m.lastCleanup) > m.window {
		// 已補滿的令牌桶與新建的相同，可以丟棄
		for k, b := range m.buckets {
			if b.full(now) {
				delete(m.buckets, k)
			}
		}
		m.lastCleanup = now
	}

	b, ok := m.buckets[key]
	if !ok {
		b = NewRateLimiter(m.requests, m.window, now)
		m.buckets[key] = b
	}
	return b.allow(now), nil
}

// RedisLimiter 以 Redis 固定時間窗計數，多個實例共用額度
type RedisLimiter struct {
	client   *redis.Client
	prefix   string
	requests int
	window   time.Duration
}

// NewRedisLimiter 創建 Redis 限流器
func NewRedisLimiter(client *redis.Client, prefix string, requests int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client:   client,
		prefix:   prefix,
		requests: requests,
		window:   window,
	}
}

// incrScript 計數並在首次計數時設定過期，回傳 {count, pttl}
var incrScript = redis.NewScript(`
local c = redis.call('INCR', KEYS[1])
if c == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return {c, redis.call('PTTL', KEYS[1])}
`)

// Allow 以 INCR 計數，首次計數時設定過期
func (r *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	reply, err := incrScript.Run(ctx, r.client, []string{r.prefix + ":" + key}, r.window.Milliseconds()).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit counter: %w", err)
	}
	res, ok := reply.([]interface{})
	if !ok || len(res) != 2 {
		return Decision{}, fmt.Errorf("rate limit counter: unexpected reply %v", reply)
	}
	count, _ := res[0].(int64)
	pttl, _ := res[1].(int64)

	if int(count) > r.requests {
		retry := time.Duration(pttl) * time.Millisecond
		if retry <= 0 {
			retry = r.window
		}
		return Decision{RetryAfter: retry}, nil
	}
	return Decision{Allowed: true, Remaining: r.requests - int(count)}, nil
}

// FallbackLimiter 主要限流器出錯時改用備援
type FallbackLimiter struct {
	Primary  Limiter
	Fallback Limiter
}

// Allow 檢查是否允許請求
func (f FallbackLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	d, err := f.Primary.Allow(ctx, key)
	if err == nil {
		return d, nil
	}
	common.LogWarn("Rate limiter unavailable, using fallback", zap.Error(err))
	return f.Fallback.Allow(ctx, key)
}

// RateLimit 限流中間件，scope 區分不同端點的額度
func RateLimit(limiter Limiter, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		client := common.ClientKey(c)
		d, err := limiter.Allow(c.Request.Context(), scope+":"+client)
		if err != nil {
			// 無法判斷時放行
			common.LogError("Rate limit check failed", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			retryAfter := int((d.RetryAfter + time.Second - 1) / time.Second)
			common.LogInfo("Rate limit exceeded",
				zap.String("ip", client),
				zap.String("scope", scope),
				zap.String("path", c.Request.URL.Path),
			)

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests. Please wait a moment and try again.",
				"code":        common.ErrCodeTooManyRequests,
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}
