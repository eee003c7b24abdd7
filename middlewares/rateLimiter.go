package middlewares

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonassync/licensing_backend/config"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const rateLimitKeyPrefix = "RateLimit:"

// RateLimitStore counts hits per key in fixed windows. Increment returns the
// count including this hit and the time left in the current window.
type RateLimitStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

type memoryWindow struct {
	count   int64
	resetAt time.Time
}

// MemoryStore keeps windows in process memory; Sweep drops expired ones.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: map[string]*memoryWindow{}, now: time.Now}
}

func (s *MemoryStore) Increment(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &memoryWindow{resetAt: now.Add(window)}
		s.windows[key] = w
	}
	w.count++
	return w.count, w.resetAt.Sub(now), nil
}

// Sweep removes expired windows and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, w := range s.windows {
		if !now.Before(w.resetAt) {
			delete(s.windows, key)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// RedisStore shares windows between instances with INCR + EXPIRE.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	key = rateLimitKeyPrefix + key
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	if count == 1 {
		if err := s.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, 0, err
		}
		return count, window, nil
	}
	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	if ttl < 0 {
		// the key lost its expiry (crash between INCR and EXPIRE)
		if err := s.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, 0, err
		}
		ttl = window
	}
	return count, ttl, nil
}

type RateLimiter struct {
	store  RateLimitStore
	limit  int64
	window time.Duration
	logger *logrus.Logger
}

// Initialize a new RateLimiter instance.
func NewRateLimiter(store RateLimitStore, limit int64, window time.Duration, logger *logrus.Logger) *RateLimiter {
	return &RateLimiter{
		store:  store,
		limit:  limit,
		window: window,
		logger: logger,
	}
}

// NewRateLimiterFromOptions picks the store named by opts. The redis store
// needs client; without it the limiter falls back to memory.
func NewRateLimiterFromOptions(opts config.ServerOptions, client *redis.Client, logger *logrus.Logger) (*RateLimiter, *MemoryStore) {
	if opts.RateLimitStore == config.RateLimitStoreRedis && client != nil {
		return NewRateLimiter(NewRedisStore(client), opts.RateLimitMax, opts.RateLimitWindow, logger), nil
	}
	if opts.RateLimitStore == config.RateLimitStoreRedis {
		logger.WithFields(logrus.Fields{"field": "rateLimit"}).Warn("RATE_LIMIT_STORE=redis but redis is not connected; using memory store")
	}
	store := NewMemoryStore()
	return NewRateLimiter(store, opts.RateLimitMax, opts.RateLimitWindow, logger), store
}

// Middleware function to check rate limits, keyed by client IP.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	key := c.ClientIP()

	count, resetIn, err := rl.store.Increment(c.Request.Context(), key, rl.window)
	if err != nil {
		// a broken store never blocks traffic
		rl.logger.WithFields(logrus.Fields{"field": "rateLimit", "key": key}).Error(err.Error())
		c.Next()
		return
	}

	remaining := rl.limit - count
	if remaining < 0 {
		remaining = 0
	}
	c.Header("X-RateLimit-Limit", strconv.FormatInt(rl.limit, 10))
	c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

	if count > rl.limit {
		seconds := int(math.Ceil(resetIn.Seconds()))
		c.Header("Retry-After", strconv.Itoa(seconds))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", seconds),
		})
		return
	}

	c.Next()
}
