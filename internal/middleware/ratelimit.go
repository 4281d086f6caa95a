package middleware

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerWindow int           // Number of requests allowed per window
	Window            time.Duration // Time window for rate limiting
	KeyPrefix         string        // Separates counters of different route groups
}

// RateLimitResult is the outcome of a single counter check
type RateLimitResult struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RateLimitStore counts requests per key. Implementations must be safe for
// concurrent use.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (RateLimitResult, error)
}

// RedisRateLimitStore keeps fixed-window counters in Redis so several
// instances share one budget per client
type RedisRateLimitStore struct {
	client *redis.Client
}

func NewRedisRateLimitStore(client *redis.Client) *RedisRateLimitStore {
	return &RedisRateLimitStore{client: client}
}

func (s *RedisRateLimitStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (RateLimitResult, error) {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return RateLimitResult{}, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	// Set expiry on first request
	if count == 1 {
		if err := s.client.Expire(ctx, key, window).Err(); err != nil {
			return RateLimitResult{}, fmt.Errorf("failed to set rate limit expiry: %w", err)
		}
	}

	if count > int64(limit) {
		ttl, err := s.client.TTL(ctx, key).Result()
		if err != nil || ttl < 0 {
			ttl = window
		}
		return RateLimitResult{Allowed: false, Remaining: 0, RetryAfter: ttl}, nil
	}

	return RateLimitResult{Allowed: true, Remaining: limit - int(count)}, nil
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryRateLimitStore keeps one token bucket per key in process memory.
// A bucket holds limit tokens and refills one every window/limit; idle
// buckets are evicted after expiresIn.
type MemoryRateLimitStore struct {
	mu          sync.Mutex
	visitors    map[string]*visitor
	expiresIn   time.Duration
	lastCleanup time.Time
	now         func() time.Time
}

func NewMemoryRateLimitStore(expiresIn time.Duration) *MemoryRateLimitStore {
	if expiresIn <= 0 {
		expiresIn = 3 * time.Minute
	}
	return &MemoryRateLimitStore{
		visitors:    make(map[string]*visitor),
		expiresIn:   expiresIn,
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

func (s *MemoryRateLimitStore) Allow(_ context.Context, key string, limit int, window time.Duration) (RateLimitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	v, ok := s.visitors[key]
	if !ok {
		v = &visitor{
			limiter: rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit),
		}
		s.visitors[key] = v
	}
	v.lastSeen = now

	if now.Sub(s.lastCleanup) > s.expiresIn {
		s.cleanupStale(now)
	}

	if !v.limiter.AllowN(now, 1) {
		tokens := v.limiter.TokensAt(now)
		wait := time.Duration((1 - tokens) / float64(v.limiter.Limit()) * float64(time.Second))
		return RateLimitResult{Allowed: false, Remaining: 0, RetryAfter: wait}, nil
	}

	remaining := int(math.Floor(v.limiter.TokensAt(now)))
	if remaining < 0 {
		remaining = 0
	}
	return RateLimitResult{Allowed: true, Remaining: remaining}, nil
}

// Len reports the number of tracked keys
func (s *MemoryRateLimitStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visitors)
}

func (s *MemoryRateLimitStore) cleanupStale(now time.Time) {
	for key, v := range s.visitors {
		if now.Sub(v.lastSeen) > s.expiresIn {
			delete(s.visitors, key)
		}
	}
	s.lastCleanup = now
}

// RateLimitMiddleware limits requests per client address
func RateLimitMiddleware(store RateLimitStore, config RateLimitConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := clientAddress(r)
			key := fmt.Sprintf("%s:%s", config.KeyPrefix, clientID)

			result, err := store.Allow(r.Context(), key, config.RequestsPerWindow, config.Window)
			if err != nil {
				logger.Error("Rate limit check failed",
					zap.Error(err),
					zap.String("key", key),
				)
				// Fail open on backend errors
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.RequestsPerWindow))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

			if !result.Allowed {
				retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
				if retryAfter < 1 {
					retryAfter = 1
				}

				logger.Warn("Rate limit exceeded",
					zap.String("client_id", clientID),
					zap.String("key_prefix", config.KeyPrefix),
					zap.Int("limit", config.RequestsPerWindow),
				)

				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(result.RetryAfter).Unix(), 10))
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

				RespondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientAddress returns the remote host without its port
func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
