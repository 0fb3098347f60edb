package http

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xue-yuan/dionysus/internal/config"
	apperrors "github.com/xue-yuan/dionysus/pkg/util/errorutil"
)

const limiterCleanupInterval = 5 * time.Minute

// RateLimiter hands out one token bucket per client IP.
type RateLimiter struct {
	limiters    sync.Map
	rate        rate.Limit
	burst       int
	logger      *zap.Logger
	mu          sync.Mutex
	lastCleanup time.Time
}

// NewRateLimiter converts requests-per-window into a steady token rate.
func NewRateLimiter(cfg config.RateLimitConfig, logger *zap.Logger) *RateLimiter {
	burst := cfg.Burst
	if burst <= 0 {
		burst = cfg.RequestsPerWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{
		rate:        rate.Limit(float64(cfg.RequestsPerWindow) / cfg.Window.Seconds()),
		burst:       burst,
		logger:      logger,
		lastCleanup: time.Now(),
	}
}

// Handle rejects requests once the caller's bucket is empty.
func (rl *RateLimiter) Handle(c *fiber.Ctx) error {
	ip := c.IP()
	reservation := rl.limiter(ip).Reserve()
	if delay := reservation.Delay(); delay > 0 {
		reservation.Cancel()
		retryAfter := int(math.Ceil(delay.Seconds()))
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
		rl.logger.Info("rate limit exceeded", zap.String("ip", ip), zap.String("path", c.Path()))
		return apperrors.NewRateLimited(retryAfter)
	}
	return c.Next()
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if existing, ok := rl.limiters.Load(key); ok {
		return existing.(*rate.Limiter)
	}
	actual, _ := rl.limiters.LoadOrStore(key, rate.NewLimiter(rl.rate, rl.burst))
	rl.maybeCleanup()
	return actual.(*rate.Limiter)
}

// maybeCleanup drops buckets that have refilled, which means they sat idle.
func (rl *RateLimiter) maybeCleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if time.Since(rl.lastCleanup) < limiterCleanupInterval {
		return
	}
	rl.lastCleanup = time.Now()
	rl.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(rl.burst) {
			rl.limiters.Delete(key)
		}
		return true
	})
}
