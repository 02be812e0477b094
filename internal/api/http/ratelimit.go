package http

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"

	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const limiterIdleTTL = 5 * time.Minute

// LoginLimiter is a token bucket per client IP.
type LoginLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	perSecond rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewLoginLimiter builds a limiter allowing perSecond attempts with the given burst.
// A non-positive rate disables limiting.
func NewLoginLimiter(perSecond float64, burst int) *LoginLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &LoginLimiter{
		buckets:   make(map[string]*bucket),
		perSecond: rate.Limit(perSecond),
		burst:     burst,
		now:       time.Now,
	}
}

// Allow reports whether key may perform another attempt.
func (l *LoginLimiter) Allow(key string) bool {
	if l == nil || l.perSecond <= 0 {
		return true
	}
	if key == "" {
		key = "unknown"
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > time.Minute {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > limiterIdleTTL {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.perSecond, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// Handle rejects requests over the limit with RATE_LIMITED.
func (l *LoginLimiter) Handle(c *fiber.Ctx) error {
	if !l.Allow(c.IP()) {
		c.Set(fiber.HeaderRetryAfter, "1")
		return apperrors.NewRateLimited("too many login attempts")
	}
	return c.Next()
}
