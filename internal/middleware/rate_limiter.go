package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jrrjunior25/pdv-fiscal/internal/apperr"
)

// Fixed-window rate limiting per client IP, kept in process memory. Each
// limiter instance owns its bucket map; a shared janitor drops windows that
// already expired so idle IPs do not accumulate.

type rateBucket struct {
	mu        sync.Mutex
	count     int
	windowEnd time.Time
}

type ipLimiter struct {
	limit   int
	window  time.Duration
	message string

	mu      sync.Mutex
	buckets map[string]*rateBucket
}

var (
	janitorMu sync.Mutex
	limiters  []*ipLimiter
)

func newIPLimiter(limit int, window time.Duration, message string) *ipLimiter {
	l := &ipLimiter{
		limit:   limit,
		window:  window,
		message: message,
		buckets: make(map[string]*rateBucket),
	}
	janitorMu.Lock()
	limiters = append(limiters, l)
	janitorMu.Unlock()
	return l
}

func (l *ipLimiter) handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		b := l.bucket(c.ClientIP())

		b.mu.Lock()
		now := time.Now()
		if now.After(b.windowEnd) {
			b.count = 0
			b.windowEnd = now.Add(l.window)
		}
		b.count++
		over := b.count > l.limit
		retryAt := b.windowEnd
		b.mu.Unlock()

		if over {
			c.Header("Retry-After", retryAt.Format(time.RFC1123))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apperr.New(l.message))
			return
		}
		c.Next()
	}
}

func (l *ipLimiter) bucket(ip string) *rateBucket {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[ip]
	if !ok {
		b = &rateBucket{}
		l.buckets[ip] = b
	}
	return b
}

func (l *ipLimiter) purge(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for ip, b := range l.buckets {
		b.mu.Lock()
		expired := now.After(b.windowEnd)
		b.mu.Unlock()
		if expired {
			delete(l.buckets, ip)
			removed++
		}
	}
	return removed
}

// LoginRateLimiter throttles credential guessing: 20 login attempts per
// minute per IP.
func LoginRateLimiter() gin.HandlerFunc {
	return newIPLimiter(20, time.Minute,
		"Muitas tentativas de login. Tente novamente em 1 minuto.").handler()
}

// RateLimiter is the general API throttle applied to the whole router.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	return newIPLimiter(limit, window,
		"Muitas requisições. Tente novamente em instantes.").handler()
}

const purgeInterval = 5 * time.Minute

func init() {
	go func() {
		ticker := time.NewTicker(purgeInterval)
		defer ticker.Stop()
		for range ticker.C {
			now := time.Now()
			janitorMu.Lock()
			active := append([]*ipLimiter(nil), limiters...)
			janitorMu.Unlock()

			total := 0
			for _, l := range active {
				total += l.purge(now)
			}
			if total > 0 {
				log.Debug().Int("entries_purged", total).Msg("rate limiter buckets purged")
			}
		}
	}()
}
