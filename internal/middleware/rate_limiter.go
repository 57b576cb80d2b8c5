package middleware

import (
	"net/http"
	"sync"
	"time"

	"stockledger/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const purgeInterval = 5 * time.Minute

// rateEntry tracks request counts per IP within a fixed window.
type rateEntry struct {
	count     int
	windowEnd time.Time
	mu        sync.Mutex
}

type ipLimiter struct {
	limit  int
	window time.Duration

	mu         sync.Mutex
	entries    map[string]*rateEntry
	lastPurged time.Time
}

// RateLimiter limits each client IP to limit requests per window. A
// non-positive limit disables it.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	if limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	l := &ipLimiter{
		limit:      limit,
		window:     window,
		entries:    make(map[string]*rateEntry),
		lastPurged: time.Now(),
	}
	return l.handle
}

func (l *ipLimiter) handle(c *gin.Context) {
	now := time.Now()
	entry := l.entry(c.ClientIP(), now)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if now.After(entry.windowEnd) {
		entry.count = 0
		entry.windowEnd = now.Add(l.window)
	}

	entry.count++
	if entry.count > l.limit {
		c.Header("Retry-After", entry.windowEnd.UTC().Format(http.TimeFormat))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(apierror.CodeRateLimited, "too many requests, retry shortly"))
		return
	}
	c.Next()
}

func (l *ipLimiter) entry(ip string, now time.Time) *rateEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Drop expired entries so IPs that never return do not accumulate.
	if now.Sub(l.lastPurged) >= purgeInterval {
		purged := 0
		for k, e := range l.entries {
			e.mu.Lock()
			if now.After(e.windowEnd) {
				delete(l.entries, k)
				purged++
			}
			e.mu.Unlock()
		}
		l.lastPurged = now
		if purged > 0 {
			log.Debug().
				Int("entries_purged", purged).
				Int("entries_remaining", len(l.entries)).
				Msg("rate limiter map purged")
		}
	}

	e, ok := l.entries[ip]
	if !ok {
		e = &rateEntry{}
		l.entries[ip] = e
	}
	return e
}
