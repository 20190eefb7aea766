package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/zolijavos/KGC-3-sub017/internal/apperror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// limiter is a fixed-window per-IP request counter. Two instances run in the
// router: a strict one on the login endpoint and a generous one on the whole
// API surface.
type limiter struct {
	mu      sync.Mutex
	windows map[string]*ipWindow
	limit   int
	period  time.Duration
	message string
}

type ipWindow struct {
	count int
	until time.Time
}

func newLimiter(limit int, period time.Duration, message string) *limiter {
	l := &limiter{
		windows: make(map[string]*ipWindow),
		limit:   limit,
		period:  period,
		message: message,
	}
	go l.purge()
	return l
}

// allow counts one request from ip and reports whether it stays within the
// limit, plus when the current window expires.
func (l *limiter) allow(ip string, now time.Time) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[ip]
	if !ok || now.After(w.until) {
		w = &ipWindow{until: now.Add(l.period)}
		l.windows[ip] = w
	}
	w.count++
	return w.count <= l.limit, w.until
}

// purge drops expired windows so one-off IPs do not accumulate forever.
func (l *limiter) purge() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for now := range ticker.C {
		l.mu.Lock()
		for ip, w := range l.windows {
			if now.After(w.until) {
				delete(l.windows, ip)
			}
		}
		tracked := len(l.windows)
		l.mu.Unlock()
		log.Debug().Int("tracked_ips", tracked).Msg("rate limiter purged expired windows")
	}
}

func (l *limiter) handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, until := l.allow(c.ClientIP(), time.Now())
		if !ok {
			c.Header("Retry-After", until.Format(time.RFC1123))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apperror.New(l.message))
			return
		}
		c.Next()
	}
}

var loginLimiter = newLimiter(20, time.Minute, "too many login attempts, retry in a minute")

// LoginRateLimiter limits login attempts to 20 per minute per IP.
func LoginRateLimiter() gin.HandlerFunc { return loginLimiter.handler() }

// RateLimiter limits the whole API to limit requests per window per IP.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	return newLimiter(limit, window, "too many requests, retry shortly").handler()
}
