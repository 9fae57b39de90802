package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type rateWindow struct {
	hits    int
	resetAt time.Time
}

// RateLimit caps requests per (client IP, route) inside a fixed window. The
// counters live in process memory, which is sufficient for a single-instance
// deployment and for tests.
func RateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	var (
		mu      sync.Mutex
		windows = make(map[string]*rateWindow)
	)

	// Sweep expired windows so the map does not grow without bound.
	ticker := time.NewTicker(window)
	go func() {
		for range ticker.C {
			now := time.Now()
			mu.Lock()
			for key, w := range windows {
				if now.After(w.resetAt) {
					delete(windows, key)
				}
			}
			mu.Unlock()
		}
	}()

	return func(c *gin.Context) {
		if maxRequests <= 0 || window <= 0 {
			c.Next()
			return
		}

		key := c.ClientIP() + "|" + c.FullPath()
		now := time.Now()

		mu.Lock()
		w, ok := windows[key]
		if !ok || now.After(w.resetAt) {
			w = &rateWindow{resetAt: now.Add(window)}
			windows[key] = w
		}
		w.hits++
		hits := w.hits
		resetIn := time.Until(w.resetAt)
		mu.Unlock()

		remaining := maxRequests - hits
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(int(resetIn.Seconds())))

		if hits > maxRequests {
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}

		c.Next()
	}
}
