package nest

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures the RateLimit hook.
type RateLimitConfig struct {
	Rate            float64                 // requests per second
	Burst           int                     // max burst
	KeyFunc         func(c *Context) string // default: remote IP
	CleanupInterval time.Duration           // how often to prune idle limiters (default: 1m)
	MaxIdle         time.Duration           // remove limiters idle longer than this (default: 5m)
}

// ErrRateLimited is returned by RateLimit when a key exceeds its rate.
var ErrRateLimited = &ApplicationError{
	Code:    "rate_limited",
	Status:  http.StatusTooManyRequests,
	Message: "rate limit exceeded",
}

// RateLimit returns a hook that applies per-key rate limiting. As a
// pre-validation hook it sheds load before parameters are decoded; as a
// post-validation hook KeyFunc may key on validated parameters.
func RateLimit(cfg RateLimitConfig) Hook {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = remoteIP
	}

	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	maxIdle := cfg.MaxIdle
	if maxIdle <= 0 {
		maxIdle = 5 * time.Minute
	}

	retryAfter := "1"
	if cfg.Rate > 0 && cfg.Rate < 1 {
		retryAfter = strconv.FormatFloat(1/cfg.Rate, 'f', 0, 64)
	}

	var (
		mu          sync.Mutex
		limiters    = make(map[string]*limiterEntry)
		lastCleanup time.Time
	)

	return func(c *Context) error {
		key := cfg.KeyFunc(c)

		mu.Lock()
		now := time.Now()

		// Lazy cleanup of expired limiters.
		if now.Sub(lastCleanup) >= cleanupInterval {
			for k, e := range limiters {
				if now.Sub(e.lastSeen) > maxIdle {
					delete(limiters, k)
				}
			}
			lastCleanup = now
		}

		entry, ok := limiters[key]
		if !ok {
			entry = &limiterEntry{
				limiter: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst),
			}
			limiters[key] = entry
		}
		entry.lastSeen = now
		mu.Unlock()

		if !entry.limiter.AllowN(now, 1) {
			err := *ErrRateLimited
			err.Header = http.Header{"Retry-After": {retryAfter}}
			return &err
		}
		return nil
	}
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func remoteIP(c *Context) string {
	addr := c.Request().RemoteAddr
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
