// Package ratelimit throttles requests per key, either across instances
// through Redis or within one process through golang.org/x/time/rate.
package ratelimit

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"connection-broker/internal/common/errors"
	"connection-broker/internal/common/logging"
	"connection-broker/internal/redis"
)

const keyPrefix = "rate_limit:"

// Config sets how many requests a key may make per window
type Config struct {
	Limit   int           `json:"limit"`
	Window  time.Duration `json:"window"`
	Enabled bool          `json:"enabled"`
}

// DefaultLoginConfig allows ten login attempts per client per minute
func DefaultLoginConfig() Config {
	return Config{Limit: 10, Window: time.Minute, Enabled: true}
}

// Validate checks if the configuration is valid
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Limit <= 0 {
		return errors.ConfigError("rate limit must be positive")
	}
	if c.Window <= 0 {
		return errors.ConfigError("rate limit window must be positive")
	}
	return nil
}

// RateLimit describes the state of a key after a check
type RateLimit struct {
	Limit     int           `json:"limit"`
	Window    time.Duration `json:"window"`
	Remaining int           `json:"remaining"`
	ResetTime time.Time     `json:"reset_time"`
	Allowed   bool          `json:"allowed"`
}

type backend interface {
	check(ctx context.Context, key string, cfg Config) (*RateLimit, error)
}

// Limiter checks keys against a Config
type Limiter struct {
	backend backend
	config  Config
	logger  logging.Logger
}

// NewRedisLimiter creates a limiter whose counters live in Redis, shared by
// every instance
func NewRedisLimiter(client *redis.Client, cfg Config, logger logging.Logger) (*Limiter, error) {
	if client == nil {
		return nil, errors.ConfigError("redis client is required")
	}
	return newLimiter(&redisBackend{client: client}, cfg, logger)
}

// NewLocalLimiter creates an in-process limiter
func NewLocalLimiter(cfg Config, logger logging.Logger) (*Limiter, error) {
	return newLimiter(&localBackend{limiters: make(map[string]*limiterEntry)}, cfg, logger)
}

func newLimiter(b backend, cfg Config, logger logging.Logger) (*Limiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Limiter{backend: b, config: cfg, logger: logger}, nil
}

// Check records a request for key and reports whether it is allowed
func (l *Limiter) Check(ctx context.Context, key string) (*RateLimit, error) {
	if !l.config.Enabled {
		return &RateLimit{
			Limit:     l.config.Limit,
			Window:    l.config.Window,
			Remaining: l.config.Limit,
			ResetTime: time.Now().Add(l.config.Window),
			Allowed:   true,
		}, nil
	}
	return l.backend.check(ctx, keyPrefix+key, l.config)
}

// HTTPMiddleware rejects requests over the limit with 429. Backend failures
// let the request through.
func (l *Limiter) HTTPMiddleware(keyFunc func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			rateLimit, err := l.Check(r.Context(), key)
			if err != nil {
				l.logger.WithContext(r.Context()).Error("rate limit check failed", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rateLimit.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(rateLimit.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(rateLimit.ResetTime.Unix(), 10))

			if !rateLimit.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(rateLimit.Window.Seconds())))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{"message": "Too many requests. Try again later."})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// IPBasedKey keys requests by client address, preferring the first
// X-Forwarded-For hop
func IPBasedKey(r *http.Request) string {
	ip := r.Header.Get("X-Forwarded-For")
	if i := strings.IndexByte(ip, ','); i >= 0 {
		ip = ip[:i]
	}
	ip = strings.TrimSpace(ip)
	if ip == "" {
		ip = r.Header.Get("X-Real-IP")
	}
	if ip == "" {
		ip = r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
	}
	return "ip:" + ip
}

type redisBackend struct {
	client *redis.Client
}

func (b *redisBackend) check(ctx context.Context, key string, cfg Config) (*RateLimit, error) {
	allowed, current, err := b.client.CheckRateLimit(ctx, key, cfg.Limit, cfg.Window)
	if err != nil {
		return nil, errors.InternalError("failed to check rate limit", err)
	}

	remaining := cfg.Limit - current - 1
	if remaining < 0 {
		remaining = 0
	}

	return &RateLimit{
		Limit:     cfg.Limit,
		Window:    cfg.Window,
		Remaining: remaining,
		ResetTime: time.Now().Add(cfg.Window),
		Allowed:   allowed,
	}, nil
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// localBackend keeps a token bucket per key. Buckets idle for two windows
// are dropped on the next check.
type localBackend struct {
	mu          sync.Mutex
	limiters    map[string]*limiterEntry
	lastCleanup time.Time
}

func (b *localBackend) check(ctx context.Context, key string, cfg Config) (*RateLimit, error) {
	now := time.Now()

	b.mu.Lock()
	b.cleanup(now, 2*cfg.Window)
	entry, ok := b.limiters[key]
	if !ok {
		entry = &limiterEntry{
			limiter: rate.NewLimiter(rate.Every(cfg.Window/time.Duration(cfg.Limit)), cfg.Limit),
		}
		b.limiters[key] = entry
	}
	entry.lastUsed = now
	b.mu.Unlock()

	allowed := entry.limiter.AllowN(now, 1)
	remaining := int(entry.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}

	return &RateLimit{
		Limit:     cfg.Limit,
		Window:    cfg.Window,
		Remaining: remaining,
		ResetTime: now.Add(cfg.Window),
		Allowed:   allowed,
	}, nil
}

func (b *localBackend) cleanup(now time.Time, idle time.Duration) {
	if now.Sub(b.lastCleanup) < idle {
		return
	}
	for key, entry := range b.limiters {
		if now.Sub(entry.lastUsed) > idle {
			delete(b.limiters, key)
		}
	}
	b.lastCleanup = now
}
