// Package ratelimit provides fixed-window request limiters keyed by caller.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	// RetryAfter is the time until the current window resets.
	RetryAfter time.Duration
}

// Limiter counts hits per key within a fixed window.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Memory is an in-process fixed-window limiter.
type Memory struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*memoryWindow
}

type memoryWindow struct {
	count int
	reset time.Time
}

// NewMemory returns a limiter allowing limit hits per window.
func NewMemory(limit int, window time.Duration) *Memory {
	return &Memory{limit: limit, window: window, now: time.Now, windows: map[string]*memoryWindow{}}
}

// Allow implements Limiter.
func (m *Memory) Allow(_ context.Context, key string) (Decision, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[key]
	if !ok || !now.Before(w.reset) {
		w = &memoryWindow{reset: now.Add(m.window)}
		m.windows[key] = w
		m.sweep(now)
	}
	w.count++
	return decide(w.count, m.limit, w.reset.Sub(now)), nil
}

// sweep drops expired windows so idle keys do not accumulate.
func (m *Memory) sweep(now time.Time) {
	for key, w := range m.windows {
		if !now.Before(w.reset) {
			delete(m.windows, key)
		}
	}
}

// Redis is a fixed-window limiter shared across processes through Redis.
type Redis struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

// incrScript increments the counter and starts the window on the first hit.
var incrScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

// NewRedis connects to the Redis server at rawURL.
func NewRedis(rawURL, prefix string, limit int, window time.Duration) (*Redis, error) {
	opts, errParse := redis.ParseURL(strings.TrimSpace(rawURL))
	if errParse != nil {
		return nil, fmt.Errorf("ratelimit: parse redis url: %w", errParse)
	}
	opts.DialTimeout = 2 * time.Second
	opts.ReadTimeout = time.Second
	opts.WriteTimeout = time.Second
	return NewRedisWithClient(redis.NewClient(opts), prefix, limit, window), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, prefix string, limit int, window time.Duration) *Redis {
	prefix = strings.TrimRight(prefix, ":")
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &Redis{client: client, prefix: prefix, limit: limit, window: window}
}

// Key returns the Redis key used for a caller.
func (r *Redis) Key(key string) string {
	return r.prefix + ":" + key
}

// Allow implements Limiter.
func (r *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	res, err := incrScript.Run(ctx, r.client, []string{r.Key(key)}, r.window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: redis: %w", err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("ratelimit: unexpected redis reply %v", res)
	}
	ttl := time.Duration(res[1]) * time.Millisecond
	if ttl < 0 {
		ttl = r.window
	}
	return decide(int(res[0]), r.limit, ttl), nil
}

// Close releases the Redis connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

func decide(count, limit int, retryAfter time.Duration) Decision {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: count <= limit, Remaining: remaining, RetryAfter: retryAfter}
}
