// Package quota coordinates letter generations through Redis: a per-user lock
// so one user runs at most one generation at a time, and a fixed-window rate
// limit on generation attempts. The durable letter quota lives in the store.
package quota

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jimdaga/sop-studio/internal/logging"
	"github.com/redis/go-redis/v9"
)

// ErrBusy is returned by Acquire when the user already holds the lock.
var ErrBusy = errors.New("generation already in progress")

const defaultPrefix = "sopstudio"

var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// Options configures a Guard.
type Options struct {
	Prefix  string
	Limit   int
	Window  time.Duration
	LockTTL time.Duration
}

// Guard is safe for concurrent use. A nil *Guard allows everything.
type Guard struct {
	rdb    *redis.Client
	prefix string
	limit  int
	window time.Duration
	ttl    time.Duration
}

// NewGuard connects to redisURL. An empty URL returns a nil Guard.
func NewGuard(redisURL string, opts Options) (*Guard, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, nil
	}
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return NewGuardWithClient(redis.NewClient(redisOpts), opts), nil
}

// NewGuardWithClient wraps an existing client. A non-positive limit disables
// the rate limit; a non-positive LockTTL defaults to three minutes.
func NewGuardWithClient(client *redis.Client, opts Options) *Guard {
	prefix := strings.TrimSpace(opts.Prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	ttl := opts.LockTTL
	if ttl <= 0 {
		ttl = 3 * time.Minute
	}
	return &Guard{
		rdb:    client,
		prefix: prefix,
		limit:  opts.Limit,
		window: opts.Window,
		ttl:    ttl,
	}
}

// Allow counts one generation attempt for userID and reports whether it is
// within the window's limit.
func (g *Guard) Allow(ctx context.Context, userID uint) (bool, error) {
	if g == nil || g.limit <= 0 || g.window <= 0 {
		return true, nil
	}
	windowMs := g.window.Milliseconds()
	if windowMs <= 0 {
		return true, nil
	}
	slot := time.Now().UTC().UnixMilli() / windowMs
	key := fmt.Sprintf("%s:ratelimit:generate:%d:%d", g.prefix, userID, slot)

	count, err := fixedWindowScript.Run(ctx, g.rdb, []string{key}, windowMs).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}
	return count <= int64(g.limit), nil
}

// Acquire takes the per-user generation lock. The returned release func is
// always non-nil and safe to call more than once.
func (g *Guard) Acquire(ctx context.Context, userID uint) (func(), error) {
	if g == nil {
		return func() {}, nil
	}
	key := g.lockKey(userID)
	token := uuid.NewString()

	ok, err := g.rdb.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return func() {}, fmt.Errorf("failed to acquire generation lock: %w", err)
	}
	if !ok {
		return func() {}, ErrBusy
	}

	logger := logging.FromContext(ctx)
	released := false
	return func() {
		if released {
			return
		}
		released = true
		// the request context may already be cancelled
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		deleted, err := releaseScript.Run(releaseCtx, g.rdb, []string{key}, token).Int64()
		switch {
		case err != nil:
			logger.Warn("Failed to release generation lock, it stays held until its TTL expires",
				"user_id", userID, "ttl", g.ttl, "error", err)
		case deleted == 0:
			logger.Warn("Generation lock expired before release", "user_id", userID, "ttl", g.ttl)
		}
	}, nil
}

func (g *Guard) lockKey(userID uint) string {
	return fmt.Sprintf("%s:lock:generate:%d", g.prefix, userID)
}

// Ping checks the Redis connection.
func (g *Guard) Ping(ctx context.Context) error {
	if g == nil {
		return nil
	}
	return g.rdb.Ping(ctx).Err()
}

// Close closes the Redis client.
func (g *Guard) Close() error {
	if g == nil {
		return nil
	}
	return g.rdb.Close()
}
