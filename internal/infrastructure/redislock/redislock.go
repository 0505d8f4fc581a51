package redislock

import (
	"context"
	"fmt"
	"time"

	"github.com/logbook-api/internal/pkg/id"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "logbook:lock:"

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Locker hands out short-lived, token-guarded locks.
type Locker struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func New(client *redis.Client, ttl time.Duration, log *zap.Logger) *Locker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Locker{client: client, ttl: ttl, log: log}
}

// TryLock acquires key without waiting. ok is false when another holder has it.
// The lock expires after the configured TTL even if unlock is never called.
func (l *Locker) TryLock(ctx context.Context, key string) (func(), bool, error) {
	token := id.New()
	full := keyPrefix + key
	ok, err := l.client.SetNX(ctx, full, token, l.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	unlock := func() {
		// The request context may already be done.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{full}, token).Err(); err != nil {
			l.log.Warn("release lock", zap.String("key", full), zap.Error(err))
		}
	}
	return unlock, true, nil
}
