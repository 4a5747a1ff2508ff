package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/bryanwahyu/launchlens/internal/infra/logger"
)

// release deletes the key only if it still holds our token.
var release = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is an in-flight guard shared by every API replica. A lock expires after
// ttl so a crashed holder cannot block the user forever.
type Redis struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	log    *logger.Logger
}

func NewRedis(ctx context.Context, addr, password string, db int, ttl time.Duration, log *logger.Logger) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Redis{rdb: rdb, ttl: ttl, prefix: "launchlens:lock:", log: log.With("component", "RedisLock")}, nil
}

// TryLock implements ideas.Locker.
func (r *Redis) TryLock(ctx context.Context, key string) (func(), bool, error) {
	token := uuid.NewString()
	full := r.prefix + key
	ok, err := r.rdb.SetNX(ctx, full, token, r.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis setnx %s: %w", full, err)
	}
	if !ok {
		return nil, false, nil
	}
	return func() {
		// the request context may already be cancelled
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := release.Run(ctx, r.rdb, []string{full}, token).Err(); err != nil {
			r.log.Warn("release lock failed", "key", full, "error", err)
		}
	}, true, nil
}

// Ping lets the health endpoint check the connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
