package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// releaseScript deletes the key only if it still holds our token.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`

// Redis is a Locker backed by SET NX PX.
type Redis struct {
	client   redis.Cmdable
	prefix   string
	ttl      time.Duration
	newToken func() string
}

// NewRedis creates a Redis-backed locker. Keys are namespaced under prefix and
// expire after ttl so a crashed holder cannot block forever.
func NewRedis(client redis.Cmdable, prefix string, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Redis{
		client:   client,
		prefix:   prefix,
		ttl:      ttl,
		newToken: uuid.NewString,
	}
}

// Acquire takes key if free.
func (r *Redis) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	full := r.prefix + key
	token := r.newToken()

	ok, err := r.client.SetNX(ctx, full, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", full, err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}

	return func(ctx context.Context) error {
		if err := r.client.Eval(ctx, releaseScript, []string{full}, token).Err(); err != nil && err != redis.Nil {
			return fmt.Errorf("release %s: %w", full, err)
		}
		return nil
	}, nil
}

var _ Locker = (*Redis)(nil)
