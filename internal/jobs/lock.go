package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Locker guards a cadence so it fires on one instance at a time.
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(), acquired bool, err error)
}

// NoopLocker always grants the lock.
type NoopLocker struct{}

func (NoopLocker) Acquire(context.Context, string, time.Duration) (func(), bool, error) {
	return func() {}, true, nil
}

const lockPrefix = "deskpilot:lock:"

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker takes a SET NX lock in redis.
type RedisLocker struct {
	client redis.UniversalClient
}

// NewRedisLocker wraps client.
func NewRedisLocker(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (func(), bool, error) {
	key := lockPrefix + name
	token := uuid.NewString()
	acquired, errSet := l.client.SetNX(ctx, key, token, ttl).Result()
	if errSet != nil {
		return nil, false, errSet
	}
	if !acquired {
		return nil, false, nil
	}
	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if errRelease := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); errRelease != nil {
			log.WithError(errRelease).Warnf("jobs: failed to release lock %s", key)
		}
	}
	return release, true, nil
}
