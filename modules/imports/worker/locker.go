package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/iota-uz/bookkeeper/pkg/pglock"
)

// Locker elects the instance allowed to run a tick. release must be called once the tick ends.
type Locker interface {
	TryLock(ctx context.Context) (release func(), ok bool, err error)
}

// AdvisoryLocker holds a session-level pg_try_advisory_lock for the duration of one tick.
type AdvisoryLocker struct {
	pool *pgxpool.Pool
	name string
}

func NewAdvisoryLocker(pool *pgxpool.Pool, name string) *AdvisoryLocker {
	return &AdvisoryLocker{pool: pool, name: name}
}

func (l *AdvisoryLocker) TryLock(ctx context.Context) (func(), bool, error) {
	session, err := pglock.Acquire(ctx, l.pool, l.name)
	if err != nil {
		return nil, false, err
	}
	ok, err := session.TryLock(ctx)
	if err != nil || !ok {
		session.Close()
		return nil, false, err
	}
	return func() {
		_ = session.Unlock(context.Background())
		session.Close()
	}, true, nil
}

// releaseScript deletes the key only while it still carries our token, so an expired
// lock re-taken by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker is a SET NX PX lock. The TTL bounds how long a crashed holder blocks others.
type RedisLocker struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisLocker(client *redis.Client, key string, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisLocker{client: client, key: key, ttl: ttl}
}

func (l *RedisLocker) TryLock(ctx context.Context) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return func() {
		// on failure the key simply expires after ttl
		_ = releaseScript.Run(context.Background(), l.client, []string{l.key}, token).Err()
	}, true, nil
}
