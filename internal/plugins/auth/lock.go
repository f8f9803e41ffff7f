package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// sessionLockPrefix is the Redis key prefix for per-user session locks.
const sessionLockPrefix = "session-lock:"

// sessionLockLease bounds how long a crashed holder can block a user.
const sessionLockLease = 10 * time.Second

// ErrLockTimeout is returned when the per-user lock could not be acquired
// within the configured wait.
var ErrLockTimeout = errors.New("session lock wait exceeded")

// SessionLocker serializes the revoke-then-insert sequence per user so at
// most one refresh token per user is ever valid.
type SessionLocker interface {
	Lock(ctx context.Context, userID int64) (unlock func(), err error)
}

// releaseScript deletes the key only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements SessionLocker with SET NX PX and an owner token.
type RedisLocker struct {
	redis *redis.Client
	wait  time.Duration
	lease time.Duration
}

// NewRedisLocker creates a locker that waits up to wait for each lock.
func NewRedisLocker(rdb *redis.Client, wait time.Duration) *RedisLocker {
	return &RedisLocker{redis: rdb, wait: wait, lease: sessionLockLease}
}

// Lock blocks until the user's lock is held, the wait elapses, or ctx ends.
func (l *RedisLocker) Lock(ctx context.Context, userID int64) (func(), error) {
	key := sessionLockPrefix + strconv.FormatInt(userID, 10)
	owner := uuid.NewString()

	deadline := time.Now().Add(l.wait)
	backoff := 10 * time.Millisecond

	for {
		ok, err := l.redis.SetNX(ctx, key, owner, l.lease).Result()
		if err != nil {
			return nil, fmt.Errorf("acquiring session lock: %w", err)
		}
		if ok {
			break
		}
		if time.Now().Add(backoff).After(deadline) {
			return nil, ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, 200*time.Millisecond)
	}

	unlock := func() {
		// Release on a fresh context so a cancelled request still frees the key.
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.redis, []string{key}, owner).Err(); err != nil {
			slog.Warn("failed to release session lock",
				slog.Int64("user_id", userID),
				slog.Any("error", err),
			)
		}
	}
	return unlock, nil
}

// NoopLocker performs no locking. Two concurrent logins of the same user
// may then both observe the old token as live and each insert a new one.
type NoopLocker struct{}

// Lock returns immediately.
func (NoopLocker) Lock(context.Context, int64) (func(), error) {
	return func() {}, nil
}
