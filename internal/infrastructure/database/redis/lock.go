package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/turtacn/mixingcompass/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/mixingcompass/pkg/errors"
)

var ErrLockNotAcquired = errors.New(errors.ErrCodeConflict, "lock is held by another owner")

// unlock deletes the key only if it still holds our token, so an expired
// lock reacquired by someone else is never released by us.
const unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// Locker hands out short-lived exclusive locks.  The CSV importer uses one
// to keep concurrent imports from interleaving their batch upserts.
type Locker struct {
	client *Client
	prefix string
	logger logging.Logger
}

func NewLocker(client *Client, log logging.Logger) *Locker {
	if log == nil {
		log = logging.Default()
	}
	return &Locker{client: client, prefix: "mixc:lock:", logger: log.Named("locker")}
}

// Acquire takes the named lock for at most ttl and returns a release
// function.  It fails immediately with ErrLockNotAcquired when the lock is
// already held; callers that want to wait retry on their own schedule.
func (l *Locker) Acquire(ctx context.Context, name string, ttl time.Duration) (release func(), err error) {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	key := l.prefix + name
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "lock acquire failed")
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}

	return func() {
		// Release on a fresh context: the caller's may already be done.
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := l.client.Eval(rctx, unlockScript, []string{key}, token).Err(); err != nil && err != goredis.Nil {
			l.logger.Warn("lock release failed",
				logging.String("lock", name), logging.Err(err))
		}
	}, nil
}
