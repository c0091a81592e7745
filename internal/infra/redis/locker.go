package redis

import (
	"context"
	"time"

	"blitz-trivia-service/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a best-effort distributed mutex built on SET NX PX. The lease
// bounds how long a crashed holder can block others; it must exceed the
// longest critical section (mint timeout included).
type Locker struct {
	client *redis.Client
	lease  time.Duration
	wait   time.Duration
	poll   time.Duration
}

func NewLocker(client *redis.Client, lease, wait time.Duration) *Locker {
	return &Locker{client: client, lease: lease, wait: wait, poll: 25 * time.Millisecond}
}

// Lock polls for the key until acquired, ctx is done or the wait budget runs
// out, in which case it returns ErrClaimBusy.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	key = "lock:" + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.lease).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				_ = releaseScript.Run(context.Background(), l.client, []string{key}, token).Err()
			}, nil
		}
		if !time.Now().Before(deadline) {
			return nil, domain.ErrClaimBusy
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.poll):
		}
	}
}
