package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only when it still holds our
// token, so an expired lock reacquired by another poller is never
// released by us.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0`

// WorkspaceLock serializes monitor passes per workspace across
// processes. Overlapping polls for the same tenant must not both run
// the check-then-create sequence.
type WorkspaceLock struct {
	client *redis.Client
}

// NewWorkspaceLock builds a lock manager on top of the shared client.
func NewWorkspaceLock(r *Redis) *WorkspaceLock {
	if r == nil {
		return &WorkspaceLock{}
	}
	return &WorkspaceLock{client: r.Client}
}

// Acquire attempts to take the per-workspace monitor lock. It returns
// false when another poller currently holds it. The returned release
// function is safe to call after the TTL has lapsed.
func (l *WorkspaceLock) Acquire(ctx context.Context, workspaceID string, ttl time.Duration) (bool, func(context.Context), error) {
	if l == nil || l.client == nil {
		return false, nil, errors.New("redis client not configured")
	}

	key := "crisis:monitor:lock:" + workspaceID
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return false, nil, err
	}
	if !ok {
		return false, nil, nil
	}

	release := func(ctx context.Context) {
		_ = l.client.Eval(ctx, releaseScript, []string{key}, token).Err()
	}
	return true, release, nil
}
