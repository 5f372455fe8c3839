package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultLockTTL = 30 * time.Second

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// UserLocks hands out the per-user locks that serialize checkout. At most one
// checkout per user may run at a time; a second attempt sees Acquire return
// false and fails fast instead of waiting.
type UserLocks struct {
	client lockStore
	keyFn  func(userID int64) string
	ttl    time.Duration
}

// NewUserLocks builds the lock factory. keyFn maps a user ID to its Redis key.
func NewUserLocks(client lockStore, keyFn func(int64) string, ttl time.Duration) (*UserLocks, error) {
	if client == nil {
		return nil, errors.New("redis client required for checkout locks")
	}
	if keyFn == nil {
		return nil, errors.New("lock key function required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &UserLocks{client: client, keyFn: keyFn, ttl: ttl}, nil
}

// ForUser returns an unacquired lock for the given user.
func (f *UserLocks) ForUser(userID int64) *userLock {
	return &userLock{client: f.client, key: f.keyFn(userID), ttl: f.ttl}
}

// userLock is a single-use Redis SETNX lock. The TTL caps how long a crashed
// checkout can keep a user locked out.
type userLock struct {
	client lockStore
	key    string
	ttl    time.Duration
	owner  string
}

func (l *userLock) Acquire(ctx context.Context) (bool, error) {
	owner := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx: %w", err)
	}
	if ok {
		l.owner = owner
	}
	return ok, nil
}

// Release frees the lock only while this holder still owns it. A lock that
// expired and was re-acquired by a later checkout is left alone.
func (l *userLock) Release(ctx context.Context) error {
	if l.owner == "" {
		return nil
	}
	value, err := l.client.Get(ctx, l.key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("read lock owner: %w", err)
	}
	if value != l.owner {
		return nil
	}
	if err := l.client.Del(ctx, l.key); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	l.owner = ""
	return nil
}
