package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/bizcore/pkg/apperror"
	"go.uber.org/zap"
)

var ErrLockBusy = apperror.Conflict("operation_in_progress", "another request is processing this resource")

// Locker serializes work on a single resource across instances.
// A nil Locker grants every lock, which is the single-instance behavior.
type Locker struct {
	client *redislock.Client
	log    *zap.Logger
}

func NewLocker(client *redis.Client, log *zap.Logger) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{client: redislock.New(client), log: log.Named("ratelimit.locker")}
}

// Obtain acquires key for ttl. The returned release func is always safe to call.
func (l *Locker) Obtain(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if l == nil || l.client == nil {
		return func() {}, nil
	}
	if key == "" || ttl <= 0 {
		return nil, errors.New("lock key and ttl are required")
	}

	lock, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLockBusy
	}
	if err != nil {
		return nil, err
	}

	return func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.log.Warn("failed to release lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}
