package data

import (
	"context"
	"errors"
	"time"

	"describe-service/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redsync/redsync/v4"
)

// redisLocker 基于 redsync 的跨实例锁
type redisLocker struct {
	sync *redsync.Redsync
	log  *log.Helper
}

// NewRedisLocker 创建锁
func NewRedisLocker(sync *redsync.Redsync, logger log.Logger) biz.Locker {
	return &redisLocker{
		sync: sync,
		log:  log.NewHelper(logger),
	}
}

// TryLock 只尝试一次，锁被占用时返回 biz.ErrLockHeld
func (l *redisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	mutex := l.sync.NewMutex(key, redsync.WithExpiry(ttl), redsync.WithTries(1))
	if err := mutex.LockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) {
			return nil, biz.ErrLockHeld
		}
		return nil, err
	}
	return func() {
		if ok, err := mutex.Unlock(); !ok || err != nil {
			l.log.Warnf("Failed to unlock: key=%s, error=%v", key, err)
		}
	}, nil
}
