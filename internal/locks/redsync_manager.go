// Package locks serializes work on a single resource across broker instances.
//
// The Redis implementation uses the Redlock algorithm from go-redsync/redsync/v4.
// It guards the OAuth refresh-token grant: CRM refresh tokens rotate on use,
// so two instances refreshing the same connection at once would leave one of
// them holding a revoked token.
//
// Example:
//
//	redisClient, err := redis.NewClient(&redis.Config{
//		Address: "localhost:6379",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	locker, err := locks.NewRedsyncLocker(redisClient, 30*time.Second)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	unlock, err := locker.Lock(ctx, "oauth2:refresh:"+conn.ID)
//	if err != nil {
//		return err
//	}
//	defer unlock()
package locks

import (
	"context"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v8"

	"connection-broker/internal/common/errors"
	"connection-broker/internal/redis"
)

// DefaultExpiry bounds how long a crashed holder can block others
const DefaultExpiry = 30 * time.Second

// Locker acquires an exclusive lock on key. The returned function releases it.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// RedsyncLocker implements Locker with redsync mutexes stored under "lock:{key}".
type RedsyncLocker struct {
	redsync *redsync.Redsync
	expiry  time.Duration
}

// NewRedsyncLocker creates a Locker backed by the given Redis client.
//
// Parameters:
//   - redisClient: A connected Redis client instance
//   - expiry: Lock lifetime; values <= 0 use DefaultExpiry
//
// Returns:
//   - *RedsyncLocker: A new locker
//   - error: A configuration error if redisClient is nil
func NewRedsyncLocker(redisClient *redis.Client, expiry time.Duration) (*RedsyncLocker, error) {
	if redisClient == nil {
		return nil, errors.ConfigError("redis client is required")
	}
	if expiry <= 0 {
		expiry = DefaultExpiry
	}

	pool := goredis.NewPool(redisClient.GetGoRedisClient())

	return &RedsyncLocker{
		redsync: redsync.New(pool),
		expiry:  expiry,
	}, nil
}

// Lock blocks until the lock is acquired, ctx is done, or redsync gives up.
func (l *RedsyncLocker) Lock(ctx context.Context, key string) (func(), error) {
	mutex := l.redsync.NewMutex("lock:"+key, redsync.WithExpiry(l.expiry))

	if err := mutex.LockContext(ctx); err != nil {
		return nil, errors.InternalError("failed to acquire distributed lock", err)
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		mutex.UnlockContext(ctx)
	}, nil
}

// LocalLocker implements Locker within a single process. It is used when no
// Redis server is configured.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewLocalLocker creates an in-process Locker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]chan struct{})}
}

// Lock blocks until key is free or ctx is done.
func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	ch, ok := l.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[key] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-ctx.Done():
		return nil, errors.InternalError("failed to acquire lock", ctx.Err())
	}
}

var (
	_ Locker = (*RedsyncLocker)(nil)
	_ Locker = (*LocalLocker)(nil)
)
