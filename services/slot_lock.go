package services

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// SlotLocker serializes writes to one instructor's calendar.
type SlotLocker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// NewSlotLocker returns a Redis-backed locker, or an in-process one when
// client is nil.
func NewSlotLocker(client *redis.Client) SlotLocker {
	if client == nil {
		return NewLocalSlotLocker()
	}
	return &RedisSlotLocker{client: client, retry: 50 * time.Millisecond, attempts: 40}
}

// RedisSlotLocker uses SETNX with a per-holder token so one holder never
// releases another's lock.
type RedisSlotLocker struct {
	client   *redis.Client
	retry    time.Duration
	attempts int
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

func (l *RedisSlotLocker) Lock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	key = "studioops:lock:" + key
	for i := 0; i < l.attempts; i++ {
		ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				releaseScript.Run(context.Background(), l.client, []string{key}, token)
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}
	return nil, ErrSlotLocked
}

// LocalSlotLocker is the single-process fallback. ttl is ignored.
type LocalSlotLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewLocalSlotLocker() *LocalSlotLocker {
	return &LocalSlotLocker{slots: make(map[string]chan struct{})}
}

func (l *LocalSlotLocker) Lock(ctx context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
