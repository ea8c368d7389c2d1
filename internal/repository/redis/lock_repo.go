package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/DRSN-tech/imgshrink/internal/cfg"
	"github.com/DRSN-tech/imgshrink/pkg/clients"
	"github.com/DRSN-tech/imgshrink/pkg/e"
	"github.com/DRSN-tech/imgshrink/pkg/jitter"
	"github.com/DRSN-tech/imgshrink/pkg/logger"
	"github.com/google/uuid"
	"github.com/jimlawless/whereami"
	r "github.com/redis/go-redis/v9"
)

const (
	retryBase    = 10 * time.Millisecond
	retryMax     = 200 * time.Millisecond
	releaseLimit = 2 * time.Second
)

// releaseScript удаляет ключ, только если он всё ещё принадлежит владельцу токена.
var releaseScript = r.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockRepo — блокировка ключа артефакта через SET NX PX.
// TTL ограничивает время удержания, если процесс упал, не освободив ключ.
type LockRepo struct {
	client *clients.RedisClient
	cfg    *cfg.LockCfg
	logger logger.Logger
}

func NewLockRepo(client *clients.RedisClient, cfg *cfg.LockCfg, logger logger.Logger) *LockRepo {
	return &LockRepo{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// Acquire ждёт освобождения ключа с экспоненциальной задержкой, пока не истечёт ctx.
func (l *LockRepo) Acquire(ctx context.Context, key string) (func(), error) {
	for attempt := 0; ; attempt++ {
		release, ok, err := l.TryAcquire(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			return release, nil
		}

		select {
		case <-time.After(jitter.ExponentialBackoff(retryBase, retryMax, attempt, jitter.DefaultJitter)):
		case <-ctx.Done():
			return nil, e.Wrap(fmt.Sprintf("acquire lock for %s", key), ctx.Err())
		}
	}
}

// TryAcquire пытается взять ключ один раз.
func (l *LockRepo) TryAcquire(ctx context.Context, key string) (func(), bool, error) {
	token := uuid.NewString()
	redisKey := l.lockKey(key)

	ok, err := l.client.Client.SetNX(ctx, redisKey, token, l.cfg.TTL).Result()
	if err != nil {
		return nil, false, e.Wrap(whereami.WhereAmI(), err)
	}
	if !ok {
		return nil, false, nil
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			// ctx запроса мог быть уже отменён
			relCtx, cancel := context.WithTimeout(context.Background(), releaseLimit)
			defer cancel()

			if err := l.release(relCtx, redisKey, token); err != nil {
				l.logger.Warnf("Redis lock release failed for %s: %v", redisKey, err)
			}
		})
	}

	return release, true, nil
}

func (l *LockRepo) release(ctx context.Context, redisKey, token string) error {
	n, err := releaseScript.Run(ctx, l.client.Client, []string{redisKey}, token).Int()
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if n == 0 {
		return e.ErrLockNotOwned
	}
	return nil
}

// lockKey возвращает Redis-ключ блокировки для имени артефакта
func (l *LockRepo) lockKey(key string) string {
	return l.cfg.Prefix + key
}
