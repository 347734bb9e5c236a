package cache

import (
	"time"

	redisCache "github.com/go-redis/cache"
	"github.com/go-redis/redis"
	"github.com/vmihailenco/msgpack"
)

type RedisCacheAdapter struct {
	store *redisCache.Codec
}

type RedisRingOptions redis.RingOptions

func NewRedisCacheAdapter(opt *RedisRingOptions) *RedisCacheAdapter {
	ropt := redis.RingOptions(*opt)
	return &RedisCacheAdapter{
		&redisCache.Codec{
			Redis: redis.NewRing(&ropt),
			Marshal: func(v interface{}) ([]byte, error) {
				return msgpack.Marshal(v)
			},
			Unmarshal: func(b []byte, v interface{}) error {
				return msgpack.Unmarshal(b, v)
			},
		},
	}
}

func (a *RedisCacheAdapter) Get(key string) (*Item, bool) {
	var item Item
	if err := a.store.Get(key, &item); err != nil {
		if err != redisCache.ErrCacheMiss {
			log.Debug("failed to get from redis", "key", key, "error", err)
		}
		return nil, false
	}
	return &item, true
}

func (a *RedisCacheAdapter) Set(key string, item *Item, expiration time.Time) {
	var e time.Duration
	if !expiration.IsZero() {
		if e = time.Until(expiration); e <= 0 {
			return
		}
	}

	stored := *item
	stored.Expiration = expiration
	if err := a.store.Set(&redisCache.Item{
		Key:        key,
		Object:     &stored,
		Expiration: e,
	}); err != nil {
		log.Debug("failed to set to redis", "key", key, "error", err)
	}
}

func (a *RedisCacheAdapter) Remove(key string) {
	a.store.Delete(key)
}
