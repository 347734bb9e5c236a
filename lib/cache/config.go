package cache

import (
	"boscoin.io/pollwatch/lib/common"
	"boscoin.io/pollwatch/lib/errors"
)

func NewAdapter(cfg common.Config) (Adapter, error) {
	switch cfg.CacheAdapter {
	case common.CacheMemoryAdapterName:
		return NewMemCacheAdapter(cfg.CachePoolSize), nil
	case common.CacheRedisAdapterName:
		if len(cfg.CacheRedisAddrs) < 1 {
			return nil, errors.CacheAdapterNotFound.Clone().SetData("error", "redis addresses must be given")
		}
		return NewRedisCacheAdapter(&RedisRingOptions{Addrs: cfg.CacheRedisAddrs}), nil
	case common.CacheNopAdapterName, "":
		return NewNopCacheAdapter(), nil
	default:
		return nil, errors.CacheAdapterNotFound.Clone().SetData("adapter", cfg.CacheAdapter)
	}
}
