package cache

import (
	"time"

	"github.com/hashicorp/golang-lru"
)

type MemCacheAdapter struct {
	lruCache *lru.Cache
	now      func() time.Time
}

func NewMemCacheAdapter(size int) *MemCacheAdapter {
	lruCache, err := lru.New(size)
	if err != nil {
		panic(err)
	}

	return &MemCacheAdapter{
		lruCache: lruCache,
		now:      time.Now,
	}
}

func (a *MemCacheAdapter) Get(key string) (*Item, bool) {
	value, ok := a.lruCache.Get(key)
	if !ok {
		return nil, false
	}

	item, ok := value.(*Item)
	if !ok {
		return nil, false
	}
	if item.Expired(a.now()) {
		a.lruCache.Remove(key)
		return nil, false
	}

	return item, true
}

func (a *MemCacheAdapter) Set(key string, item *Item, expiration time.Time) {
	stored := *item
	stored.Expiration = expiration
	a.lruCache.Add(key, &stored)
}

func (a *MemCacheAdapter) Remove(key string) {
	a.lruCache.Remove(key)
}

func (a *MemCacheAdapter) Len() int {
	return a.lruCache.Len()
}
