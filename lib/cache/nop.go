package cache

import "time"

// NopCacheAdapter never remembers anything; every lookup goes to the chain.
type NopCacheAdapter struct{}

func NewNopCacheAdapter() *NopCacheAdapter {
	return &NopCacheAdapter{}
}

func (NopCacheAdapter) Get(string) (*Item, bool)     { return nil, false }
func (NopCacheAdapter) Set(string, *Item, time.Time) {}
func (NopCacheAdapter) Remove(string)                {}
