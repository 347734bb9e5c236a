package cache

import "time"

type Adapter interface {
	Get(key string) (*Item, bool)
	Set(key string, item *Item, expiration time.Time)
	Remove(key string)
}

// Item is a cached answer. A zero Expiration never expires.
type Item struct {
	Value      string
	Expiration time.Time
}

func (i *Item) Expired(now time.Time) bool {
	return !i.Expiration.IsZero() && !now.Before(i.Expiration)
}
