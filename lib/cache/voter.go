package cache

import (
	"fmt"
	"strings"
	"time"
)

const valueTrue = "1"

// VoterCache remembers answers that can never change back: once an address
// has voted in a poll it stays voted. Negative answers are never stored.
// The admin address is kept for AdminTTL only.
type VoterCache struct {
	adapter  Adapter
	prefix   string
	AdminTTL time.Duration
}

// NewVoterCache scopes all keys to the given contract so one redis can serve
// several deployments.
func NewVoterCache(adapter Adapter, contract string) *VoterCache {
	return &VoterCache{
		adapter:  adapter,
		prefix:   strings.ToLower(contract) + "/",
		AdminTTL: 10 * time.Minute,
	}
}

func (c *VoterCache) votedKey(pollID uint64, voter string) string {
	return fmt.Sprintf("%svoted-%d-%s", c.prefix, pollID, strings.ToLower(voter))
}

func (c *VoterCache) adminKey() string {
	return c.prefix + "admin"
}

// HasVoted is true only when a positive answer was cached before.
func (c *VoterCache) HasVoted(pollID uint64, voter string) bool {
	item, found := c.adapter.Get(c.votedKey(pollID, voter))
	return found && item.Value == valueTrue
}

func (c *VoterCache) SetVoted(pollID uint64, voter string) {
	c.adapter.Set(c.votedKey(pollID, voter), &Item{Value: valueTrue}, time.Time{})
}

func (c *VoterCache) Admin() (string, bool) {
	item, found := c.adapter.Get(c.adminKey())
	if !found || len(item.Value) < 1 {
		return "", false
	}
	return item.Value, true
}

func (c *VoterCache) SetAdmin(address string) {
	c.adapter.Set(c.adminKey(), &Item{Value: address}, time.Now().Add(c.AdminTTL))
}

func (c *VoterCache) ForgetAdmin() {
	c.adapter.Remove(c.adminKey())
}
