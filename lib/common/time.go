package common

import (
	"sync"
	"time"

	"github.com/beevik/ntp"
)

const (
	TIMEFORMAT_ISO8601 string = "2006-01-02T15:04:05.000000000Z07:00"
)

func FormatISO8601(t time.Time) string {
	return t.Format(TIMEFORMAT_ISO8601)
}

func NowISO8601() string {
	return FormatISO8601(time.Now())
}

func ParseISO8601(s string) (time.Time, error) {
	return time.Parse(TIMEFORMAT_ISO8601, s)
}

// Clock is the source of "now" for poll classification. Poll windows are
// compared in unix seconds against block timestamps, so a skewed local clock
// shows polls as open or closed at the wrong moment.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// FixedClock always returns the same instant; used by tests and by `list
// --at`.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time {
	return c.T
}

type ntpQueryFunc func(host string) (time.Duration, error)

func queryNTPOffset(host string) (time.Duration, error) {
	resp, err := ntp.Query(host)
	if err != nil {
		return 0, err
	}
	if err = resp.Validate(); err != nil {
		return 0, err
	}

	return resp.ClockOffset, nil
}

// NTPClock corrects the system clock by the offset measured against an NTP
// server. A failed `Sync` keeps the previous offset.
type NTPClock struct {
	sync.RWMutex

	server string
	offset time.Duration
	query  ntpQueryFunc
}

func NewNTPClock(server string) *NTPClock {
	return &NTPClock{
		server: server,
		query:  queryNTPOffset,
	}
}

func (c *NTPClock) Sync() error {
	offset, err := c.query(c.server)
	if err != nil {
		log.Warn("failed to query ntp server", "server", c.server, "error", err)
		return err
	}

	c.Lock()
	c.offset = offset
	c.Unlock()

	log.Debug("clock offset updated", "server", c.server, "offset", offset)
	return nil
}

func (c *NTPClock) Offset() time.Duration {
	c.RLock()
	defer c.RUnlock()

	return c.offset
}

func (c *NTPClock) Now() time.Time {
	return time.Now().Add(c.Offset())
}
