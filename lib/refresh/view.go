package refresh

import (
	"time"

	"boscoin.io/pollwatch/lib/poll"
)

// View is one published refresh.
type View struct {
	poll.Reconciliation `yaml:",inline"`

	Sequence  uint64        `json:"sequence" yaml:"sequence"`
	Watcher   string        `json:"watcher" yaml:"watcher"`
	FetchedAt time.Time     `json:"fetched_at" yaml:"fetched_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	Count     uint64        `json:"count" yaml:"count"`

	// Failed lists polls which could not be read and had no stored
	// snapshot either.
	Failed []uint64 `json:"failed" yaml:"failed"`

	// Offline is set when the poll count itself could not be read and the
	// whole view comes from the snapshot store.
	Offline bool `json:"offline" yaml:"offline"`
}

// StaleCount is the number of entries shown from the snapshot store.
func (v *View) StaleCount() (n int) {
	for _, l := range [][]poll.Entry{v.Ongoing, v.Archived, v.Pending} {
		for _, e := range l {
			if e.Stale {
				n++
			}
		}
	}

	return
}
