package poll

import (
	"fmt"
	"strings"
	"time"
)

// Record is one voting session as returned by the contract. It is a
// snapshot; nothing in this package changes it.
type Record struct {
	ID        uint64 `json:"id" yaml:"id"`
	StartTime int64  `json:"start_time" yaml:"start_time"`
	EndTime   int64  `json:"end_time" yaml:"end_time"`
	VotesForA uint64 `json:"votes_for_a" yaml:"votes_for_a"`
	VotesForB uint64 `json:"votes_for_b" yaml:"votes_for_b"`
	Ended     bool   `json:"ended" yaml:"ended"`
}

// IsPlaceholder reports a session slot the contract has not filled yet.
func (r Record) IsPlaceholder() bool {
	return r.StartTime == 0 && r.EndTime == 0
}

func (r Record) Start() time.Time {
	return time.Unix(r.StartTime, 0)
}

func (r Record) End() time.Time {
	return time.Unix(r.EndTime, 0)
}

func (r Record) TotalVotes() uint64 {
	return r.VotesForA + r.VotesForB
}

// Leader returns the choice with more votes; ties and empty polls have no
// leader.
func (r Record) Leader() (Choice, bool) {
	switch {
	case r.VotesForA > r.VotesForB:
		return ChoiceA, true
	case r.VotesForB > r.VotesForA:
		return ChoiceB, true
	default:
		return ChoiceA, false
	}
}

func (r Record) String() string {
	return fmt.Sprintf(
		"poll#%d start=%d end=%d a=%d b=%d ended=%t",
		r.ID, r.StartTime, r.EndTime, r.VotesForA, r.VotesForB, r.Ended,
	)
}

// Choice is the vote value; the contract takes it as `voteForA bool`.
type Choice bool

const (
	ChoiceA Choice = true
	ChoiceB Choice = false
)

var (
	LabelA = "Alice"
	LabelB = "Bob"
)

func (c Choice) VoteForA() bool {
	return bool(c)
}

func (c Choice) String() string {
	if c == ChoiceA {
		return LabelA
	}
	return LabelB
}

// ParseChoice accepts "a"/"b" or the labels, case-insensitively.
func ParseChoice(s string) (Choice, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "a", strings.ToLower(LabelA):
		return ChoiceA, true
	case "b", strings.ToLower(LabelB):
		return ChoiceB, true
	}

	return ChoiceA, false
}
