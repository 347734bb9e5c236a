package poll

// HasVotedFunc answers whether voter already voted in the poll.
type HasVotedFunc func(voter string, pollID uint64) (bool, error)

// CanVote is true only for an ACTIVE poll in which the voter has not voted
// yet. An unknown voter, a missing lookup or a failed lookup all mean no.
func CanVote(r Record, now int64, voter string, hasVoted HasVotedFunc) bool {
	if Classify(r, now) != ACTIVE {
		return false
	}
	if len(voter) < 1 || hasVoted == nil {
		return false
	}

	voted, err := hasVoted(voter, r.ID)
	if err != nil {
		return false
	}

	return !voted
}

// Partition splits records into ongoing and archived, keeping ascending id
// order. Placeholders and PENDING polls are in neither list.
func Partition(records []Record, now int64) (ongoing, archived []Record) {
	for _, r := range sortedByID(records) {
		switch Classify(r, now) {
		case ACTIVE:
			ongoing = append(ongoing, r)
		case ARCHIVED:
			archived = append(archived, r)
		}
	}

	return
}

// Entry is a record with everything needed to render it.
type Entry struct {
	Record `yaml:",inline"`

	Class    Class  `json:"class" yaml:"class"`
	Timer    string `json:"timer" yaml:"timer"`
	Overdue  bool   `json:"overdue" yaml:"overdue"`
	Voted    bool   `json:"voted" yaml:"voted"`
	CanVote  bool   `json:"can_vote" yaml:"can_vote"`
	Stale    bool   `json:"stale" yaml:"stale"`
	LookupOK bool   `json:"-" yaml:"-"`
}

// Reconciliation is the result of one pass over the records. `Skipped` holds
// the ids of placeholder slots.
type Reconciliation struct {
	Now      int64    `json:"now" yaml:"now"`
	Voter    string   `json:"voter,omitempty" yaml:"voter,omitempty"`
	Ongoing  []Entry  `json:"ongoing" yaml:"ongoing"`
	Archived []Entry  `json:"archived" yaml:"archived"`
	Pending  []Entry  `json:"pending" yaml:"pending"`
	Skipped  []uint64 `json:"skipped" yaml:"skipped"`
}

// Len counts every non-placeholder entry.
func (r Reconciliation) Len() int {
	return len(r.Ongoing) + len(r.Archived) + len(r.Pending)
}

// Find looks a poll up in any of the lists.
func (r Reconciliation) Find(id uint64) (Entry, bool) {
	for _, l := range [][]Entry{r.Ongoing, r.Archived, r.Pending} {
		for _, e := range l {
			if e.ID == id {
				return e, true
			}
		}
	}

	return Entry{}, false
}

// Reconcile classifies every record for voter at now. hasVoted is only asked
// about ACTIVE polls; stale marks ids whose record came from a previous
// refresh.
func Reconcile(records []Record, now int64, voter string, hasVoted HasVotedFunc, stale map[uint64]bool) Reconciliation {
	rc := Reconciliation{
		Now:      now,
		Voter:    voter,
		Ongoing:  []Entry{},
		Archived: []Entry{},
		Pending:  []Entry{},
		Skipped:  []uint64{},
	}

	for _, r := range sortedByID(records) {
		class := Classify(r, now)
		if class == SKIP {
			rc.Skipped = append(rc.Skipped, r.ID)
			continue
		}

		e := Entry{
			Record:  r,
			Class:   class,
			Timer:   RemainingOrElapsed(r, now),
			Overdue: IsOverdue(r, now),
			Stale:   stale[r.ID],
		}

		switch class {
		case ACTIVE:
			if len(voter) > 0 && hasVoted != nil {
				voted, err := hasVoted(voter, r.ID)
				e.LookupOK = err == nil
				e.Voted = err == nil && voted
				e.CanVote = err == nil && !voted
			}
			rc.Ongoing = append(rc.Ongoing, e)
		case ARCHIVED:
			rc.Archived = append(rc.Archived, e)
		case PENDING:
			rc.Pending = append(rc.Pending, e)
		}
	}

	return rc
}
