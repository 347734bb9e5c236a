package poll

// Class is where a poll belongs at a given moment.
type Class string

const (
	SKIP     Class = "SKIP"
	PENDING  Class = "PENDING"
	ACTIVE   Class = "ACTIVE"
	ARCHIVED Class = "ARCHIVED"
)

// Classify places a record relative to now (unix seconds). The contract's
// `ended` flag always wins over the clock; a poll which is not ended and has
// not reached its start time is PENDING rather than ARCHIVED.
func Classify(r Record, now int64) Class {
	if r.IsPlaceholder() {
		return SKIP
	}
	if r.Ended {
		return ARCHIVED
	}
	if now >= r.StartTime {
		return ACTIVE
	}

	return PENDING
}

// IsOverdue is an ACTIVE poll whose end time already passed, but which the
// contract has not closed yet.
func IsOverdue(r Record, now int64) bool {
	return Classify(r, now) == ACTIVE && now > r.EndTime
}
