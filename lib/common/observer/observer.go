package observer

import (
	"fmt"

	"github.com/GianlucaGuarini/go-observable"
)

// RefreshObserver gets every published refresh view, and per poll events for
// the polls in it.
var RefreshObserver = observable.New()

// ActionObserver gets mined votes and poll creations.
var ActionObserver = observable.New()

const (
	EventRefresh = "refresh"
	EventVote    = "vote"
	EventCreate  = "create"

	ConditionAll  = "*"
	ConditionPoll = "poll"
)

type Event struct {
	Name      string `json:"name"`
	Condition string `json:"condition"`
	Id        string `json:"id"`
}

func NewEvent(name, condition, id string) Event {
	return Event{
		Name:      name,
		Condition: condition,
		Id:        id,
	}
}

// NewPollEvent is the event fired for one poll on each refresh.
func NewPollEvent(name string, pollID uint64) Event {
	return NewEvent(name, ConditionPoll, fmt.Sprintf("%d", pollID))
}

// String is the name the event is triggered under, eg. "refresh-*" or
// "refresh-poll=3".
func (e Event) String() string {
	toStr := e.Name + "-"
	if e.Condition == ConditionAll {
		toStr += e.Condition
	} else {
		toStr += e.Condition + "="
		toStr += e.Id
	}
	return toStr
}

// All is the event fired once for everything of name.
func All(name string) Event {
	return NewEvent(name, ConditionAll, "")
}
