package observer

import (
	"testing"

	"github.com/GianlucaGuarini/go-observable"
	"github.com/stretchr/testify/require"
)

func TestEventString(t *testing.T) {
	require.Equal(t, "refresh-*", All(EventRefresh).String())
	require.Equal(t, "refresh-poll=3", NewPollEvent(EventRefresh, 3).String())
	require.Equal(t, "vote-poll=0", NewPollEvent(EventVote, 0).String())
}

func TestTriggerByEvent(t *testing.T) {
	ob := observable.New()

	var got []interface{}
	onFunc := func(args ...interface{}) {
		got = append(got, args...)
	}

	ob.On(NewPollEvent(EventRefresh, 1).String(), onFunc)
	defer ob.Off(NewPollEvent(EventRefresh, 1).String(), onFunc)

	ob.Trigger(NewPollEvent(EventRefresh, 2).String(), "other")
	ob.Trigger(NewPollEvent(EventRefresh, 1).String(), "mine")

	require.Equal(t, []interface{}{"mine"}, got)
}
