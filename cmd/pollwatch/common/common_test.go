package common

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"boscoin.io/pollwatch/lib/errors"
)

func TestEncoders(t *testing.T) {
	v := map[string]interface{}{"sequence": 3}

	var b bytes.Buffer
	require.NoError(t, DefaultEncodes["json"](v, &b))
	require.Equal(t, "{\"sequence\":3}\n", b.String())

	b.Reset()
	require.NoError(t, DefaultEncodes["prettyjson"](v, &b))
	require.Equal(t, "{\n  \"sequence\": 3\n}\n", b.String())

	b.Reset()
	require.NoError(t, DefaultEncodes["yaml"](v, &b))
	require.Equal(t, "sequence: 3\n", b.String())

	require.True(t, IsKnownFormat(FormatText))
	require.True(t, IsKnownFormat("yaml"))
	require.False(t, IsKnownFormat("xml"))
}

func TestParseTime(t *testing.T) {
	at, err := ParseTime("1500")
	require.NoError(t, err)
	require.Equal(t, int64(1500), at.Unix())

	at, err = ParseTime("2024-05-01T10:00:00Z")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC).Unix(), at.Unix())

	at, err = ParseTime(" ")
	require.NoError(t, err)
	require.True(t, at.IsZero())

	_, err = ParseTime("tomorrow")
	require.Error(t, err)
}

func TestErrorString(t *testing.T) {
	err := errors.PollEnded.Clone().SetData("poll", 3)
	require.Equal(t, "voting period has ended (poll=3)", ErrorString(err))
	require.Equal(t, "poll slot is empty", ErrorString(errors.PollPlaceholder.Clone()))
}

func TestListFlags(t *testing.T) {
	var l ListFlags
	l.Set("a=localhost:6379")
	l.Set("localhost:6380")
	require.Equal(t, "a=localhost:6379 localhost:6380", l.String())
	require.Equal(t, "list", l.Type())
}
