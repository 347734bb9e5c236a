package common

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetENVValue(t *testing.T) {
	key := "POLLWATCH_TEST_GET_ENV_VALUE"

	os.Unsetenv(key)
	require.Equal(t, "default", GetENVValue(key, "default"))

	os.Setenv(key, "")
	defer os.Unsetenv(key)
	require.Equal(t, "", GetENVValue(key, "default"))

	os.Setenv(key, "findme")
	require.Equal(t, "findme", GetENVValue(key, "default"))
}

func TestParseRedisAddrs(t *testing.T) {
	require.Equal(t, map[string]string{}, ParseRedisAddrs(""))
	require.Equal(
		t,
		map[string]string{"server1": ":6379", "localhost:6380": "localhost:6380"},
		ParseRedisAddrs("server1=:6379, localhost:6380"),
	)
}
