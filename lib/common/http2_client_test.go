package common

import (
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sethgrid/pester"
	"github.com/stretchr/testify/require"
)

func TestHTTP2ClientStdClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := ioutil.ReadAll(r.Body)
		w.Write(b)
	}))
	defer server.Close()

	client, err := NewHTTP2Client(5*time.Second, 0, true)
	require.NoError(t, err)
	defer client.Close()

	resp, err := client.StdClient().Post(server.URL, "application/json", strings.NewReader(`{"id":1}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	b, _ := ioutil.ReadAll(resp.Body)
	require.Equal(t, `{"id":1}`, string(b))
}

func TestPersistentHTTP2ClientRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		b, _ := ioutil.ReadAll(r.Body)
		w.Write(b)
	}))
	defer server.Close()

	setting := DefaultRetrySetting(3)
	setting.Backoff = func(int) time.Duration { return time.Millisecond }
	var _ pester.BackoffStrategy = setting.Backoff

	client, err := NewPersistentHTTP2Client(5*time.Second, 0, true, setting)
	require.NoError(t, err)
	defer client.Close()

	resp, err := client.StdClient().Post(server.URL, "application/json", strings.NewReader(`{"id":2}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	b, _ := ioutil.ReadAll(resp.Body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, `{"id":2}`, string(b))
	require.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestPersistentHTTP2ClientRetryCount(t *testing.T) {
	cases := []struct {
		retries  int
		expected int32
	}{
		{0, 1},
		{1, 2},
		{2, 3},
	}

	for _, c := range cases {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))

		setting := DefaultRetrySetting(c.retries)
		setting.Backoff = func(int) time.Duration { return time.Millisecond }

		client, err := NewPersistentHTTP2Client(5*time.Second, 0, true, setting)
		require.NoError(t, err)

		resp, err := client.StdClient().Post(server.URL, "application/json", strings.NewReader(`{"id":3}`))
		if err == nil {
			resp.Body.Close()
		}

		require.Equal(t, c.expected, atomic.LoadInt32(&calls), "retries=%d", c.retries)

		client.Close()
		server.Close()
	}
}
