package metrics

import (
	"testing"
	"time"

	"github.com/go-kit/kit/metrics"
	"github.com/stretchr/testify/require"
)

// counter keeps one value for all label values.
type counter struct {
	value  float64
	labels []string
}

func (c *counter) With(lvs ...string) metrics.Counter { c.labels = lvs; return c }
func (c *counter) Add(delta float64)                  { c.value += delta }

type gauge struct {
	value float64
}

func (g *gauge) With(...string) metrics.Gauge { return g }
func (g *gauge) Set(value float64)           { g.value = value }
func (g *gauge) Add(delta float64)           { g.value += delta }

func TestRefreshMetrics(t *testing.T) {
	total := &counter{}
	polls := &gauge{}
	stale := &gauge{}

	m := NopRefreshMetrics()
	m.Total = total
	m.Polls = polls
	m.StaleRecords = stale

	m.ObserveDurationSeconds(time.Now(), RefreshStatusOK)
	m.ObserveDurationSeconds(time.Now(), RefreshStatusSuperseded)
	require.Equal(t, float64(2), total.value)
	require.Equal(t, []string{RefreshStatus, RefreshStatusSuperseded}, total.labels)

	m.SetPolls("active", 3)
	require.Equal(t, float64(3), polls.value)

	m.SetStaleRecords(1)
	require.Equal(t, float64(1), stale.value)
}

func TestAPIMetricsErrors(t *testing.T) {
	requests := &counter{}
	failed := &counter{}

	m := NopAPIMetrics()
	m.RequestsTotal = requests
	m.RequestErrorsTotal = failed

	m.ObserveRequest(time.Now(), "/api/v1/polls", "GET", 200)
	m.ObserveRequest(time.Now(), "/api/v1/polls/{id}", "GET", 404)

	require.Equal(t, float64(2), requests.value)
	require.Equal(t, float64(1), failed.value)
	require.Equal(t, []string{"endpoint", "/api/v1/polls/{id}", "method", "GET", "status", "404"}, failed.labels)
}
