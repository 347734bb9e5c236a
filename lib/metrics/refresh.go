package metrics

import (
	"time"

	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	prometheus "github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

type RefreshMetrics struct {
	Total             metrics.Counter
	DurationSeconds   metrics.Histogram
	Sequence          metrics.Gauge
	Polls             metrics.Gauge
	RecordErrorsTotal metrics.Counter
	StaleRecords      metrics.Gauge
}

func (r *RefreshMetrics) ObserveDurationSeconds(begin time.Time, status string) {
	r.Total.With(RefreshStatus, status).Add(1)
	r.DurationSeconds.With(RefreshStatus, status).Observe(time.Since(begin).Seconds())
}

func (r *RefreshMetrics) SetSequence(seq uint64) {
	r.Sequence.Set(float64(seq))
}

func (r *RefreshMetrics) SetPolls(class string, n int) {
	r.Polls.With(PollClass, class).Set(float64(n))
}

func (r *RefreshMetrics) AddRecordError() {
	r.RecordErrorsTotal.Add(1)
}

func (r *RefreshMetrics) SetStaleRecords(n int) {
	r.StaleRecords.Set(float64(n))
}

func PromRefreshMetrics() *RefreshMetrics {
	return &RefreshMetrics{
		Total: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: RefreshSubsystem,
			Name:      "total",
			Help:      "Total number of refreshes.",
		}, []string{RefreshStatus}),
		DurationSeconds: prometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
			Namespace: Namespace,
			Subsystem: RefreshSubsystem,
			Name:      "duration_seconds",
			Help:      "Time taken by a refresh.",
		}, []string{RefreshStatus}),
		Sequence: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: RefreshSubsystem,
			Name:      "sequence",
			Help:      "Sequence number of the last published refresh.",
		}, []string{}),
		Polls: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: RefreshSubsystem,
			Name:      "polls",
			Help:      "Number of polls by class.",
		}, []string{PollClass}),
		RecordErrorsTotal: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: RefreshSubsystem,
			Name:      "record_errors_total",
			Help:      "Total number of polls which could not be fetched.",
		}, []string{}),
		StaleRecords: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: RefreshSubsystem,
			Name:      "stale_records",
			Help:      "Number of polls shown from the snapshot store.",
		}, []string{}),
	}
}

func NopRefreshMetrics() *RefreshMetrics {
	return &RefreshMetrics{
		Total:             discard.NewCounter(),
		DurationSeconds:   discard.NewHistogram(),
		Sequence:          discard.NewGauge(),
		Polls:             discard.NewGauge(),
		RecordErrorsTotal: discard.NewCounter(),
		StaleRecords:      discard.NewGauge(),
	}
}
