package metrics

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	prometheus "github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics counts transactions sent to the voting contract by outcome.
type LedgerMetrics struct {
	TransactionsTotal metrics.Counter
}

func (l *LedgerMetrics) AddTransaction(method, kind string) {
	l.TransactionsTotal.With(LedgerMethod, method, LedgerKind, kind).Add(1)
}

func PromLedgerMetrics() *LedgerMetrics {
	return &LedgerMetrics{
		TransactionsTotal: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: LedgerSubsystem,
			Name:      "transactions_total",
			Help:      "Total number of transactions sent.",
		}, []string{LedgerMethod, LedgerKind}),
	}
}

func NopLedgerMetrics() *LedgerMetrics {
	return &LedgerMetrics{
		TransactionsTotal: discard.NewCounter(),
	}
}
