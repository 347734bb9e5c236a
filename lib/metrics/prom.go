package metrics

func InitPrometheusMetrics() {
	Version = PromVersion()
	Refresh = PromRefreshMetrics()
	Ledger = PromLedgerMetrics()
	API = PromAPIMetrics()
}
