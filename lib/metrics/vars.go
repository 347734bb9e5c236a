package metrics

var (
	Refresh = NopRefreshMetrics()
	Ledger  = NopLedgerMetrics()
	API     = NopAPIMetrics()
)
