package metrics

const (
	Namespace        = "pollwatch"
	RefreshSubsystem = "refresh"
	LedgerSubsystem  = "ledger"
	APISubsystem     = "api"
)

const (
	RefreshStatus           = "status"
	RefreshStatusOK         = "ok"
	RefreshStatusFailed     = "failed"
	RefreshStatusSuperseded = "superseded"

	PollClass = "class"

	LedgerMethod = "method"
	LedgerKind   = "kind"
)
