package errors

// pre-defined `Errors`
var (
	PollNotFound      = NewError(100, "poll does not exist")
	PollPlaceholder   = NewError(101, "poll slot is empty")
	PollNotStarted    = NewError(102, "poll has not started yet")
	PollEnded         = NewError(103, "voting period has ended")
	AlreadyVoted      = NewError(104, "already voted in this poll")
	NotAdmin          = NewError(105, "only the contract admin can create polls")
	SignerMissing     = NewError(106, "signing key must be given")
	WrongNetwork      = NewError(107, "connected to the wrong network")
	RefreshSuperseded = NewError(108, "refresh was superseded by a newer one")
	InvalidDuration   = NewError(109, "poll duration must be positive")
	InvalidChoice     = NewError(110, "choice must be one of 'a' or 'b'")
	InvalidAddress    = NewError(111, "invalid address")
	TooManyPolls      = NewError(112, "poll count is over the limit")

	StorageCoreError          = NewError(200, "storage error")
	StorageRecordDoesNotExist = NewError(201, "record does not exist")
	StorageInvalidURI         = NewError(202, "invalid storage uri")

	UserRejected     = NewError(300, "request was rejected by the user")
	NetworkError     = NewError(301, "network error")
	ContractReverted = NewError(302, "contract execution reverted")
	UnknownError     = NewError(303, "unknown error")

	CacheAdapterNotFound = NewError(400, "cache adapter not found")
)
