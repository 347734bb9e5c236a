package refresh

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/core/types"

	"boscoin.io/pollwatch/lib/poll"
)

// Ledger is the read side of the voting contract. `*ledger.Session`
// implements it.
type Ledger interface {
	SessionCount(ctx context.Context) (uint64, error)
	GetSession(ctx context.Context, id uint64) (poll.Record, error)
	HasVotedInSession(ctx context.Context, id uint64, voter string) (bool, error)
	Admin(ctx context.Context) (string, error)
}

// Transactor adds the writes. From is empty when there is no signing key.
type Transactor interface {
	Ledger

	From() string
	CastVote(ctx context.Context, id uint64, choice poll.Choice) (*types.Transaction, error)
	CreateSession(ctx context.Context, start int64, duration time.Duration) (*types.Transaction, error)
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}
