package refresh

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/core/types"

	"boscoin.io/pollwatch/lib/errors"
	"boscoin.io/pollwatch/lib/poll"
)

// TestLedger is an in-memory voting contract.
type TestLedger struct {
	sync.Mutex

	Records  []poll.Record
	Voted    map[uint64]map[string]bool
	AdminOf  string
	Signer   string
	Reverted bool

	// CountHook, when set, runs before every SessionCount with the number of
	// the call, starting at 1.
	CountHook   func(ctx context.Context, call int) error
	SessionErrs map[uint64]error
	VotedErrs   map[uint64]error
	// ReportedCount, when not zero, is returned by SessionCount instead of
	// the number of records.
	ReportedCount uint64

	countCalls int
	votedCalls int
	nonce      uint64
	Sent       []string
}

func NewTestLedger(records ...poll.Record) *TestLedger {
	for i := range records {
		records[i].ID = uint64(i)
	}

	return &TestLedger{
		Records:     records,
		Voted:       map[uint64]map[string]bool{},
		SessionErrs: map[uint64]error{},
		VotedErrs:   map[uint64]error{},
	}
}

func (l *TestLedger) SessionCount(ctx context.Context) (uint64, error) {
	l.Lock()
	l.countCalls++
	call := l.countCalls
	hook := l.CountHook
	l.Unlock()

	if hook != nil {
		if err := hook(ctx, call); err != nil {
			return 0, err
		}
	}

	l.Lock()
	defer l.Unlock()
	if l.ReportedCount > 0 {
		return l.ReportedCount, nil
	}
	return uint64(len(l.Records)), nil
}

func (l *TestLedger) GetSession(ctx context.Context, id uint64) (poll.Record, error) {
	l.Lock()
	defer l.Unlock()

	if err := l.SessionErrs[id]; err != nil {
		return poll.Record{}, err
	}
	return l.Records[id], nil
}

func (l *TestLedger) HasVotedInSession(ctx context.Context, id uint64, voter string) (bool, error) {
	l.Lock()
	defer l.Unlock()

	l.votedCalls++
	if err := l.VotedErrs[id]; err != nil {
		return false, err
	}
	return l.Voted[id][strings.ToLower(voter)], nil
}

// SetVoted marks voter as having voted in poll id.
func (l *TestLedger) SetVoted(id uint64, voter string) {
	l.Lock()
	defer l.Unlock()

	l.setVoted(id, voter)
}

func (l *TestLedger) setVoted(id uint64, voter string) {
	if l.Voted[id] == nil {
		l.Voted[id] = map[string]bool{}
	}
	l.Voted[id][strings.ToLower(voter)] = true
}

func (l *TestLedger) VotedCalls() int {
	l.Lock()
	defer l.Unlock()

	return l.votedCalls
}

func (l *TestLedger) Admin(ctx context.Context) (string, error) {
	return l.AdminOf, nil
}

func (l *TestLedger) From() string {
	return l.Signer
}

func (l *TestLedger) send(method string) *types.Transaction {
	l.nonce++
	l.Sent = append(l.Sent, method)
	return types.NewTx(&types.LegacyTx{Nonce: l.nonce, Gas: 300000, GasPrice: big.NewInt(1)})
}

func (l *TestLedger) CastVote(ctx context.Context, id uint64, choice poll.Choice) (*types.Transaction, error) {
	l.Lock()
	defer l.Unlock()

	if !l.Reverted {
		l.setVoted(id, l.Signer)
		if choice == poll.ChoiceA {
			l.Records[id].VotesForA++
		} else {
			l.Records[id].VotesForB++
		}
	}

	return l.send("castVote"), nil
}

func (l *TestLedger) CreateSession(ctx context.Context, start int64, duration time.Duration) (*types.Transaction, error) {
	l.Lock()
	defer l.Unlock()

	if !l.Reverted {
		l.Records = append(l.Records, poll.Record{
			ID:        uint64(len(l.Records)),
			StartTime: start,
			EndTime:   start + int64(duration/time.Second),
		})
	}

	return l.send("createSession"), nil
}

func (l *TestLedger) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	l.Lock()
	defer l.Unlock()

	receipt := &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(int64(tx.Nonce()))}
	if l.Reverted {
		receipt.Status = types.ReceiptStatusFailed
		return receipt, errors.ContractReverted.Clone().SetData("tx", tx.Hash().Hex())
	}

	return receipt, nil
}
