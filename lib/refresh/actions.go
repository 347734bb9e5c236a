package refresh

import (
	"context"
	"time"

	"github.com/GianlucaGuarini/go-observable"
	"github.com/ethereum/go-ethereum/core/types"

	"boscoin.io/pollwatch/lib/common"
	"boscoin.io/pollwatch/lib/common/observer"
	"boscoin.io/pollwatch/lib/errors"
	"boscoin.io/pollwatch/lib/ledger"
	"boscoin.io/pollwatch/lib/metrics"
	"boscoin.io/pollwatch/lib/poll"
)

// Actions sends votes and new polls. Each write is checked first against
// what the contract would refuse, is sent once without retry, and returns
// only after it was mined. A mined write triggers a refresh.
type Actions struct {
	refresher    *Refresher
	tx           Transactor
	pollDuration time.Duration
	observer     *observable.Observable
	metrics      *metrics.LedgerMetrics
}

// Mined is a write which made it into a block.
type Mined struct {
	Method string `json:"method" yaml:"method"`
	PollID uint64 `json:"poll_id,omitempty" yaml:"poll_id,omitempty"`
	From   string `json:"from" yaml:"from"`
	Tx     string `json:"tx" yaml:"tx"`
	Block  uint64 `json:"block" yaml:"block"`
}

func NewActions(refresher *Refresher, tx Transactor, config common.Config) *Actions {
	duration := config.PollDuration
	if duration <= 0 {
		duration = common.DefaultPollDuration
	}

	return &Actions{
		refresher:    refresher,
		tx:           tx,
		pollDuration: duration,
		observer:     observer.ActionObserver,
		metrics:      metrics.Ledger,
	}
}

func (a *Actions) SetObserver(ob *observable.Observable) *Actions {
	a.observer = ob
	return a
}

// CheckVote tells why the signer could not vote in poll id right now, or
// returns the poll when it can.
func (a *Actions) CheckVote(ctx context.Context, id uint64) (poll.Record, error) {
	from := a.tx.From()
	if len(from) < 1 {
		return poll.Record{}, errors.SignerMissing
	}

	count, err := a.tx.SessionCount(ctx)
	if err != nil {
		return poll.Record{}, err
	}
	if id >= count {
		return poll.Record{}, errors.PollNotFound.Clone().SetData("poll", id).SetData("count", count)
	}

	record, err := a.tx.GetSession(ctx, id)
	if err != nil {
		return poll.Record{}, err
	}

	now := a.refresher.clock.Now().Unix()
	switch poll.Classify(record, now) {
	case poll.SKIP:
		return record, errors.PollPlaceholder.Clone().SetData("poll", id)
	case poll.ARCHIVED:
		return record, errors.PollEnded.Clone().SetData("poll", id)
	case poll.PENDING:
		return record, errors.PollNotStarted.Clone().SetData("poll", id).SetData("start", record.StartTime)
	}
	if poll.IsOverdue(record, now) {
		return record, errors.PollEnded.Clone().SetData("poll", id).SetData("end", record.EndTime)
	}

	voted, err := a.refresher.HasVoted(ctx, id, from)
	if err != nil {
		return record, err
	}
	if voted {
		return record, errors.AlreadyVoted.Clone().SetData("poll", id).SetData("voter", from)
	}

	return record, nil
}

func (a *Actions) Vote(ctx context.Context, id uint64, choice poll.Choice) (*Mined, error) {
	if _, err := a.CheckVote(ctx, id); err != nil {
		return nil, err
	}

	from := a.tx.From()
	log.Debug("sending vote", "poll", id, "choice", choice, "from", from)

	tx, err := a.tx.CastVote(ctx, id, choice)
	receipt, err := a.mine(ctx, ledger.MethodCastVote, tx, err)
	if err != nil {
		return nil, err
	}

	if a.refresher.cache != nil {
		a.refresher.cache.SetVoted(id, from)
	}

	mined := &Mined{
		Method: ledger.MethodCastVote,
		PollID: id,
		From:   from,
		Tx:     tx.Hash().Hex(),
		Block:  receipt.BlockNumber.Uint64(),
	}
	log.Info("vote mined", "poll", id, "choice", choice, "tx", mined.Tx, "block", mined.Block)

	a.observer.Trigger(observer.All(observer.EventVote).String(), mined)
	a.observer.Trigger(observer.NewPollEvent(observer.EventVote, id).String(), mined)
	a.refresher.Trigger()

	return mined, nil
}

// CreatePoll opens a poll at start (unix seconds, zero means now) for
// duration (zero means the configured default). Only the contract admin may
// create polls.
func (a *Actions) CreatePoll(ctx context.Context, start int64, duration time.Duration) (*Mined, error) {
	from := a.tx.From()
	if len(from) < 1 {
		return nil, errors.SignerMissing
	}

	if duration == 0 {
		duration = a.pollDuration
	}
	if duration < time.Second {
		return nil, errors.InvalidDuration.Clone().SetData("duration", duration.String())
	}
	if start == 0 {
		start = a.refresher.clock.Now().Unix()
	}

	if err := a.CheckAdmin(ctx); err != nil {
		return nil, err
	}

	log.Debug("creating poll", "start", start, "duration", duration, "from", from)

	tx, err := a.tx.CreateSession(ctx, start, duration)
	receipt, err := a.mine(ctx, ledger.MethodCreateSession, tx, err)
	if err != nil {
		return nil, err
	}

	mined := &Mined{
		Method: ledger.MethodCreateSession,
		From:   from,
		Tx:     tx.Hash().Hex(),
		Block:  receipt.BlockNumber.Uint64(),
	}
	log.Info("poll created", "start", start, "duration", duration, "tx", mined.Tx, "block", mined.Block)

	a.observer.Trigger(observer.All(observer.EventCreate).String(), mined)
	a.refresher.Trigger()

	return mined, nil
}

// CheckAdmin fails with `errors.NotAdmin` unless the signer is the contract
// admin. Addresses are compared case-insensitively.
func (a *Actions) CheckAdmin(ctx context.Context) error {
	from := a.tx.From()
	if len(from) < 1 {
		return errors.SignerMissing
	}

	admin, err := a.refresher.Admin(ctx)
	if err != nil {
		return err
	}
	if !poll.SameAddress(admin, from) {
		return errors.NotAdmin.Clone().SetData("admin", admin).SetData("from", from)
	}

	return nil
}

func (a *Actions) mine(ctx context.Context, method string, tx *types.Transaction, err error) (*types.Receipt, error) {
	if err != nil {
		kind, _ := ledger.Classify(err)
		a.metrics.AddTransaction(method, string(kind))
		return nil, err
	}

	receipt, err := a.tx.WaitMined(ctx, tx)
	kind, _ := ledger.Classify(err)
	a.metrics.AddTransaction(method, string(kind))
	if err != nil {
		return nil, err
	}

	return receipt, nil
}
