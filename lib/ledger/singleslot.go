package ledger

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"boscoin.io/pollwatch/lib/errors"
)

// SingleSlot talks to the single-ballot contract: one voting period, one
// encrypted vote per address. The session must be created with
// `ContractVariant` "single".
type SingleSlot struct {
	s *Session
}

func NewSingleSlot(s *Session) *SingleSlot {
	return &SingleSlot{s: s}
}

func (b *SingleSlot) IsVotingActive(ctx context.Context) (bool, error) {
	out, err := b.s.call(ctx, MethodIsVotingActive)
	if err != nil {
		return false, err
	}

	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (b *SingleSlot) HasVoted(ctx context.Context, voter string) (bool, error) {
	if !ethcommon.IsHexAddress(voter) {
		return false, errors.InvalidAddress.Clone().SetData("voter", voter)
	}

	out, err := b.s.call(ctx, MethodHasVoted, ethcommon.HexToAddress(voter))
	if err != nil {
		return false, err
	}

	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// GetVote returns the stored ciphertext; decrypting it is up to the caller.
func (b *SingleSlot) GetVote(ctx context.Context, voter string) ([]byte, error) {
	if !ethcommon.IsHexAddress(voter) {
		return nil, errors.InvalidAddress.Clone().SetData("voter", voter)
	}

	out, err := b.s.call(ctx, MethodGetVote, ethcommon.HexToAddress(voter))
	if err != nil {
		return nil, err
	}

	return *abi.ConvertType(out[0], new([]byte)).(*[]byte), nil
}

// CastVote checks the voting window and the voter's status before sending,
// so a doomed transaction never costs gas.
func (b *SingleSlot) CastVote(ctx context.Context, encryptedChoice []byte) (*types.Transaction, error) {
	active, err := b.IsVotingActive(ctx)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, errors.PollEnded
	}

	if from := b.s.From(); len(from) > 0 {
		voted, err := b.HasVoted(ctx, from)
		if err != nil {
			return nil, err
		}
		if voted {
			return nil, errors.AlreadyVoted
		}
	}

	return b.s.transact(ctx, b.s.config.VoteGasLimit, MethodCastVote, encryptedChoice)
}

func (b *SingleSlot) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	return b.s.WaitMined(ctx, tx)
}
