package ledger

import (
	"context"
	"math/big"
	"testing"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"boscoin.io/pollwatch/lib/common"
	"boscoin.io/pollwatch/lib/errors"
	"boscoin.io/pollwatch/lib/poll"
)

// fakeBackend answers contract calls from memory; transactions are not
// supported.
type fakeBackend struct {
	bind.ContractBackend

	chainID  *big.Int
	sessions []poll.Record
	voted    map[uint64]map[ethcommon.Address]bool
	admin    ethcommon.Address
	active   bool
	receipts map[ethcommon.Hash]*types.Receipt
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		chainID:  big.NewInt(common.DefaultChainID),
		voted:    map[uint64]map[ethcommon.Address]bool{},
		receipts: map[ethcommon.Hash]*types.Receipt{},
	}
}

func (b *fakeBackend) ChainID(ctx context.Context) (*big.Int, error) {
	return b.chainID, nil
}

func (b *fakeBackend) CodeAt(ctx context.Context, contract ethcommon.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func (b *fakeBackend) TransactionReceipt(ctx context.Context, hash ethcommon.Hash) (*types.Receipt, error) {
	receipt, found := b.receipts[hash]
	if !found {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

func (b *fakeBackend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if method, err := sessionABI.MethodById(call.Data[:4]); err == nil {
		args, err := method.Inputs.Unpack(call.Data[4:])
		if err != nil {
			return nil, err
		}

		switch method.Name {
		case MethodSessionCount:
			return method.Outputs.Pack(big.NewInt(int64(len(b.sessions))))
		case MethodGetSession:
			r := b.sessions[args[0].(*big.Int).Uint64()]
			return method.Outputs.Pack(
				big.NewInt(r.StartTime),
				big.NewInt(r.EndTime),
				new(big.Int).SetUint64(r.VotesForA),
				new(big.Int).SetUint64(r.VotesForB),
				r.Ended,
			)
		case MethodHasVotedInSession:
			id := args[0].(*big.Int).Uint64()
			voter := args[1].(ethcommon.Address)
			return method.Outputs.Pack(b.voted[id][voter])
		case MethodAdmin:
			return method.Outputs.Pack(b.admin)
		}
	}

	method, err := singleSlotABI.MethodById(call.Data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(call.Data[4:])
	if err != nil {
		return nil, err
	}

	switch method.Name {
	case MethodIsVotingActive:
		return method.Outputs.Pack(b.active)
	case MethodHasVoted:
		return method.Outputs.Pack(b.voted[0][args[0].(ethcommon.Address)])
	case MethodGetVote:
		return method.Outputs.Pack([]byte("ciphertext"))
	}

	return nil, nil
}

func newTestSession(t *testing.T, backend *fakeBackend, withKey bool) *Session {
	config := common.NewConfig()

	var err error
	var s *Session
	if withKey {
		key, _ := crypto.GenerateKey()
		s, err = NewSession(context.Background(), config, backend, key)
	} else {
		s, err = NewSession(context.Background(), config, backend, nil)
	}
	require.NoError(t, err)

	return s
}

func TestNewSessionWrongNetwork(t *testing.T) {
	backend := newFakeBackend()
	backend.chainID = big.NewInt(1)

	_, err := NewSession(context.Background(), common.NewConfig(), backend, nil)
	require.True(t, errors.Is(err, errors.WrongNetwork))

	e, _ := errors.As(err)
	require.Equal(t, "0x1404", e.Data["expected"])
	require.Equal(t, "0x1", e.Data["connected"])
}

func TestNewSessionInvalidContract(t *testing.T) {
	config := common.NewConfig()
	config.ContractAddress = "findme"

	_, err := NewSession(context.Background(), config, newFakeBackend(), nil)
	require.True(t, errors.Is(err, errors.InvalidAddress))
}

func TestSessionReadOnly(t *testing.T) {
	s := newTestSession(t, newFakeBackend(), false)

	require.Equal(t, "", s.From())
	require.Equal(t, int64(0x1404), s.ChainID().Int64())

	_, err := s.CastVote(context.Background(), 0, poll.ChoiceA)
	require.True(t, errors.Is(err, errors.SignerMissing))
}

func TestSessionReads(t *testing.T) {
	backend := newFakeBackend()
	backend.sessions = []poll.Record{
		{StartTime: 1000, EndTime: 2000, VotesForA: 3, VotesForB: 5},
		{},
		{StartTime: 100, EndTime: 200, VotesForA: 1, Ended: true},
	}
	backend.admin = ethcommon.HexToAddress("0x8Ba1f109551bD432803012645Ac136ddd64DBA72")

	s := newTestSession(t, backend, true)
	require.Equal(t, 42, len(s.From()))

	voter := ethcommon.HexToAddress(s.From())
	backend.voted[2] = map[ethcommon.Address]bool{voter: true}

	ctx := context.Background()

	count, err := s.SessionCount(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(3), count)

	{
		r, err := s.GetSession(ctx, 0)
		require.NoError(t, err)
		require.Equal(t, poll.Record{ID: 0, StartTime: 1000, EndTime: 2000, VotesForA: 3, VotesForB: 5}, r)
	}

	{ // placeholder
		r, err := s.GetSession(ctx, 1)
		require.NoError(t, err)
		require.True(t, r.IsPlaceholder())
	}

	{
		r, err := s.GetSession(ctx, 2)
		require.NoError(t, err)
		require.True(t, r.Ended)
		require.Equal(t, uint64(2), r.ID)
	}

	{
		voted, err := s.HasVotedInSession(ctx, 2, s.From())
		require.NoError(t, err)
		require.True(t, voted)

		voted, err = s.HasVotedInSession(ctx, 0, s.From())
		require.NoError(t, err)
		require.False(t, voted)

		_, err = s.HasVotedInSession(ctx, 0, "not-an-address")
		require.True(t, errors.Is(err, errors.InvalidAddress))
	}

	admin, err := s.Admin(ctx)
	require.NoError(t, err)
	require.True(t, poll.SameAddress("0x8ba1f109551bd432803012645ac136ddd64dba72", admin))
}

func TestDecodeSession(t *testing.T) {
	{ // end before start
		_, err := decodeSession(0, []interface{}{big.NewInt(200), big.NewInt(100), big.NewInt(0), big.NewInt(0), false})
		require.Error(t, err)
	}

	{ // out of int64 range
		huge := new(big.Int).Lsh(big.NewInt(1), 200)
		_, err := decodeSession(0, []interface{}{huge, huge, big.NewInt(0), big.NewInt(0), false})
		require.Error(t, err)
	}

	{
		_, err := decodeSession(0, []interface{}{big.NewInt(0)})
		require.Error(t, err)
	}
}

func TestSessionWaitMined(t *testing.T) {
	backend := newFakeBackend()
	s := newTestSession(t, backend, true)

	tx := types.NewTx(&types.LegacyTx{Nonce: 1, Gas: 300000, GasPrice: big.NewInt(1)})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	{ // success
		backend.receipts[tx.Hash()] = &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(7)}
		receipt, err := s.WaitMined(ctx, tx)
		require.NoError(t, err)
		require.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	}

	{ // reverted
		backend.receipts[tx.Hash()] = &types.Receipt{Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(8)}
		receipt, err := s.WaitMined(ctx, tx)
		require.NotNil(t, receipt)
		require.True(t, errors.Is(err, errors.ContractReverted))

		kind, _ := Classify(err)
		require.Equal(t, KindReverted, kind)
	}
}

func TestSingleSlot(t *testing.T) {
	backend := newFakeBackend()

	config := common.NewConfig()
	config.ContractVariant = common.ContractVariantSingleSlot
	key, _ := crypto.GenerateKey()
	s, err := NewSession(context.Background(), config, backend, key)
	require.NoError(t, err)

	b := NewSingleSlot(s)
	ctx := context.Background()

	active, err := b.IsVotingActive(ctx)
	require.NoError(t, err)
	require.False(t, active)

	{ // closed ballot is refused before sending
		_, err := b.CastVote(ctx, []byte("choice"))
		require.True(t, errors.Is(err, errors.PollEnded))
	}

	{ // already voted
		backend.active = true
		backend.voted[0] = map[ethcommon.Address]bool{ethcommon.HexToAddress(s.From()): true}

		_, err := b.CastVote(ctx, []byte("choice"))
		require.True(t, errors.Is(err, errors.AlreadyVoted))
	}

	vote, err := b.GetVote(ctx, s.From())
	require.NoError(t, err)
	require.Equal(t, []byte("ciphertext"), vote)
}

func TestParseKey(t *testing.T) {
	hex := "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

	k0, err := ParseKey(hex)
	require.NoError(t, err)
	k1, err := ParseKey("0x" + hex)
	require.NoError(t, err)

	require.Equal(t, AddressFromKey(k0), AddressFromKey(k1))

	_, err = ParseKey("findme")
	require.Error(t, err)
}

// fakeWriter accepts transactions; everything else is left to the embedded
// nil interface.
type fakeWriter struct {
	bind.ContractTransactor

	sent []*types.Transaction
}

func (w *fakeWriter) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(1)}, nil
}

func (w *fakeWriter) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (w *fakeWriter) PendingNonceAt(ctx context.Context, account ethcommon.Address) (uint64, error) {
	return uint64(len(w.sent)), nil
}

func (w *fakeWriter) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	w.sent = append(w.sent, tx)
	return nil
}

func TestSessionSendsThroughWriter(t *testing.T) {
	backend := newFakeBackend()
	writer := &fakeWriter{}

	key, _ := crypto.GenerateKey()
	s, err := newSession(context.Background(), common.NewConfig(), backend, writer, key)
	require.NoError(t, err)

	tx, err := s.CastVote(context.Background(), 3, poll.ChoiceB)
	require.NoError(t, err)
	require.Equal(t, 1, len(writer.sent))
	require.Equal(t, tx.Hash(), writer.sent[0].Hash())
	require.Equal(t, common.DefaultVoteGasLimit, tx.Gas())
}
