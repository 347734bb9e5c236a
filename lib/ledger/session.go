package ledger

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	pkgerrors "github.com/pkg/errors"

	"boscoin.io/pollwatch/lib/common"
	"boscoin.io/pollwatch/lib/errors"
	"boscoin.io/pollwatch/lib/poll"
	"boscoin.io/pollwatch/lib/version"
)

// Backend is what a Session needs from the chain: contract calls and
// transactions, receipts, and the chain id.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
}

// Session is the connection context for one network. It is never changed
// after `Dial`; to reconnect, `Redial` builds a new one.
type Session struct {
	config   common.Config
	backend  Backend
	closer   func()
	address  ethcommon.Address
	chainID  *big.Int
	contract *bind.BoundContract

	key    *ecdsa.PrivateKey
	signer *bind.TransactOpts
}

// Dial connects to `config.RPCURL` and checks that the endpoint serves
// `config.ChainID`. key may be nil for read-only sessions.
//
// Reads go through a client which retries `config.RPCRetries` times.
// Transactions use a separate client without retry, so a timed out send is
// never broadcast twice.
func Dial(ctx context.Context, config common.Config, key *ecdsa.PrivateKey) (*Session, error) {
	reader, closeReader, err := dialRPC(ctx, config, common.DefaultRetrySetting(config.RPCRetries))
	if err != nil {
		return nil, err
	}

	writer, closeWriter, err := dialRPC(ctx, config, nil)
	if err != nil {
		closeReader()
		return nil, err
	}

	closer := func() {
		closeReader()
		closeWriter()
	}

	s, err := newSession(ctx, config, reader, writer, key)
	if err != nil {
		closer()
		return nil, err
	}
	s.closer = closer

	log.Debug("session established", "rpc", config.RPCURL, "chain-id", s.chainID, "contract", s.address.Hex(), "from", s.From())

	return s, nil
}

func dialRPC(ctx context.Context, config common.Config, retrySetting *common.RetrySetting) (*ethclient.Client, func(), error) {
	httpClient, err := common.NewPersistentHTTP2Client(
		config.RequestTimeout,
		0,
		true,
		retrySetting,
	)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(err, "failed to create http client")
	}

	rpcClient, err := rpc.DialOptions(
		ctx,
		config.RPCURL,
		rpc.WithHTTPClient(httpClient.StdClient()),
		rpc.WithHeader("User-Agent", version.UserAgent()),
	)
	if err != nil {
		httpClient.Close()
		return nil, nil, pkgerrors.Wrapf(err, "failed to dial %s", config.RPCURL)
	}

	return ethclient.NewClient(rpcClient), func() {
		rpcClient.Close()
		httpClient.Close()
	}, nil
}

// NewSession binds the contract on an existing backend.
func NewSession(ctx context.Context, config common.Config, backend Backend, key *ecdsa.PrivateKey) (*Session, error) {
	return newSession(ctx, config, backend, backend, key)
}

// newSession sends transactions through writer and everything else through
// backend.
func newSession(ctx context.Context, config common.Config, backend Backend, writer bind.ContractTransactor, key *ecdsa.PrivateKey) (*Session, error) {
	if !ethcommon.IsHexAddress(config.ContractAddress) {
		return nil, errors.InvalidAddress.Clone().SetData("contract", config.ContractAddress)
	}

	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to get chain id")
	}
	if config.ChainID != nil && chainID.Cmp(config.ChainID) != 0 {
		return nil, errors.WrongNetwork.Clone().
			SetData("expected", config.ChainIDHex()).
			SetData("connected", "0x"+chainID.Text(16)).
			SetData("network", config.ChainName)
	}

	contractABI := sessionABI
	if config.ContractVariant == common.ContractVariantSingleSlot {
		contractABI = singleSlotABI
	}

	address := ethcommon.HexToAddress(config.ContractAddress)
	s := &Session{
		config:   config,
		backend:  backend,
		closer:   func() {},
		address:  address,
		chainID:  chainID,
		contract: bind.NewBoundContract(address, contractABI, backend, writer, backend),
		key:      key,
	}

	if key != nil {
		if s.signer, err = bind.NewKeyedTransactorWithChainID(key, chainID); err != nil {
			return nil, pkgerrors.Wrap(err, "failed to create transactor")
		}
	}

	return s, nil
}

// Redial builds a fresh session from the same config and key. This session
// is closed only when the new one is ready, so it stays usable after a
// failed redial.
func (s *Session) Redial(ctx context.Context) (*Session, error) {
	redialed, err := Dial(ctx, s.config, s.key)
	if err != nil {
		return nil, err
	}

	s.Close()
	return redialed, nil
}

func (s *Session) Close() {
	s.closer()
}

func (s *Session) Config() common.Config {
	return s.config
}

func (s *Session) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}

func (s *Session) ContractAddress() string {
	return s.address.Hex()
}

// From is the signer address, empty for read-only sessions.
func (s *Session) From() string {
	if s.signer == nil {
		return ""
	}
	return s.signer.From.Hex()
}

func (s *Session) call(ctx context.Context, method string, params ...interface{}) ([]interface{}, error) {
	opts := &bind.CallOpts{Context: ctx}
	if s.signer != nil {
		opts.From = s.signer.From
	}

	var out []interface{}
	if err := s.contract.Call(opts, &out, method, params...); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to call %s", method)
	}

	return out, nil
}

func (s *Session) transact(ctx context.Context, gasLimit uint64, method string, params ...interface{}) (*types.Transaction, error) {
	if s.signer == nil {
		return nil, errors.SignerMissing
	}

	opts := *s.signer
	opts.Context = ctx
	opts.GasLimit = gasLimit

	tx, err := s.contract.Transact(&opts, method, params...)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to send %s", method)
	}

	log.Debug("transaction sent", "method", method, "tx", tx.Hash().Hex(), "from", opts.From.Hex())
	return tx, nil
}

func (s *Session) SessionCount(ctx context.Context) (uint64, error) {
	out, err := s.call(ctx, MethodSessionCount)
	if err != nil {
		return 0, err
	}

	count := abi.ConvertType(out[0], new(big.Int)).(*big.Int)
	if !count.IsUint64() {
		return 0, pkgerrors.Errorf("session count out of range: %s", count.String())
	}

	return count.Uint64(), nil
}

func (s *Session) GetSession(ctx context.Context, id uint64) (poll.Record, error) {
	out, err := s.call(ctx, MethodGetSession, new(big.Int).SetUint64(id))
	if err != nil {
		return poll.Record{}, err
	}

	return decodeSession(id, out)
}

func (s *Session) HasVotedInSession(ctx context.Context, id uint64, voter string) (bool, error) {
	if !ethcommon.IsHexAddress(voter) {
		return false, errors.InvalidAddress.Clone().SetData("voter", voter)
	}

	out, err := s.call(ctx, MethodHasVotedInSession, new(big.Int).SetUint64(id), ethcommon.HexToAddress(voter))
	if err != nil {
		return false, err
	}

	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (s *Session) Admin(ctx context.Context) (string, error) {
	out, err := s.call(ctx, MethodAdmin)
	if err != nil {
		return "", err
	}

	return abi.ConvertType(out[0], new(ethcommon.Address)).(*ethcommon.Address).Hex(), nil
}

// CastVote sends the vote with the fixed vote gas limit; the caller decides
// whether to wait for it.
func (s *Session) CastVote(ctx context.Context, id uint64, choice poll.Choice) (*types.Transaction, error) {
	return s.transact(ctx, s.config.VoteGasLimit, MethodCastVote, new(big.Int).SetUint64(id), choice.VoteForA())
}

// CreateSession opens a new poll starting at start (unix seconds). Gas is
// estimated by the node.
func (s *Session) CreateSession(ctx context.Context, start int64, duration time.Duration) (*types.Transaction, error) {
	if duration <= 0 {
		return nil, errors.InvalidDuration
	}

	return s.transact(
		ctx,
		0,
		MethodCreateSession,
		big.NewInt(start),
		big.NewInt(int64(duration/time.Second)),
	)
}

// WaitMined blocks until tx is in a block. A failed receipt is returned
// together with `errors.ContractReverted`.
func (s *Session) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, s.backend, tx)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to wait for %s", tx.Hash().Hex())
	}

	if receipt.Status == types.ReceiptStatusFailed {
		return receipt, errors.ContractReverted.Clone().
			SetData("tx", tx.Hash().Hex()).
			SetData("block", receipt.BlockNumber.String())
	}

	return receipt, nil
}

func bigToInt64(v *big.Int, name string) (int64, error) {
	if !v.IsInt64() {
		return 0, pkgerrors.Errorf("%s out of range: %s", name, v.String())
	}
	return v.Int64(), nil
}

func bigToUint64(v *big.Int, name string) (uint64, error) {
	if !v.IsUint64() {
		return 0, pkgerrors.Errorf("%s out of range: %s", name, v.String())
	}
	return v.Uint64(), nil
}

func decodeSession(id uint64, out []interface{}) (r poll.Record, err error) {
	if len(out) != 5 {
		err = pkgerrors.Errorf("unexpected getSession output length: %d", len(out))
		return
	}

	r.ID = id
	if r.StartTime, err = bigToInt64(abi.ConvertType(out[0], new(big.Int)).(*big.Int), "start time"); err != nil {
		return
	}
	if r.EndTime, err = bigToInt64(abi.ConvertType(out[1], new(big.Int)).(*big.Int), "end time"); err != nil {
		return
	}
	if r.VotesForA, err = bigToUint64(abi.ConvertType(out[2], new(big.Int)).(*big.Int), "votes for a"); err != nil {
		return
	}
	if r.VotesForB, err = bigToUint64(abi.ConvertType(out[3], new(big.Int)).(*big.Int), "votes for b"); err != nil {
		return
	}
	r.Ended = *abi.ConvertType(out[4], new(bool)).(*bool)

	if r.EndTime < r.StartTime {
		err = pkgerrors.Errorf("session %d ends before it starts: start=%d end=%d", id, r.StartTime, r.EndTime)
		return
	}

	return
}

// AddressFromKey is the account a signing key controls.
func AddressFromKey(key *ecdsa.PrivateKey) string {
	return crypto.PubkeyToAddress(key.PublicKey).Hex()
}

// ParseKey reads a hex private key, with or without the 0x prefix.
func ParseKey(s string) (*ecdsa.PrivateKey, error) {
	if len(s) > 1 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}

	key, err := crypto.HexToECDSA(s)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "invalid private key")
	}

	return key, nil
}
