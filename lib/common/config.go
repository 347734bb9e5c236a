package common

import (
	"math/big"
	"time"
)

//
// Config holds everything needed to reach the voting contract and to drive
// the refresh loop. The network part mirrors what a wallet needs to add the
// chain: id, name, rpc endpoint and explorer.
//
type Config struct {
	ChainID         *big.Int
	ChainName       string
	RPCURL          string
	ExplorerURL     string
	ContractAddress string
	ContractVariant string

	RefreshInterval    time.Duration
	RefreshConcurrency int
	RequestTimeout     time.Duration
	RPCRetries         int
	MaxPolls           uint64

	VoteGasLimit uint64
	PollDuration time.Duration

	// Those fields are not needed to talk to the contract
	CacheAdapter    string
	CachePoolSize   int
	CacheRedisAddrs map[string]string
	StorageURI      string
}

func NewConfig() Config {
	p := Config{}

	p.ChainID = big.NewInt(DefaultChainID)
	p.ChainName = DefaultChainName
	p.RPCURL = DefaultRPCURL
	p.ExplorerURL = DefaultExplorerURL
	p.ContractAddress = DefaultContractAddress
	p.ContractVariant = ContractVariantSession

	p.RefreshInterval = DefaultRefreshInterval
	p.RefreshConcurrency = DefaultRefreshConcurrency
	p.RequestTimeout = DefaultRequestTimeout
	p.MaxPolls = DefaultMaxPolls

	p.VoteGasLimit = DefaultVoteGasLimit
	p.PollDuration = DefaultPollDuration

	p.CacheAdapter = CacheMemoryAdapterName
	p.CachePoolSize = DefaultCachePoolSize

	return p
}

// ChainIDHex returns the chain id the way wallets expect it, eg. "0x1404".
func (c Config) ChainIDHex() string {
	return "0x" + c.ChainID.Text(16)
}

// TxURL links a transaction hash to the block explorer.
func (c Config) TxURL(hash string) string {
	if len(c.ExplorerURL) < 1 {
		return hash
	}
	return c.ExplorerURL + "/tx/" + hash
}
