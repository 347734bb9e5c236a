package common

import "time"

const (
	DefaultChainID         int64  = 0x1404
	DefaultChainName       string = "Seismic Devnet"
	DefaultRPCURL          string = "https://node-2.seismicdev.net/rpc"
	DefaultExplorerURL     string = "https://explorer-2.seismicdev.net"
	DefaultContractAddress string = "0x2F736650ef8c2f305BFd3dd74EF8EC57284C6b38"

	DefaultRefreshInterval    time.Duration = 60 * time.Second
	DefaultRefreshConcurrency int           = 4
	DefaultRequestTimeout     time.Duration = 30 * time.Second
	DefaultMaxPolls           uint64        = 10000
	DefaultVoteGasLimit       uint64        = 300000
	DefaultPollDuration       time.Duration = 604800 * time.Second

	CacheMemoryAdapterName string = "mem"
	CacheRedisAdapterName  string = "redis"
	CacheNopAdapterName    string = "nop"
	DefaultCachePoolSize   int    = 1024

	ContractVariantSession    string = "session"
	ContractVariantSingleSlot string = "single"
)
