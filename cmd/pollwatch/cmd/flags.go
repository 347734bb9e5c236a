package cmd

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	logging "github.com/inconshreveable/log15"

	cmdcommon "boscoin.io/pollwatch/cmd/pollwatch/common"
	"boscoin.io/pollwatch/lib/api"
	"boscoin.io/pollwatch/lib/cache"
	"boscoin.io/pollwatch/lib/common"
	"boscoin.io/pollwatch/lib/errors"
	"boscoin.io/pollwatch/lib/ledger"
	"boscoin.io/pollwatch/lib/refresh"
	"boscoin.io/pollwatch/lib/storage"
)

const defaultLogLevel logging.Lvl = logging.LvlInfo

var (
	flagRPC             string = common.GetENVValue("POLLWATCH_RPC", common.DefaultRPCURL)
	flagChainID         string = common.GetENVValue("POLLWATCH_CHAIN_ID", fmt.Sprintf("0x%x", common.DefaultChainID))
	flagContract        string = common.GetENVValue("POLLWATCH_CONTRACT", common.DefaultContractAddress)
	flagVariant         string = common.GetENVValue("POLLWATCH_VARIANT", common.ContractVariantSession)
	flagKey             string = common.GetENVValue("POLLWATCH_KEY", "")
	flagVoter           string = common.GetENVValue("POLLWATCH_VOTER", "")
	flagLogLevel        string = common.GetENVValue("POLLWATCH_LOG_LEVEL", defaultLogLevel.String())
	flagLogOutput       string = common.GetENVValue("POLLWATCH_LOG_OUTPUT", "")
	flagCache           string = common.GetENVValue("POLLWATCH_CACHE", common.CacheMemoryAdapterName)
	flagCachePoolSize   string = common.GetENVValue("POLLWATCH_CACHE_POOL_SIZE", strconv.Itoa(common.DefaultCachePoolSize))
	flagRedisAddrs      cmdcommon.ListFlags
	flagStorage         string = common.GetENVValue("POLLWATCH_STORAGE", "")
	flagRefreshInterval string = common.GetENVValue("POLLWATCH_REFRESH_INTERVAL", common.DefaultRefreshInterval.String())
	flagConcurrency     string = common.GetENVValue("POLLWATCH_CONCURRENCY", strconv.Itoa(common.DefaultRefreshConcurrency))
	flagTimeout         string = common.GetENVValue("POLLWATCH_TIMEOUT", common.DefaultRequestTimeout.String())
	flagRPCRetries      string = common.GetENVValue("POLLWATCH_RPC_RETRIES", "0")
	flagMaxPolls        string = common.GetENVValue("POLLWATCH_MAX_POLLS", strconv.FormatUint(common.DefaultMaxPolls, 10))
	flagNTPServer       string = common.GetENVValue("POLLWATCH_NTP_SERVER", "")
	flagFormat          string = common.GetENVValue("POLLWATCH_FORMAT", cmdcommon.FormatText)
)

var (
	config   common.Config
	key      *ecdsa.PrivateKey
	voter    string
	logLevel logging.Lvl
	log      logging.Logger = logging.New("module", "main")
)

func init() {
	if s := common.GetENVValue("POLLWATCH_REDIS_ADDRS", ""); len(s) > 0 {
		flagRedisAddrs = cmdcommon.ListFlags{s}
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagRPC, "rpc", flagRPC, "json-rpc endpoint of the network")
	flags.StringVar(&flagChainID, "chain-id", flagChainID, "expected chain id, decimal or 0x-hex")
	flags.StringVar(&flagContract, "contract", flagContract, "address of the voting contract")
	flags.StringVar(&flagVariant, "variant", flagVariant, "contract variant, {session, single}")
	flags.StringVar(&flagKey, "key", flagKey, "hex private key used to sign votes")
	flags.StringVar(&flagVoter, "voter", flagVoter, "address to check votes for; defaults to the address of --key")
	flags.StringVar(&flagLogLevel, "log-level", flagLogLevel, "log level, {crit, error, warn, info, debug}")
	flags.StringVar(&flagLogOutput, "log-output", flagLogOutput, "set log output file")
	flags.StringVar(&flagCache, "cache", flagCache, "voter cache, {mem, redis, nop}")
	flags.StringVar(&flagCachePoolSize, "cache-pool-size", flagCachePoolSize, "number of entries of the mem cache")
	flags.Var(&flagRedisAddrs, "redis-addr", "redis server for --cache=redis, '[name=]host:port'; can be repeated")
	flags.StringVar(&flagStorage, "storage", flagStorage, "snapshot storage uri, 'file:///path' or 'memory://'; empty disables it")
	flags.StringVar(&flagRefreshInterval, "refresh-interval", flagRefreshInterval, "interval between refreshes")
	flags.StringVar(&flagConcurrency, "concurrency", flagConcurrency, "number of polls read at once")
	flags.StringVar(&flagTimeout, "timeout", flagTimeout, "timeout of one rpc request")
	flags.StringVar(&flagRPCRetries, "rpc-retries", flagRPCRetries, "retries of a failed rpc request; 0 disables retry")
	flags.StringVar(&flagMaxPolls, "max-polls", flagMaxPolls, "refuse to read more polls than this")
	flags.StringVar(&flagNTPServer, "ntp-server", flagNTPServer, "correct the local clock against this ntp server")
	flags.StringVar(&flagFormat, "format", flagFormat, "output format, {text, json, prettyjson, yaml}")
}

func parseChainID(s string) (*big.Int, error) {
	id, ok := new(big.Int).SetString(strings.TrimSpace(s), 0)
	if !ok || id.Sign() < 1 {
		return nil, fmt.Errorf("'%s' is not a chain id", s)
	}

	return id, nil
}

func parsePositiveInt(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if i < 1 {
		return 0, fmt.Errorf("must be greater than 0")
	}

	return i, nil
}

// parseFlags builds `config`, `key` and `voter` from the flags and sets up
// logging. On failure it returns the name of the offending flag.
func parseFlags() (string, error) {
	var err error

	config = common.NewConfig()
	config.RPCURL = flagRPC
	config.ContractVariant = flagVariant

	if config.ChainID, err = parseChainID(flagChainID); err != nil {
		return "--chain-id", err
	}

	if !ethcommon.IsHexAddress(flagContract) {
		return "--contract", errors.InvalidAddress.Clone().SetData("contract", flagContract)
	}
	config.ContractAddress = flagContract

	switch flagVariant {
	case common.ContractVariantSession, common.ContractVariantSingleSlot:
	default:
		return "--variant", fmt.Errorf("unknown contract variant '%s'", flagVariant)
	}

	key = nil
	if len(flagKey) > 0 {
		if key, err = ledger.ParseKey(flagKey); err != nil {
			return "--key", err
		}
	}

	voter = flagVoter
	if len(voter) > 0 {
		if !ethcommon.IsHexAddress(voter) {
			return "--voter", errors.InvalidAddress.Clone().SetData("voter", voter)
		}
		voter = ethcommon.HexToAddress(voter).Hex()
	} else if key != nil {
		voter = ledger.AddressFromKey(key)
	}

	config.CacheAdapter = flagCache
	if config.CachePoolSize, err = parsePositiveInt(flagCachePoolSize); err != nil {
		return "--cache-pool-size", err
	}
	config.CacheRedisAddrs = common.ParseRedisAddrs(strings.Join(flagRedisAddrs, ","))
	if config.CacheAdapter == common.CacheRedisAdapterName && len(config.CacheRedisAddrs) < 1 {
		return "--redis-addr", fmt.Errorf("--cache=redis needs at least one redis server")
	}

	if len(flagStorage) > 0 {
		if _, err = storage.NewConfigFromString(flagStorage); err != nil {
			return "--storage", err
		}
	}
	config.StorageURI = flagStorage

	if config.RefreshInterval, err = time.ParseDuration(flagRefreshInterval); err != nil {
		return "--refresh-interval", err
	} else if config.RefreshInterval < time.Second {
		return "--refresh-interval", fmt.Errorf("must be at least 1s")
	}
	if config.RefreshConcurrency, err = parsePositiveInt(flagConcurrency); err != nil {
		return "--concurrency", err
	}
	if config.RequestTimeout, err = time.ParseDuration(flagTimeout); err != nil {
		return "--timeout", err
	}
	if config.RPCRetries, err = strconv.Atoi(flagRPCRetries); err != nil {
		return "--rpc-retries", err
	} else if config.RPCRetries < 0 {
		return "--rpc-retries", fmt.Errorf("must not be negative")
	}
	var maxPolls int
	if maxPolls, err = parsePositiveInt(flagMaxPolls); err != nil {
		return "--max-polls", err
	}
	config.MaxPolls = uint64(maxPolls)

	if !cmdcommon.IsKnownFormat(flagFormat) {
		return "--format", fmt.Errorf("unknown format '%s'", flagFormat)
	}

	if logLevel, err = logging.LvlFromString(flagLogLevel); err != nil {
		return "--log-level", err
	}

	var logHandler logging.Handler
	if logHandler, err = common.NewLogHandler(flagLogOutput); err != nil {
		return "--log-output", err
	}
	setLogging(logLevel, logHandler)

	log.Debug(
		"parsed flags:",
		"\n\trpc", config.RPCURL,
		"\n\tchain-id", config.ChainIDHex(),
		"\n\tcontract", config.ContractAddress,
		"\n\tvariant", config.ContractVariant,
		"\n\tvoter", voter,
		"\n\tcache", config.CacheAdapter,
		"\n\tstorage", config.StorageURI,
		"\n\trefresh-interval", config.RefreshInterval,
		"\n\tconcurrency", config.RefreshConcurrency,
		"\n\ttimeout", config.RequestTimeout,
		"\n\trpc-retries", config.RPCRetries,
		"\n\tmax-polls", config.MaxPolls,
		"\n\tntp-server", flagNTPServer,
		"\n\tlog-level", flagLogLevel,
		"\n\tlog-output", flagLogOutput,
	)

	return "", nil
}

func setLogging(level logging.Lvl, handler logging.Handler) {
	common.SetLogging(log, level, handler)
	ledger.SetLogging(level, handler)
	refresh.SetLogging(level, handler)
	cache.SetLogging(level, handler)
	storage.SetLogging(level, handler)
	api.SetLogging(level, handler)
}
