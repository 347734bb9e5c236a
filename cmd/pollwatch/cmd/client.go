package cmd

import (
	"context"
	"sync"
	"time"

	"boscoin.io/pollwatch/lib/cache"
	"boscoin.io/pollwatch/lib/common"
	"boscoin.io/pollwatch/lib/errors"
	"boscoin.io/pollwatch/lib/ledger"
	"boscoin.io/pollwatch/lib/refresh"
	"boscoin.io/pollwatch/lib/storage"
)

// client is everything one command needs to talk to the contract.
type client struct {
	sync.Mutex

	session   *ledger.Session
	clock     common.Clock
	refresher *refresh.Refresher
	actions   *refresh.Actions
	st        *storage.LevelDBBackend
}

// newClock is the system clock, corrected by --ntp-server when given. A
// failed first sync is logged and the uncorrected clock is used.
func newClock() common.Clock {
	if len(flagNTPServer) < 1 {
		return common.SystemClock{}
	}

	c := common.NewNTPClock(flagNTPServer)
	if err := c.Sync(); err != nil {
		log.Warn("clock is not corrected", "ntp-server", flagNTPServer, "error", err)
	}

	return c
}

// newClient dials the network and wires the refresher with its cache and
// snapshot store. needSigner makes a missing --key an error.
func newClient(ctx context.Context, clock common.Clock, needSigner bool) (*client, error) {
	if needSigner && key == nil {
		return nil, errors.SignerMissing
	}

	dialCtx, cancel := context.WithTimeout(ctx, config.RequestTimeout)
	defer cancel()

	session, err := ledger.Dial(dialCtx, config, key)
	if err != nil {
		return nil, err
	}

	c := &client{session: session, clock: clock}

	adapter, err := cache.NewAdapter(config)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.refresher = refresh.NewRefresher(session, clock, voter, config).
		SetCache(cache.NewVoterCache(adapter, session.ContractAddress()))

	if len(config.StorageURI) > 0 {
		var storageConfig *storage.Config
		if storageConfig, err = storage.NewConfigFromString(config.StorageURI); err != nil {
			c.Close()
			return nil, err
		}
		if c.st, err = storage.NewLevelDBBackend(storageConfig); err != nil {
			c.Close()
			return nil, err
		}
		c.refresher.SetSnapshotStore(storage.NewSnapshotStore(c.st, session.ChainID(), session.ContractAddress()))
	}

	c.actions = refresh.NewActions(c.refresher, session, config)

	log.Debug(
		"client ready",
		"watcher", c.refresher.ID(),
		"chain-id", session.ChainID(),
		"contract", session.ContractAddress(),
		"from", session.From(),
		"voter", voter,
	)

	return c, nil
}

// writeTimeout is how long a sent transaction may take to be mined.
const writeTimeout = 2 * time.Minute

// writeContext bounds a write: sending plus waiting for the receipt.
func (c *client) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, config.RequestTimeout+writeTimeout)
}

// redial reconnects the session; the refresher reads through the new one.
func (c *client) redial(ctx context.Context) (refresh.Ledger, error) {
	c.Lock()
	defer c.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, config.RequestTimeout)
	defer cancel()

	session, err := c.session.Redial(dialCtx)
	if err != nil {
		return nil, err
	}
	c.session = session

	return session, nil
}

func (c *client) Close() {
	c.Lock()
	defer c.Unlock()

	if c.st != nil {
		c.st.Close()
	}
	c.session.Close()
}
