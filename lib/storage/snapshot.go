package storage

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/rlp"

	"boscoin.io/pollwatch/lib/errors"
	"boscoin.io/pollwatch/lib/poll"
)

const snapshotPrefix = "poll-"

// Snapshot is a poll record as it was last fetched from the chain.
type Snapshot struct {
	Record    poll.Record
	FetchedAt time.Time
}

// rlp only knows unsigned integers; times read from the contract are never
// negative.
type storedRecord struct {
	ID        uint64
	StartTime uint64
	EndTime   uint64
	VotesForA uint64
	VotesForB uint64
	Ended     bool
	FetchedAt uint64
}

// snapshotScope separates the polls of different deployments sharing one
// database, eg. "5124/0xabc.../".
func snapshotScope(chainID *big.Int, contract string) string {
	return fmt.Sprintf("%s/%s/", chainID.String(), strings.ToLower(contract))
}

func encodeSnapshot(s Snapshot) ([]byte, error) {
	if s.Record.StartTime < 0 || s.Record.EndTime < 0 {
		return nil, errors.StorageCoreError.Clone().
			SetData("error", "negative time").
			SetData("poll", s.Record.ID)
	}

	return rlp.EncodeToBytes(storedRecord{
		ID:        s.Record.ID,
		StartTime: uint64(s.Record.StartTime),
		EndTime:   uint64(s.Record.EndTime),
		VotesForA: s.Record.VotesForA,
		VotesForB: s.Record.VotesForB,
		Ended:     s.Record.Ended,
		FetchedAt: uint64(s.FetchedAt.Unix()),
	})
}

func decodeSnapshot(b []byte) (Snapshot, error) {
	var stored storedRecord
	if err := rlp.DecodeBytes(b, &stored); err != nil {
		return Snapshot{}, setLevelDBCoreError(err)
	}

	return Snapshot{
		Record: poll.Record{
			ID:        stored.ID,
			StartTime: int64(stored.StartTime),
			EndTime:   int64(stored.EndTime),
			VotesForA: stored.VotesForA,
			VotesForB: stored.VotesForB,
			Ended:     stored.Ended,
		},
		FetchedAt: time.Unix(int64(stored.FetchedAt), 0),
	}, nil
}

// SnapshotStore keeps the last good copy of each poll so a refresh can fall
// back to it when the chain read of that poll fails.
//
// Keys are scoped by chain id and contract address, so switching the
// network or the contract never returns another deployment's polls.
type SnapshotStore struct {
	st     *LevelDBBackend
	prefix string
}

func NewSnapshotStore(st *LevelDBBackend, chainID *big.Int, contract string) *SnapshotStore {
	return &SnapshotStore{
		st:     st,
		prefix: snapshotScope(chainID, contract) + snapshotPrefix,
	}
}

func (s *SnapshotStore) key(id uint64) string {
	return fmt.Sprintf("%s%020d", s.prefix, id)
}

// Save stores records in one batch, overwriting older snapshots.
// Placeholders are not stored.
func (s *SnapshotStore) Save(fetchedAt time.Time, records ...poll.Record) error {
	var items []Item
	for _, r := range records {
		if r.IsPlaceholder() {
			continue
		}

		b, err := encodeSnapshot(Snapshot{Record: r, FetchedAt: fetchedAt})
		if err != nil {
			return err
		}
		items = append(items, Item{Key: s.key(r.ID), Value: b})
	}

	if err := s.st.PutRaws(items...); err != nil {
		return err
	}

	log.Debug("snapshots saved", "scope", s.prefix, "count", len(items))
	return nil
}

// Get returns `errors.StorageRecordDoesNotExist` when the poll was never
// stored.
func (s *SnapshotStore) Get(id uint64) (Snapshot, error) {
	b, err := s.st.GetRaw(s.key(id))
	if err != nil {
		return Snapshot{}, err
	}

	return decodeSnapshot(b)
}

// All returns every stored snapshot in ascending id order.
func (s *SnapshotStore) All() ([]Snapshot, error) {
	var snapshots []Snapshot
	err := s.st.Walk(s.prefix, func(key, value []byte) (bool, error) {
		snapshot, err := decodeSnapshot(value)
		if err != nil {
			return false, err
		}
		snapshots = append(snapshots, snapshot)
		return true, nil
	})

	return snapshots, err
}

func (s *SnapshotStore) Remove(id uint64) error {
	return s.st.Remove(s.key(id))
}
