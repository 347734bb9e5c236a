package storage

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	leveldbIterator "github.com/syndtr/goleveldb/leveldb/iterator"
	leveldbOpt "github.com/syndtr/goleveldb/leveldb/opt"
	leveldbStorage "github.com/syndtr/goleveldb/leveldb/storage"
	leveldbUtil "github.com/syndtr/goleveldb/leveldb/util"

	"boscoin.io/pollwatch/lib/errors"
)

type LevelDBCore interface {
	Has([]byte, *leveldbOpt.ReadOptions) (bool, error)
	Get([]byte, *leveldbOpt.ReadOptions) ([]byte, error)
	NewIterator(*leveldbUtil.Range, *leveldbOpt.ReadOptions) leveldbIterator.Iterator
	Put([]byte, []byte, *leveldbOpt.WriteOptions) error
	Write(*leveldb.Batch, *leveldbOpt.WriteOptions) error
	Delete([]byte, *leveldbOpt.WriteOptions) error
}

type LevelDBBackend struct {
	DB *leveldb.DB

	Core LevelDBCore
}

// Item is one key/value pair of a batched write.
type Item struct {
	Key   string
	Value []byte
}

type WalkFunc func(key, value []byte) (bool, error)

func setLevelDBCoreError(err error) error {
	if err == nil {
		return nil
	}

	return errors.StorageCoreError.Clone().SetData("error", err.Error())
}

func NewLevelDBBackend(config *Config) (*LevelDBBackend, error) {
	st := &LevelDBBackend{}
	if err := st.Init(config); err != nil {
		return nil, err
	}

	return st, nil
}

func (st *LevelDBBackend) Init(config *Config) (err error) {
	var db *leveldb.DB

	switch config.Scheme {
	case SchemeFile:
		if db, err = leveldb.OpenFile(config.Path, nil); err != nil {
			err = setLevelDBCoreError(err)
			return
		}
	case SchemeMemory:
		if db, err = leveldb.Open(leveldbStorage.NewMemStorage(), nil); err != nil {
			err = setLevelDBCoreError(err)
			return
		}
	default:
		err = errors.StorageInvalidURI.Clone().SetData("scheme", config.Scheme)
		return
	}

	st.DB = db
	st.Core = db

	log.Debug("storage opened", "config", config.String())

	return
}

func (st *LevelDBBackend) Close() error {
	if st.DB == nil {
		return nil
	}
	return st.DB.Close()
}

func (st *LevelDBBackend) makeKey(key string) []byte {
	return []byte(key)
}

func (st *LevelDBBackend) Has(k string) (bool, error) {
	ok, err := st.Core.Has(st.makeKey(k), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return false, nil
		}
		return false, setLevelDBCoreError(err)
	}

	return ok, nil
}

func (st *LevelDBBackend) GetRaw(k string) (b []byte, err error) {
	b, err = st.Core.Get(st.makeKey(k), nil)
	if err == leveldb.ErrNotFound {
		err = errors.StorageRecordDoesNotExist.Clone().SetData("key", k)
		return
	}
	err = setLevelDBCoreError(err)

	return
}

// PutRaw writes v under k, replacing any previous value.
func (st *LevelDBBackend) PutRaw(k string, v []byte) error {
	return setLevelDBCoreError(st.Core.Put(st.makeKey(k), v, nil))
}

// PutRaws writes all items in one batch; either all of them are stored or
// none.
func (st *LevelDBBackend) PutRaws(items ...Item) error {
	if len(items) < 1 {
		return nil
	}

	batch := new(leveldb.Batch)
	for _, item := range items {
		batch.Put(st.makeKey(item.Key), item.Value)
	}

	return setLevelDBCoreError(st.Core.Write(batch, nil))
}

func (st *LevelDBBackend) Remove(k string) (err error) {
	var exists bool
	if exists, err = st.Has(k); !exists || err != nil {
		if !exists && err == nil {
			err = errors.StorageRecordDoesNotExist.Clone().SetData("key", k)
		}
		return
	}

	err = setLevelDBCoreError(st.Core.Delete(st.makeKey(k), nil))

	return
}

// Walk calls walkFunc for every key with the given prefix in key order, and
// stops when walkFunc returns false or an error.
func (st *LevelDBBackend) Walk(prefix string, walkFunc WalkFunc) error {
	var dbRange *leveldbUtil.Range
	if len(prefix) > 0 {
		dbRange = leveldbUtil.BytesPrefix(st.makeKey(prefix))
	}

	iter := st.Core.NewIterator(dbRange, nil)
	defer iter.Release()

	for iter.Next() {
		next, err := walkFunc(iter.Key(), iter.Value())
		if err != nil {
			return err
		}
		if !next {
			break
		}
	}

	if err := iter.Error(); err != nil {
		return setLevelDBCoreError(fmt.Errorf("iterate %q: %v", prefix, err))
	}

	return nil
}
