// internal/store/leveldb.go
package store

import (
	"context"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	lerrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDBStore persists records in a LevelDB directory. Update runs inside a
// leveldb transaction, which admits one writer at a time.
type LevelDBStore struct {
	db *leveldb.DB
}

// OpenLevelDB opens (or creates) the ledger database under dir, recovering
// a corrupted manifest if needed.
func OpenLevelDB(dir string) (*LevelDBStore, error) {
	dbPath := filepath.Join(dir, "ledger.db")
	cache := 64
	db, err := leveldb.OpenFile(dbPath, &opt.Options{
		OpenFilesCacheCapacity: 64,
		BlockCacheCapacity:     cache / 2 * opt.MiB,
		WriteBuffer:            cache / 4 * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
	})
	if _, corrupted := err.(*lerrors.ErrCorrupted); corrupted {
		db, err = leveldb.RecoverFile(dbPath, nil)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "open leveldb %s", dbPath)
	}
	return &LevelDBStore{db: db}, nil
}

// NewMemLevelDB opens a LevelDB backed by memory storage, for tests and
// throwaway servers.
func NewMemLevelDB() (*LevelDBStore, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "open memory leveldb")
	}
	return &LevelDBStore{db: db}, nil
}

func (s *LevelDBStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tr, err := s.db.OpenTransaction()
	if err != nil {
		return errors.Wrap(err, "open transaction")
	}
	if err := fn(&kvTx{kv: levelTx{tr: tr}}); err != nil {
		tr.Discard()
		return err
	}
	return errors.Wrap(tr.Commit(), "commit")
}

func (s *LevelDBStore) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snap, err := s.db.GetSnapshot()
	if err != nil {
		return errors.Wrap(err, "snapshot")
	}
	defer snap.Release()
	return fn(&kvTx{kv: levelSnap{snap: snap}})
}

func (s *LevelDBStore) Close() error {
	return s.db.Close()
}

type levelTx struct {
	tr *leveldb.Transaction
}

func (l levelTx) get(k []byte) ([]byte, error) {
	v, err := l.tr.Get(k, nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	return v, errors.Wrapf(err, "get %s", k)
}

func (l levelTx) put(k, v []byte) error {
	return errors.Wrapf(l.tr.Put(k, v, nil), "put %s", k)
}

func (l levelTx) scan(prefix []byte, fn func(k, v []byte) error) error {
	it := l.tr.NewIterator(util.BytesPrefix(prefix), nil)
	defer it.Release()
	for it.Next() {
		if err := fn(it.Key(), it.Value()); err != nil {
			return err
		}
	}
	return errors.Wrap(it.Error(), "iterate")
}

type levelSnap struct {
	snap *leveldb.Snapshot
}

func (l levelSnap) get(k []byte) ([]byte, error) {
	v, err := l.snap.Get(k, nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	return v, errors.Wrapf(err, "get %s", k)
}

func (l levelSnap) put(k, v []byte) error {
	return ErrReadOnly
}

func (l levelSnap) scan(prefix []byte, fn func(k, v []byte) error) error {
	it := l.snap.NewIterator(util.BytesPrefix(prefix), nil)
	defer it.Release()
	for it.Next() {
		if err := fn(it.Key(), it.Value()); err != nil {
			return err
		}
	}
	return errors.Wrap(it.Error(), "iterate")
}
