package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	log "github.com/sirupsen/logrus"

	"music-search-api-go/logcolors"
)

// BadgerBackend stores entries in BadgerDB, which expires them natively
type BadgerBackend struct {
	db *badger.DB
}

// NewBadgerBackend opens a BadgerDB at dir
func NewBadgerBackend(dir string) (*BadgerBackend, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open badger cache: %w", err)
	}
	log.Infof("%s Badger cache initialized at %s", logcolors.LogCacheInit, dir)
	return &BadgerBackend{db: db}, nil
}

// NewInMemoryBadgerBackend opens a BadgerDB that never touches disk
func NewInMemoryBadgerBackend() (*BadgerBackend, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory badger cache: %w", err)
	}
	return &BadgerBackend{db: db}, nil
}

func (bb *BadgerBackend) Get(key string) ([]byte, error) {
	var value []byte
	err := bb.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrDBClosed) {
		return nil, ErrClosed
	}
	return value, err
}

func (bb *BadgerBackend) Set(key string, value []byte, ttl time.Duration) error {
	err := bb.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
	if errors.Is(err, badger.ErrDBClosed) {
		return ErrClosed
	}
	return err
}

func (bb *BadgerBackend) Delete(key string) error {
	err := bb.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if errors.Is(err, badger.ErrDBClosed) {
		return ErrClosed
	}
	return err
}

func (bb *BadgerBackend) DeleteByPrefix(prefix string) (int, error) {
	p := []byte(prefix)
	var keys [][]byte
	err := bb.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	wb := bb.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, err
	}
	return len(keys), nil
}

// PurgeExpired reclaims value log space. Badger drops expired keys itself, so
// the count is always zero.
func (bb *BadgerBackend) PurgeExpired() (int, error) {
	err := bb.db.RunValueLogGC(0.5)
	if err != nil && !errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrGCInMemoryMode) {
		return 0, err
	}
	return 0, nil
}

// Len counts live keys
func (bb *BadgerBackend) Len() int {
	n := 0
	_ = bb.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n
}

func (bb *BadgerBackend) Close() error {
	if bb.db.IsClosed() {
		return nil
	}
	return bb.db.Close()
}
