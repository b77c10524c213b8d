package badgerdb

import (
	"strings"

	badger "github.com/dgraph-io/badger/v4"

	"phi/pkg/errors"
)

// Open opens a badger database at path, or an in-memory one when inMemory is set
func Open(path string, inMemory bool) (*badger.DB, error) {
	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if strings.TrimSpace(path) == "" {
			return nil, errors.Wrap(errors.ErrInvalidInput, "badger path is required")
		}
		opts = badger.DefaultOptions(path)
	}

	db, err := badger.Open(opts.WithLogger(nil))
	if err != nil {
		return nil, errors.Wrapf(err, "open badger at %q", path)
	}
	return db, nil
}

// Count returns the number of keys under prefix
func Count(db *badger.DB, prefix []byte) (int, error) {
	n := 0
	err := db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Ping verifies the database accepts read transactions
func Ping(db *badger.DB) error {
	if db == nil || db.IsClosed() {
		return errors.Wrap(errors.ErrUnavailable, "badger is closed")
	}
	return db.View(func(*badger.Txn) error { return nil })
}
