package contentstore

import (
	"context"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dustin/go-humanize"
	"github.com/ethereum/go-ethereum/crypto"

	"phi/internal/adapters/badgerdb"
	"phi/pkg/errors"
	"phi/pkg/logger"
)

var objectPrefix = []byte("obj/")

// Store is a content-addressed object store: an object's id is the keccak256
// hash of its bytes, so storing the same bytes twice yields the same id.
type Store struct {
	db  *badger.DB
	log *logger.Logger
}

// New wraps an open badger database
func New(db *badger.DB) *Store {
	return &Store{db: db, log: logger.Component("content_store")}
}

// ObjectID computes the id Put would assign to data
func ObjectID(data []byte) string {
	return crypto.Keccak256Hash(data).Hex()
}

// Put stores data and returns its id
func (s *Store) Put(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", errors.Wrap(errors.ErrInvalidInput, "empty object")
	}

	id := ObjectID(data)
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(objectKey(id), data)
	})
	if err != nil {
		return "", errors.Wrap(err, "store object")
	}
	s.log.Debugw("Object stored", "id", id, "size", humanize.Bytes(uint64(len(data))))
	return id, nil
}

// Get returns the object stored under id, or ErrNotFound
func (s *Store) Get(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(objectKey(id))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, errors.Wrapf(errors.ErrNotFound, "object %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read object %s", id)
	}
	return out, nil
}

// Count returns the number of stored objects
func (s *Store) Count(context.Context) (int, error) {
	return badgerdb.Count(s.db, objectPrefix)
}

func objectKey(id string) []byte {
	return append(append([]byte{}, objectPrefix...), id...)
}
