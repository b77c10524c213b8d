package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"phi/internal/adapters/badgerdb"
	"phi/pkg/errors"
	"phi/pkg/logger"
)

// Rejection reasons
const (
	ReasonEmptyID        = "empty_id"
	ReasonEmptyEvent     = "empty_event"
	ReasonBadUser        = "bad_user"
	ReasonBadProbability = "bad_probability"
	ReasonBadConfidence  = "bad_confidence"
	ReasonBadRiskTier    = "bad_risk_tier"
	ReasonUnauthorized   = "unauthorized"
	ReasonDuplicate      = "duplicate"
)

// RejectionError is returned when a registration is refused. Nothing is written.
type RejectionError struct {
	Reason string
	Field  string
	Err    error
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("ledger rejected registration (%s): %v", e.Reason, e.Err)
}

func (e *RejectionError) Unwrap() error { return e.Err }

func reject(reason, field string, sentinel error, msg string) error {
	return &RejectionError{Reason: reason, Field: field, Err: errors.Wrap(sentinel, msg)}
}

// Clock supplies the ledger timestamp
type Clock func() time.Time

// Registry is a write-once store of provenance records keyed by prediction id.
// Each register runs in a single badger transaction; the existence check and
// the write commit together or not at all.
type Registry struct {
	db    *badger.DB
	clock Clock
	log   *logger.Logger
}

// NewRegistry wraps an open badger database
func NewRegistry(db *badger.DB, clock Clock) *Registry {
	if clock == nil {
		clock = time.Now
	}
	return &Registry{
		db:    db,
		clock: clock,
		log:   logger.Component("ledger_registry"),
	}
}

// Register validates reg and stores its record under StorageKey(reg.ID).
// Checks run in order: id, event, user, probability, confidence, risk tier,
// witness, prior existence.
func (r *Registry) Register(ctx context.Context, reg Registration) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	if err := validate(reg); err != nil {
		return Receipt{}, err
	}

	user := common.BytesToAddress(reg.User)
	if !VerifyWitness(reg.ID, user, reg.Witness) {
		return Receipt{}, reject(ReasonUnauthorized, "witness", errors.ErrUnauthorized, "witness does not match user")
	}

	key := StorageKey(reg.ID)
	var receipt Receipt

	err := r.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		switch {
		case err == nil:
			return reject(ReasonDuplicate, "id", errors.ErrAlreadyExists, "record already registered")
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		rec := Record{
			User:          user,
			EventID:       reg.EventID,
			ProbabilityBp: reg.ProbabilityBp,
			ConfidenceBp:  reg.ConfidenceBp,
			RiskTierCode:  reg.RiskTierCode,
			Seed:          reg.Seed,
			ContentID:     reg.ContentID,
			Timestamp:     r.clock().UnixMilli(),
			AgentVersion:  reg.AgentVersion,
			ProfileHash:   reg.ProfileHash,
		}
		value, err := json.Marshal(rec)
		if err != nil {
			return errors.Wrap(err, "encode ledger record")
		}
		if err := txn.Set(key, value); err != nil {
			return err
		}

		receipt = Receipt{
			TxHash:    crypto.Keccak256Hash(key, value).Hex(),
			Timestamp: rec.Timestamp,
		}
		return nil
	})
	if errors.Is(err, badger.ErrConflict) {
		err = reject(ReasonDuplicate, "id", errors.ErrAlreadyExists, "concurrent registration of the same id")
	}
	if err != nil {
		var rej *RejectionError
		if !errors.As(err, &rej) {
			err = errors.Wrap(err, "ledger transaction")
		}
		return Receipt{}, err
	}

	r.log.Debugw("Ledger record registered", "id", reg.ID, "tx_hash", receipt.TxHash)
	return receipt, nil
}

func validate(reg Registration) error {
	switch {
	case reg.ID == "":
		return reject(ReasonEmptyID, "id", errors.ErrInvalidInput, "id is empty")
	case reg.EventID == "":
		return reject(ReasonEmptyEvent, "event_id", errors.ErrInvalidInput, "event id is empty")
	case len(reg.User) != common.AddressLength:
		return reject(ReasonBadUser, "user", errors.ErrInvalidInput,
			fmt.Sprintf("user must be %d bytes, got %d", common.AddressLength, len(reg.User)))
	case reg.ProbabilityBp < 0 || reg.ProbabilityBp > MaxBasisPoints:
		return reject(ReasonBadProbability, "probability", errors.ErrInvalidInput, "probability out of range")
	case reg.ConfidenceBp < 0 || reg.ConfidenceBp > MaxBasisPoints:
		return reject(ReasonBadConfidence, "confidence", errors.ErrInvalidInput, "confidence out of range")
	case reg.RiskTierCode < 0:
		return reject(ReasonBadRiskTier, "risk_tier", errors.ErrInvalidInput, "risk tier is negative")
	}
	return nil
}

// Get returns the record stored under id. found is false, with an empty
// record and no error, when id is empty or was never registered.
func (r *Registry) Get(ctx context.Context, id string) (rec Record, found bool, err error) {
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}
	if id == "" {
		return Record{}, false, nil
	}

	err = r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(StorageKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return Record{}, false, errors.Wrapf(err, "read ledger record %s", id)
	}
	return rec, found, nil
}

// Exists reports whether id has been registered
func (r *Registry) Exists(ctx context.Context, id string) (bool, error) {
	_, found, err := r.Get(ctx, id)
	return found, err
}

// Count returns the number of registered records
func (r *Registry) Count(context.Context) (int, error) {
	return badgerdb.Count(r.db, []byte{keyPrefix})
}
