package ledger

import (
	"github.com/ethereum/go-ethereum/common"
)

// MaxBasisPoints is the upper bound for probability and confidence
const MaxBasisPoints = 10000

// keyPrefix namespaces prediction records in the ledger keyspace
const keyPrefix byte = 0x01

// Record is the compact provenance record stored per prediction id.
// The JSON keys are the ledger's storage layout.
type Record struct {
	User          common.Address `json:"user"`
	EventID       string         `json:"event_id"`
	ProbabilityBp int64          `json:"probability"`
	ConfidenceBp  int64          `json:"confidence"`
	RiskTierCode  int64          `json:"risk_tier"`
	Seed          int64          `json:"seed"`
	ContentID     string         `json:"neofs_cid"`
	Timestamp     int64          `json:"timestamp"`
	AgentVersion  string         `json:"agent_version"`
	ProfileHash   string         `json:"profile_hash"`
}

// IsZero reports whether r is the empty record returned for unknown ids
func (r Record) IsZero() bool {
	return r == Record{}
}

// Registration is a register call: the record fields plus the caller's witness
type Registration struct {
	ID            string
	User          []byte
	EventID       string
	ProbabilityBp int64
	ConfidenceBp  int64
	RiskTierCode  int64
	Seed          int64
	ContentID     string
	AgentVersion  string
	ProfileHash   string
	// Witness is a 65-byte secp256k1 signature over WitnessDigest(ID, User)
	Witness []byte
}

// Receipt describes a committed registration
type Receipt struct {
	TxHash    string
	Timestamp int64
}

// StorageKey is the prefix byte followed by the UTF-8 bytes of id
func StorageKey(id string) []byte {
	key := make([]byte, 0, len(id)+1)
	key = append(key, keyPrefix)
	return append(key, id...)
}
