package ledger

import (
	"crypto/ecdsa"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"phi/pkg/errors"
)

// WitnessDigest is the message a user signs to authorize registering id
func WitnessDigest(id string, user common.Address) common.Hash {
	return crypto.Keccak256Hash([]byte(id), user.Bytes())
}

// VerifyWitness reports whether sig was produced by user's key over WitnessDigest(id, user)
func VerifyWitness(id string, user common.Address, sig []byte) bool {
	if len(sig) != crypto.SignatureLength {
		return false
	}
	pub, err := crypto.SigToPub(WitnessDigest(id, user).Bytes(), sig)
	if err != nil {
		return false
	}
	return crypto.PubkeyToAddress(*pub) == user
}

// Signer holds the key that owns anchored records and produces witnesses
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewSigner parses a hex secp256k1 private key, with or without 0x
func NewSigner(hexKey string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "invalid ledger signer key")
	}
	return &Signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// GenerateSigner creates a signer with a fresh random key
func GenerateSigner() (*Signer, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, errors.Wrap(err, "generate ledger signer key")
	}
	return &Signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// Address is the 20-byte account the signer authorizes for
func (s *Signer) Address() common.Address {
	return s.address
}

// Witness signs the registration digest for id
func (s *Signer) Witness(id string) ([]byte, error) {
	sig, err := crypto.Sign(WitnessDigest(id, s.address).Bytes(), s.key)
	if err != nil {
		return nil, errors.Wrap(err, "sign witness")
	}
	return sig, nil
}
