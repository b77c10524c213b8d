package anchoring

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"phi/internal/domain/persona"
	"phi/internal/domain/prediction"
	"phi/internal/ledger"
	"phi/internal/metrics"
	"phi/pkg/errors"
	"phi/pkg/logger"
)

// Ledger is the registry the service writes to
type Ledger interface {
	Register(ctx context.Context, reg ledger.Registration) (ledger.Receipt, error)
}

// ContentStore stores the full prediction document and returns its id
type ContentStore interface {
	Put(ctx context.Context, data []byte) (string, error)
}

// Anchor holds the references attached to a prediction after registration
type Anchor struct {
	TxHash    string
	ContentID string
}

// Service registers stored predictions on the ledger
type Service struct {
	ledger  Ledger
	content ContentStore
	signer  *ledger.Signer
	log     *logger.Logger
}

// NewService creates an anchoring service; signer's address owns every record
func NewService(l Ledger, content ContentStore, signer *ledger.Signer) *Service {
	return &Service{
		ledger:  l,
		content: content,
		signer:  signer,
		log:     logger.Component("anchoring_service"),
	}
}

// Anchor stores pred in the content store and registers its provenance record.
// Every failure is wrapped with ErrAnchorFailed; the prediction itself is untouched.
func (s *Service) Anchor(ctx context.Context, pred *prediction.Prediction, p *persona.Persona) (Anchor, error) {
	anchor, err := s.anchor(ctx, pred, p)
	if err != nil {
		status := "error"
		var rej *ledger.RejectionError
		if errors.As(err, &rej) {
			status = "rejected"
		}
		metrics.AnchorAttempts.WithLabelValues(status).Inc()
		return Anchor{}, fmt.Errorf("%w: %w", errors.ErrAnchorFailed, err)
	}

	metrics.AnchorAttempts.WithLabelValues("success").Inc()
	s.log.Debugw("Prediction anchored", "prediction_id", pred.ID, "tx_hash", anchor.TxHash)
	return anchor, nil
}

func (s *Service) anchor(ctx context.Context, pred *prediction.Prediction, p *persona.Persona) (Anchor, error) {
	if s.ledger == nil || s.content == nil || s.signer == nil {
		return Anchor{}, errors.Wrap(errors.ErrUnavailable, "anchoring is not configured")
	}

	tier, ok := pred.RiskTier.Code()
	if !ok {
		return Anchor{}, errors.Wrapf(errors.ErrInvalidInput, "unknown risk tier %q", pred.RiskTier)
	}

	profileHash, err := ProfileHash(p)
	if err != nil {
		return Anchor{}, err
	}

	doc, err := json.Marshal(pred)
	if err != nil {
		return Anchor{}, errors.Wrap(err, "encode prediction document")
	}
	contentID, err := s.content.Put(ctx, doc)
	if err != nil {
		return Anchor{}, errors.Wrap(err, "store prediction document")
	}

	id := pred.ID.String()
	witness, err := s.signer.Witness(id)
	if err != nil {
		return Anchor{}, err
	}

	receipt, err := s.ledger.Register(ctx, ledger.Registration{
		ID:            id,
		User:          s.signer.Address().Bytes(),
		EventID:       pred.EventID,
		ProbabilityBp: BasisPoints(pred.ProbabilityUp),
		ConfidenceBp:  BasisPoints(pred.Confidence),
		RiskTierCode:  tier,
		Seed:          EncodeSeed(pred.Seed),
		ContentID:     contentID,
		AgentVersion:  pred.AgentVersion,
		ProfileHash:   profileHash,
		Witness:       witness,
	})
	if err != nil {
		return Anchor{}, err
	}

	return Anchor{TxHash: receipt.TxHash, ContentID: contentID}, nil
}

// BasisPoints converts a fraction to an integer out of 10000, rounding half away from zero
func BasisPoints(x float64) int64 {
	return decimal.NewFromFloat(x).Shift(4).Round(0).IntPart()
}

// EncodeSeed stores the seed's IEEE-754 bit pattern so it decodes without loss
func EncodeSeed(seed float64) int64 {
	return int64(math.Float64bits(seed))
}

// DecodeSeed reverses EncodeSeed
func DecodeSeed(v int64) float64 {
	return math.Float64frombits(uint64(v))
}

// ProfileHash is the keccak256 digest of the persona's JSON form
func ProfileHash(p *persona.Persona) (string, error) {
	if p == nil {
		return "", errors.Wrap(errors.ErrInvalidInput, "persona is required")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", errors.Wrap(err, "encode persona")
	}
	return crypto.Keccak256Hash(data).Hex(), nil
}
