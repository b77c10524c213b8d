package forecast

import (
	"context"
	"math"
	"math/rand/v2"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"phi/internal/agents"
	"phi/internal/domain/persona"
	"phi/internal/domain/prediction"
	"phi/internal/domain/reasoning"
	"phi/internal/metrics"
	"phi/internal/services/anchoring"
	"phi/pkg/errors"
	"phi/pkg/logger"
)

var eventIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.:-]{1,64}$`)

// Request asks for one forecast. A nil Seed is replaced by a fresh draw.
type Request struct {
	UserID  string   `json:"userId"`
	EventID string   `json:"eventId"`
	Seed    *float64 `json:"seed,omitempty"`
}

// Validate checks the request shape before any work is done
func (r Request) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return errors.NewValidationError("userId", "is required", r.UserID)
	}
	if !eventIDPattern.MatchString(r.EventID) {
		return errors.NewValidationError("eventId", "must match [A-Za-z0-9_.:-]{1,64}", r.EventID)
	}
	if r.Seed != nil {
		s := *r.Seed
		if math.IsNaN(s) || s < 0 || s >= 1 {
			return errors.NewValidationError("seed", "must be in [0,1)", s)
		}
	}
	return nil
}

// PersonaSource loads the persona a forecast is made for
type PersonaSource interface {
	Get(ctx context.Context, userID string) (*persona.Persona, error)
}

// Generator runs the reasoning step
type Generator interface {
	Generate(ctx context.Context, p *persona.Persona, eventID string, seed float64) agents.Outcome
}

// Anchorer registers a stored prediction on the ledger
type Anchorer interface {
	Anchor(ctx context.Context, pred *prediction.Prediction, p *persona.Persona) (anchoring.Anchor, error)
}

// TraceRecorder persists the reasoning trace of a run
type TraceRecorder interface {
	Record(ctx context.Context, predictionID uuid.UUID, userID, eventID string, trace *reasoning.Trace) error
}

// EventPublisher announces prediction lifecycle changes
type EventPublisher interface {
	PublishPredictionCreated(ctx context.Context, pred *prediction.Prediction) error
	PublishPredictionAnchored(ctx context.Context, pred *prediction.Prediction, txHash, contentID string) error
}

// Deps wires the service. Anchorer, Traces and Events are optional.
type Deps struct {
	Personas  PersonaSource
	Store     prediction.Repository
	Generator Generator
	Builder   *RecordBuilder
	Anchorer  Anchorer
	Traces    TraceRecorder
	Events    EventPublisher
}

// Service runs the forecast pipeline: persona, reasoning, normalization,
// persistence, then best-effort anchoring.
type Service struct {
	deps     Deps
	drawSeed func() float64
	log      *logger.Logger
}

// NewService creates a forecast service
func NewService(deps Deps) *Service {
	return &Service{
		deps:     deps,
		drawSeed: rand.Float64,
		log:      logger.Component("forecast_service"),
	}
}

// Predict produces, stores and anchors one forecast. It returns an error only
// for rejected requests, a cancelled context, or a failed store append; agent
// and anchoring failures are absorbed.
func (s *Service) Predict(ctx context.Context, req Request) (*prediction.Prediction, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	req.EventID = strings.TrimSpace(req.EventID)

	if err := req.Validate(); err != nil {
		metrics.ForecastRejections.WithLabelValues("invalid_request").Inc()
		return nil, err
	}

	p, err := s.deps.Personas.Get(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			metrics.ForecastRejections.WithLabelValues("persona_not_found").Inc()
		}
		return nil, err
	}
	if err := p.Validate(); err != nil {
		metrics.ForecastRejections.WithLabelValues("invalid_persona").Inc()
		return nil, err
	}

	ctx = errors.WithForecast(ctx, req.UserID, req.EventID)

	seed := s.drawSeed()
	if req.Seed != nil {
		seed = *req.Seed
	}

	outcome := s.deps.Generator.Generate(ctx, p, req.EventID, seed)
	n := Normalize(outcome, seed)
	s.logNormalized(req, seed, outcome, n)

	// A cancelled request leaves no trace: nothing is stored or anchored.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pred := s.deps.Builder.Build(req.UserID, req.EventID, seed, n)
	if err := s.deps.Store.Append(ctx, pred); err != nil {
		return nil, errors.Wrap(err, "append prediction")
	}
	metrics.Forecasts.WithLabelValues(string(pred.Source)).Inc()

	if s.deps.Traces != nil {
		if err := s.deps.Traces.Record(ctx, pred.ID, pred.UserID, pred.EventID, outcome.Trace); err != nil {
			s.log.Warnw("Failed to record reasoning trace", "prediction_id", pred.ID, "error", err)
		}
	}

	if s.deps.Events != nil {
		_ = s.deps.Events.PublishPredictionCreated(ctx, pred)
	}

	s.anchor(ctx, pred, p)
	return pred, nil
}

// anchor registers pred and attaches the references. Failures only log.
func (s *Service) anchor(ctx context.Context, pred *prediction.Prediction, p *persona.Persona) {
	if s.deps.Anchorer == nil {
		return
	}

	a, err := s.deps.Anchorer.Anchor(ctx, pred, p)
	if err != nil {
		s.log.Warnw("Prediction not anchored",
			"prediction_id", pred.ID, "user_id", pred.UserID, "event_id", pred.EventID, "seed", pred.Seed, "error", err)
		return
	}

	if err := s.deps.Store.UpdateAnchor(ctx, pred.ID, a.TxHash, a.ContentID); err != nil {
		s.log.With("prediction_id", pred.ID, "tx_hash", a.TxHash).ErrorWithContext(ctx,
			errors.Wrap(err, "anchored prediction could not be updated"),
			map[string]string{"component": "forecast_service"})
		return
	}

	pred.TxHash = &a.TxHash
	pred.ContentObjectID = &a.ContentID

	if s.deps.Events != nil {
		_ = s.deps.Events.PublishPredictionAnchored(ctx, pred, a.TxHash, a.ContentID)
	}
}

func (s *Service) logNormalized(req Request, seed float64, outcome agents.Outcome, n Normalized) {
	if n.Source == prediction.SourceFallback {
		metrics.FallbackReasons.WithLabelValues(n.Reason).Inc()
		fields := []interface{}{"user_id", req.UserID, "event_id", req.EventID, "seed", seed, "reason", n.Reason}
		if outcome.Failed() {
			fields = append(fields, "stage", outcome.Failure.Stage, "error", outcome.Failure.Err)
		}
		s.log.Warnw("Using fallback forecast", fields...)
		return
	}

	if len(n.Defaulted) > 0 {
		for _, field := range n.Defaulted {
			metrics.FallbackReasons.WithLabelValues("invalid_" + field).Inc()
		}
		s.log.Warnw("Agent forecast fields replaced by fallback",
			"user_id", req.UserID, "event_id", req.EventID, "seed", seed, "fields", n.Defaulted)
	}
}

// ListByUser returns a user's predictions, newest first
func (s *Service) ListByUser(ctx context.Context, userID string) ([]*prediction.Prediction, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.NewValidationError("userId", "is required", userID)
	}
	return s.deps.Store.ListByUser(ctx, userID)
}

// ListByEvent returns an event's predictions, newest first
func (s *Service) ListByEvent(ctx context.Context, eventID string) ([]*prediction.Prediction, error) {
	if !eventIDPattern.MatchString(eventID) {
		return nil, errors.NewValidationError("eventId", "must match [A-Za-z0-9_.:-]{1,64}", eventID)
	}
	return s.deps.Store.ListByEvent(ctx, eventID)
}
