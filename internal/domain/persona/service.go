package persona

import (
	"context"
	"strings"
	"time"

	"phi/pkg/errors"
	"phi/pkg/logger"
)

// Service provides business logic for persona operations.
type Service struct {
	repo Repository
	now  func() time.Time
	log  *logger.Logger
}

// NewService constructs a persona service instance.
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
		log:  logger.Component("persona_service"),
	}
}

// Get fetches a persona by user id.
func (s *Service) Get(ctx context.Context, userID string) (*Persona, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.NewValidationError("userId", "is required", userID)
	}
	p, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get persona")
	}
	return p, nil
}

// Upsert creates or replaces a persona. The original createdAt survives updates.
func (s *Service) Upsert(ctx context.Context, p *Persona) (*Persona, error) {
	if p == nil {
		return nil, errors.NewValidationError("persona", "is required", nil)
	}
	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	p.CreatedAt = now
	p.UpdatedAt = now

	existing, err := s.repo.Get(ctx, p.UserID)
	switch {
	case err == nil:
		p.CreatedAt = existing.CreatedAt
	case errors.Is(err, errors.ErrNotFound):
	default:
		return nil, errors.Wrap(err, "load existing persona")
	}

	if err := s.repo.Upsert(ctx, p); err != nil {
		return nil, errors.Wrap(err, "upsert persona")
	}

	s.log.Debugw("persona saved", "user_id", p.UserID, "risk", p.RiskTolerance, "horizon", p.Horizon)
	return p, nil
}
