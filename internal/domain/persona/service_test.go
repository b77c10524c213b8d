package persona

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"phi/pkg/errors"
)

// MockRepository is a mock implementation of persona.Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Get(ctx context.Context, userID string) (*Persona, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Persona), args.Error(1)
}

func (m *MockRepository) Upsert(ctx context.Context, p *Persona) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func newTestService(repo Repository, now time.Time) *Service {
	svc := NewService(repo)
	svc.now = func() time.Time { return now }
	return svc
}

func TestService_Upsert_New(t *testing.T) {
	repo := new(MockRepository)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(repo, now)

	repo.On("Get", mock.Anything, "alice").Return(nil, errors.Wrap(errors.ErrNotFound, "persona alice"))
	repo.On("Upsert", mock.Anything, mock.AnythingOfType("*persona.Persona")).Return(nil)

	saved, err := svc.Upsert(context.Background(), &Persona{
		UserID:        " alice ",
		RiskTolerance: RiskMedium,
		Markets:       []string{"btc", " ETH", "BTC"},
		Horizon:       Horizon24h,
		DomainTags:    []string{"Macro", "macro", ""},
	})
	require.NoError(t, err)

	assert.Equal(t, "alice", saved.UserID)
	assert.Equal(t, []string{"BTC", "ETH"}, []string(saved.Markets))
	assert.Equal(t, []string{"macro"}, []string(saved.DomainTags))
	assert.Equal(t, now, saved.CreatedAt)
	assert.Equal(t, now, saved.UpdatedAt)
	repo.AssertExpectations(t)
}

func TestService_Upsert_PreservesCreatedAt(t *testing.T) {
	repo := new(MockRepository)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := created.Add(48 * time.Hour)
	svc := newTestService(repo, now)

	repo.On("Get", mock.Anything, "alice").Return(&Persona{UserID: "alice", CreatedAt: created}, nil)
	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(p *Persona) bool {
		return p.CreatedAt.Equal(created) && p.UpdatedAt.Equal(now)
	})).Return(nil)

	saved, err := svc.Upsert(context.Background(), &Persona{
		UserID:        "alice",
		RiskTolerance: RiskHigh,
		Markets:       []string{"SOL"},
		Horizon:       Horizon7d,
	})
	require.NoError(t, err)
	assert.Equal(t, created, saved.CreatedAt)
	repo.AssertExpectations(t)
}

func TestService_Upsert_Validation(t *testing.T) {
	tests := []struct {
		name    string
		persona *Persona
		field   string
	}{
		{"nil", nil, "persona"},
		{"empty user", &Persona{RiskTolerance: RiskLow, Horizon: Horizon24h, Markets: []string{"BTC"}}, "userId"},
		{"bad risk", &Persona{UserID: "u", RiskTolerance: "yolo", Horizon: Horizon24h, Markets: []string{"BTC"}}, "riskTolerance"},
		{"bad horizon", &Persona{UserID: "u", RiskTolerance: RiskLow, Horizon: "1y", Markets: []string{"BTC"}}, "horizon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			svc := NewService(repo)

			_, err := svc.Upsert(context.Background(), tt.persona)
			require.Error(t, err)

			var ve *errors.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
			repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
		})
	}
}

func TestService_Get(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo)

	repo.On("Get", mock.Anything, "ghost").Return(nil, errors.Wrap(errors.ErrNotFound, "persona ghost"))

	_, err := svc.Get(context.Background(), "ghost")
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = svc.Get(context.Background(), "  ")
	assert.True(t, errors.IsValidation(err))
}

func TestPersona_NormalizeEmptyLists(t *testing.T) {
	p := &Persona{UserID: "u", RiskTolerance: RiskLow, Horizon: Horizon30d, Markets: []string{" "}}
	p.Normalize()

	require.NoError(t, p.Validate())
	assert.NotNil(t, p.Markets)
	assert.Empty(t, p.Markets)
	assert.Empty(t, p.DomainTags)
}
