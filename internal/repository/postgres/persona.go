package postgres

import (
	"context"
	"database/sql"

	"phi/internal/domain/persona"
	"phi/pkg/errors"
)

// Compile-time check
var _ persona.Repository = (*PersonaRepository)(nil)

// PersonaRepository implements persona.Repository using sqlx
type PersonaRepository struct {
	db DBTX
}

// NewPersonaRepository creates a new persona repository
func NewPersonaRepository(db DBTX) *PersonaRepository {
	return &PersonaRepository{db: db}
}

// Get retrieves a persona by user id
func (r *PersonaRepository) Get(ctx context.Context, userID string) (*persona.Persona, error) {
	var p persona.Persona

	query := `
		SELECT user_id, risk_tolerance, markets, horizon, domain_tags, created_at, updated_at
		FROM personas
		WHERE user_id = $1`

	err := r.db.GetContext(ctx, &p, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrNotFound, "persona %s", userID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select persona")
	}

	return &p, nil
}

// Upsert inserts or replaces a persona, keeping the stored created_at
func (r *PersonaRepository) Upsert(ctx context.Context, p *persona.Persona) error {
	query := `
		INSERT INTO personas (
			user_id, risk_tolerance, markets, horizon, domain_tags, created_at, updated_at
		) VALUES (
			:user_id, :risk_tolerance, :markets, :horizon, :domain_tags, :created_at, :updated_at
		)
		ON CONFLICT (user_id) DO UPDATE SET
			risk_tolerance = EXCLUDED.risk_tolerance,
			markets = EXCLUDED.markets,
			horizon = EXCLUDED.horizon,
			domain_tags = EXCLUDED.domain_tags,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.NamedExecContext(ctx, query, p)
	return errors.Wrap(err, "upsert persona")
}

// Count returns the number of personas
func (r *PersonaRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM personas`)
	return n, err
}
